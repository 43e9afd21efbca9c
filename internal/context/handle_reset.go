package context

import (
	"sync"

	"distributed-unit/internal/context/uecontext"
	"distributed-unit/pkg/f1ap"
	"distributed-unit/pkg/model"
)

// handleReset releases the listed UE contexts, or all of them, without the
// release handshake, then acknowledges.
func (du *DuContext) handleReset(msg *f1ap.Reset) {
	var targets []*uecontext.UeContext
	if msg.All {
		targets = du.ues.All()
		du.Info("Reset of all %d UE contexts, cause %s", len(targets), msg.Cause)
	} else {
		seen := make(map[*uecontext.UeContext]bool)
		for _, conn := range msg.Connections {
			var ue *uecontext.UeContext
			switch {
			case conn.GnbDuUeF1apId != nil:
				ue = du.ues.FindByDuId(*conn.GnbDuUeF1apId)
			case conn.GnbCuUeF1apId != nil:
				ue = du.ues.FindByCuId(*conn.GnbCuUeF1apId)
			}
			if ue == nil || seen[ue] {
				continue
			}
			seen[ue] = true
			targets = append(targets, ue)
		}
		du.Info("Partial reset of %d UE contexts, cause %s", len(targets), msg.Cause)
	}

	var wg sync.WaitGroup
	for _, ue := range targets {
		ue := ue
		wg.Add(1)
		posted := ue.Strand.Post(func() {
			defer wg.Done()
			if ue.Released() {
				return
			}
			du.requestRemoval(ue)
			du.teardown(ue, model.EventReset)
		})
		if !posted {
			wg.Done()
		}
	}

	ack := &f1ap.ResetAcknowledge{TransactionId: msg.TransactionId}
	if !msg.All {
		ack.Connections = msg.Connections
	}
	go func() {
		wg.Wait()
		du.send(ack)
	}()
}
