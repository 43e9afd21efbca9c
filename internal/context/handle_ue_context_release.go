package context

import (
	"fmt"

	"distributed-unit/internal/common/task"
	"distributed-unit/internal/context/uecontext"
	"distributed-unit/internal/timer"
	"distributed-unit/pkg/f1ap"
	"distributed-unit/pkg/model"
)

func (du *DuContext) handleUeContextReleaseCommand(msg *f1ap.UeContextReleaseCommand) error {
	res, err := du.routeUe(msg.GnbDuUeF1apId, msg.GnbCuUeF1apId, nil)
	if err != nil {
		return err
	}
	ue := res.ue
	du.post(ue, func() {
		if ue.ReleaseRequested {
			ue.Info("Ignoring duplicate UE Context Release Command")
			return
		}
		ue.ReleaseRequested = true
		ue.Procedures.Schedule("UE Context Release", func(done func()) {
			du.runUeContextRelease(ue, msg, done)
		})
	})
	return nil
}

// runUeContextRelease relays the final RRC container, then waits for its
// delivery and for the DU manager to free the UE. The release timer bounds
// the whole procedure.
func (du *DuContext) runUeContextRelease(ue *uecontext.UeContext, msg *f1ap.UeContextReleaseCommand, done func()) {
	if err := ue.SendCause(model.EventReleaseCommand, msg.Cause); err != nil {
		ue.Error("UE Context Release in %s: %v", ue.CurrentState(), err)
		done()
		return
	}

	var delivered <-chan bool
	if len(msg.RrcContainer) > 0 {
		srbId := f1ap.Srb1
		if msg.SrbId != nil {
			srbId = *msg.SrbId
		}
		if srb := ue.Srb(srbId); srb != nil {
			if sn, ok := srb.HandleDlPdu(msg.RrcContainer, false); ok {
				delivered = srb.WaitDelivery(sn)
			}
		} else {
			ue.Warn("Discarding RRC container of release, %s not set up", srbId)
		}
	}

	ue.ReleaseTimer.Set(du.cfg.ReleaseTimeout, func(timer.TimerID) {
		if ue.Released() {
			return
		}
		ue.Warn("%v after %v", ErrReleaseTimeout, du.cfg.ReleaseTimeout)
		du.metrics.ReleaseTimeouts.Inc()
		du.requestRemoval(ue)
		du.completeRelease(ue, model.EventReleaseTimeout, done)
	})
	ue.ReleaseTimer.Run()

	removal := func() {
		ch := du.requestRemoval(ue)
		if ch == nil {
			return
		}
		task.Await(ue.Ctx, ue.Strand, ch, func(_ struct{}, err error) {
			if err != nil || ue.Released() {
				return
			}
			du.completeRelease(ue, model.EventReleaseConfirmed, done)
		})
	}

	if delivered == nil {
		removal()
		return
	}
	task.Await(ue.Ctx, ue.Strand, delivered, func(ok bool, err error) {
		if err != nil || ue.Released() {
			return
		}
		if !ok {
			ue.Debug("Release container delivery cancelled")
		}
		removal()
	})
}

// completeRelease ends the release procedure on either path; the CU gets a
// Release Complete in both.
func (du *DuContext) completeRelease(ue *uecontext.UeContext, ev model.EventType, done func()) {
	if ue.Released() {
		return
	}
	ue.ReleaseTimer.Stop()
	if err := ue.Send(ev); err != nil {
		ue.Error("UE Context Release on %q: %v", ev, err)
	}
	cu, _ := ue.CuUeId()
	du.send(&f1ap.UeContextReleaseComplete{
		GnbCuUeF1apId: cu,
		GnbDuUeF1apId: ue.DuUeId,
	})
	du.removeUe(ue)
	done()
}

// RequestUeRelease asks the CU to release a UE, e.g. on radio link failure.
func (du *DuContext) RequestUeRelease(idx f1ap.DuUeIndex, cause f1ap.Cause) error {
	ue := du.ues.FindByIndex(idx)
	if ue == nil {
		return fmt.Errorf("ue_index=%d: %w", idx, ErrUnknownUe)
	}
	cu, ok := ue.CuUeId()
	if !ok {
		return fmt.Errorf("ue_index=%d: %w", idx, ErrCuUeIdUnknown)
	}
	du.post(ue, func() {
		if ue.ReleaseRequested {
			return
		}
		ue.Info("Requesting UE context release, cause %s", cause)
		du.send(&f1ap.UeContextReleaseRequest{
			GnbCuUeF1apId: cu,
			GnbDuUeF1apId: ue.DuUeId,
			Cause:         cause,
		})
	})
	return nil
}
