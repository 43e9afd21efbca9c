package context

import (
	"distributed-unit/internal/context/uecontext"
	"distributed-unit/internal/timer"
	"distributed-unit/pkg/f1ap"
	"distributed-unit/pkg/model"
)

func (du *DuContext) handleDlRrcMessageTransfer(msg *f1ap.DlRrcMessageTransfer) error {
	res, err := du.routeUe(msg.GnbDuUeF1apId, msg.GnbCuUeF1apId, msg.OldGnbDuUeF1apId)
	if err != nil {
		return err
	}
	ue := res.ue
	if msg.OldGnbDuUeF1apId != nil && *msg.OldGnbDuUeF1apId != ue.DuUeId {
		du.handleReestablishment(ue, *msg.OldGnbDuUeF1apId)
	}

	du.post(ue, func() {
		srb := ue.Srb(msg.SrbId)
		if srb == nil {
			ue.Warn("Discarding DL RRC message for inexistent %s", msg.SrbId)
			return
		}
		srb.HandleDlPdu(msg.RrcContainer, msg.RrcDeliveryStatusRequest && msg.SrbId != f1ap.Srb0)
	})
	return nil
}

// handleReestablishment links UE ue to the context it reestablishes. The DU
// manager hears about the pair once, before ue's payload is relayed.
func (du *DuContext) handleReestablishment(ue *uecontext.UeContext, oldDuId f1ap.GnbDuUeF1apId) {
	oldIndex := f1ap.InvalidDuUeIndex
	old := du.ues.FindByDuId(oldDuId)
	if old != nil {
		oldIndex = old.Index
	} else if idx, ok := du.recentlyReleased(oldDuId); ok {
		if du.ues.FindByIndex(idx) != nil {
			// the index was handed to another context since the release
			du.released.Delete(releasedKey(oldDuId))
			ue.Warn("ue_index=%d of old gNB-DU UE F1AP ID %d is reused, not reporting reestablishment", idx, oldDuId)
			return
		}
		oldIndex = idx
	} else {
		ue.Warn("Reestablishment from unknown old gNB-DU UE F1AP ID %d", oldDuId)
		return
	}

	du.post(ue, func() {
		if ue.ReestablishedFrom != nil {
			return
		}
		ue.ReestablishedFrom = &oldIndex
		_ = ue.Send(model.EventReestablished)
		ue.Info("Reestablishment of ue_index=%d (old gNB-DU UE F1AP ID %d)", oldIndex, oldDuId)
		du.metrics.Reestablishments.Inc()
		du.manager.NotifyReestablishment(ue.Index, oldIndex)
	})

	if old == nil || old == ue {
		return
	}
	// the old context may share its CU id only until the window closes
	du.post(old, func() {
		if old.ReestablishmentTimer.IsRunning() {
			return
		}
		old.ReestablishmentTimer.Set(du.cfg.ReestablishmentWindow, func(timer.TimerID) {
			if old.Released() {
				return
			}
			old.Warn("Old context not released within %v of reestablishment, removing it", du.cfg.ReestablishmentWindow)
			du.requestRemoval(old)
			du.teardown(old, model.EventRemoval)
		})
		old.ReestablishmentTimer.Run()
	})
}
