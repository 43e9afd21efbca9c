package context

import (
	"distributed-unit/internal/common/task"
	"distributed-unit/internal/context/uecontext"
	"distributed-unit/pkg/f1ap"
	"distributed-unit/pkg/model"
)

func (du *DuContext) handleUeContextModificationRequest(msg *f1ap.UeContextModificationRequest) error {
	res, err := du.routeUe(msg.GnbDuUeF1apId, msg.GnbCuUeF1apId, nil)
	if err != nil {
		return err
	}
	ue := res.ue
	du.post(ue, func() {
		if ue.ReleaseRequested {
			ue.Info("Rejecting UE Context Modification, release in progress")
			du.send(&f1ap.UeContextModificationFailure{
				GnbCuUeF1apId: msg.GnbCuUeF1apId,
				GnbDuUeF1apId: ue.DuUeId,
				Cause:         f1ap.RadioNetworkCause(f1ap.CauseRadioNetworkInteractionWithOtherProcedure),
			})
			return
		}
		ue.Procedures.Schedule("UE Context Modification", func(done func()) {
			du.runUeContextModification(ue, msg, done)
		})
	})
	return nil
}

func (du *DuContext) runUeContextModification(ue *uecontext.UeContext, msg *f1ap.UeContextModificationRequest, done func()) {
	req := UeContextUpdateRequest{
		UeIndex:       ue.Index,
		DrbsToSetup:   msg.DrbsToSetup,
		DrbsToRelease: msg.DrbsToRelease,
	}
	for _, s := range msg.SrbsToSetup {
		req.SrbsToSetup = append(req.SrbsToSetup, s.SrbId)
	}

	ctx, cancel := du.procedureContext(ue)
	task.Await(ctx, ue.Strand, du.manager.RequestUeContextUpdate(req), func(resp UeContextUpdateResponse, err error) {
		cancel()
		if ue.Released() {
			done()
			return
		}
		cause := resp.Cause
		if err != nil {
			cause = f1ap.MiscCause(f1ap.CauseMiscUnspecified)
		}
		if err != nil || !resp.Result {
			ue.Warn("UE Context Modification failed: %s", cause)
			du.send(&f1ap.UeContextModificationFailure{
				GnbCuUeF1apId: msg.GnbCuUeF1apId,
				GnbDuUeF1apId: ue.DuUeId,
				Cause:         cause,
			})
			done()
			return
		}

		srbs := du.applyBearers(ue, req.SrbsToSetup, msg.DrbsToSetup, msg.DrbsToRelease, resp)
		if len(srbs) > 0 || len(ue.Drbs) > 0 {
			if err := ue.Send(model.EventBearersConfigured); err != nil {
				ue.Warn("UE Context Modification in %s: %v", ue.CurrentState(), err)
			}
		}
		du.relayRrcContainer(ue, msg.RrcContainer, msg.RrcDeliveryStatusRequest)
		du.send(&f1ap.UeContextModificationResponse{
			GnbCuUeF1apId:     msg.GnbCuUeF1apId,
			GnbDuUeF1apId:     ue.DuUeId,
			DuToCuRrcInfo:     resp.DuToCuRrcInfo,
			SrbsSetup:         srbs,
			DrbsSetup:         resp.DrbsSetup,
			DrbsFailedToSetup: resp.DrbsFailed,
		})
		done()
	})
}
