package context

import (
	"errors"

	"distributed-unit/internal/common/task"
	"distributed-unit/internal/context/uecontext"
	"distributed-unit/pkg/f1ap"
	"distributed-unit/pkg/model"
)

func (du *DuContext) handleUeContextSetupRequest(msg *f1ap.UeContextSetupRequest) error {
	var (
		res *resolveResult
		err error
	)
	if msg.GnbDuUeF1apId == nil {
		res, err = du.createUeForSetup(msg)
	} else {
		res, err = du.routeUe(*msg.GnbDuUeF1apId, msg.GnbCuUeF1apId, nil)
	}
	if errors.Is(err, ErrResourceExhausted) || errors.Is(err, ErrUnknownCell) {
		du.Warn("Rejecting UE Context Setup for cu_ue_id=%d: %v", msg.GnbCuUeF1apId, err)
		du.send(&f1ap.UeContextSetupFailure{
			GnbCuUeF1apId: msg.GnbCuUeF1apId,
			Cause:         f1ap.MiscCause(f1ap.CauseMiscControlProcessingOverload),
		})
		return err
	}
	if err != nil {
		return err
	}

	ue := res.ue
	created := res.created
	du.post(ue, func() {
		ue.Procedures.Schedule("UE Context Setup", func(done func()) {
			du.runUeContextSetup(ue, msg, created, done)
		})
	})
	return nil
}

// createUeForSetup creates the context of a UE the CU sets up without a DU
// id, as on handover into this DU.
func (du *DuContext) createUeForSetup(msg *f1ap.UeContextSetupRequest) (*resolveResult, error) {
	pcell, ok := du.cellIndexOf(msg.SpCellId)
	if !ok {
		return nil, ErrUnknownCell
	}
	res, err := du.ues.resolve(nil, msg.GnbCuUeF1apId, nil,
		func(idx f1ap.DuUeIndex, duUeId f1ap.GnbDuUeF1apId) *uecontext.UeContext {
			return du.newUe(idx, duUeId, pcell, 0)
		})
	if err != nil {
		return nil, err
	}
	du.metrics.UeContexts.Set(float64(du.ues.Len()))
	res.ue.Info("UE context created by the CU for cu_ue_id=%d", msg.GnbCuUeF1apId)
	du.post(res.ue, func() { _ = res.ue.Send(model.EventCuIdLearned) })
	return &res, nil
}

func (du *DuContext) cellIndexOf(nrcgi f1ap.Nrcgi) (f1ap.CellIndex, bool) {
	for idx, c := range du.cfg.Cells {
		if c.NrCellId == nrcgi.NrCellId {
			return idx, true
		}
	}
	return 0, false
}

func (du *DuContext) runUeContextSetup(ue *uecontext.UeContext, msg *f1ap.UeContextSetupRequest, created bool, done func()) {
	fail := func(cause f1ap.Cause) {
		cu, _ := ue.CuUeId()
		ue.Warn("UE Context Setup failed: %s", cause)
		du.send(&f1ap.UeContextSetupFailure{
			GnbCuUeF1apId: cu,
			GnbDuUeF1apId: &ue.DuUeId,
			Cause:         cause,
		})
		if created {
			du.requestRemoval(ue)
			du.teardown(ue, model.EventRemoval)
		}
		done()
	}

	update := func() {
		req := UeContextUpdateRequest{
			UeIndex:       ue.Index,
			DrbsToSetup:   msg.DrbsToSetup,
			CuToDuRrcInfo: msg.CuToDuRrcInfo,
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
			if err != nil {
				fail(f1ap.MiscCause(f1ap.CauseMiscUnspecified))
				return
			}
			if !resp.Result {
				fail(resp.Cause)
				return
			}
			srbs := du.applyBearers(ue, req.SrbsToSetup, msg.DrbsToSetup, nil, resp)
			if err := ue.Send(model.EventBearersConfigured); err != nil {
				ue.Warn("UE Context Setup in %s: %v", ue.CurrentState(), err)
			}
			du.relayRrcContainer(ue, msg.RrcContainer, msg.RrcDeliveryStatusRequest)

			cu, _ := ue.CuUeId()
			crnti := ue.CRnti
			du.send(&f1ap.UeContextSetupResponse{
				GnbCuUeF1apId:     cu,
				GnbDuUeF1apId:     ue.DuUeId,
				DuToCuRrcInfo:     resp.DuToCuRrcInfo,
				CRnti:             &crnti,
				SrbsSetup:         srbs,
				DrbsSetup:         resp.DrbsSetup,
				DrbsFailedToSetup: resp.DrbsFailed,
			})
			done()
		})
	}

	if !created {
		update()
		return
	}
	ctx, cancel := du.procedureContext(ue)
	creation := du.manager.RequestUeCreation(UeCreationRequest{UeIndex: ue.Index, PCellIndex: ue.PCellIndex})
	task.Await(ctx, ue.Strand, creation, func(resp UeCreationResponse, err error) {
		cancel()
		if ue.Released() {
			done()
			return
		}
		if err != nil {
			fail(f1ap.MiscCause(f1ap.CauseMiscUnspecified))
			return
		}
		if !resp.Created {
			// nothing to remove in the lower layers
			ue.RemovalRequested = true
			fail(resp.Cause)
			return
		}
		ue.CRnti = resp.CRnti
		update()
	})
}

// applyBearers records the bearer changes the DU manager accepted and returns
// the SRBs now set up.
func (du *DuContext) applyBearers(ue *uecontext.UeContext, srbs []f1ap.SrbId, drbs []f1ap.DrbToSetup,
	release []f1ap.DrbId, resp UeContextUpdateResponse) []f1ap.SrbId {
	for _, id := range srbs {
		du.addSrb(ue, id)
	}
	failed := make(map[f1ap.DrbId]bool, len(resp.DrbsFailed))
	for _, d := range resp.DrbsFailed {
		failed[d.DrbId] = true
	}
	for _, d := range drbs {
		if failed[d.DrbId] {
			continue
		}
		ue.Drbs[d.DrbId] = &uecontext.Drb{DrbId: d.DrbId, UlTunnels: d.UlTunnels}
	}
	for _, id := range release {
		delete(ue.Drbs, id)
	}
	return srbs
}

// relayRrcContainer sends an RRC container carried by a UE context procedure
// on SRB1, and waits for the UE's answer to flag the config as applied.
func (du *DuContext) relayRrcContainer(ue *uecontext.UeContext, container []byte, reportDelivery bool) {
	if len(container) == 0 {
		return
	}
	srb := ue.Srb(f1ap.Srb1)
	if srb == nil {
		ue.Warn("Discarding RRC container, SRB1 not set up")
		return
	}
	srb.HandleDlPdu(container, reportDelivery)
	ue.ConfigPending = true
}
