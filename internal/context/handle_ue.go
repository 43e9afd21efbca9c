package context

import (
	"fmt"

	"distributed-unit/internal/context/uecontext"
	"distributed-unit/pkg/f1ap"
	"distributed-unit/pkg/model"
)

type InitialUlRrcMessage struct {
	PCellIndex         f1ap.CellIndex
	CRnti              f1ap.Rnti
	RrcContainer       []byte
	DuToCuRrcContainer []byte
}

// HandleInitialUlRrcMessage creates a UE context for a UE that just sent its
// first CCCH message and forwards that message to the CU.
func (du *DuContext) HandleInitialUlRrcMessage(req InitialUlRrcMessage) (f1ap.DuUeIndex, error) {
	cell, ok := du.cfg.Cells[req.PCellIndex]
	if !ok {
		return f1ap.InvalidDuUeIndex, fmt.Errorf("initial UL RRC message on cell %d: %w", req.PCellIndex, ErrUnknownCell)
	}
	ue, err := du.ues.Add(func(idx f1ap.DuUeIndex, duUeId f1ap.GnbDuUeF1apId) *uecontext.UeContext {
		return du.newUe(idx, duUeId, req.PCellIndex, req.CRnti)
	})
	if err != nil {
		du.Warn("Rejecting UE c-rnti=0x%04x: %v", req.CRnti, err)
		return f1ap.InvalidDuUeIndex, err
	}
	du.metrics.UeContexts.Set(float64(du.ues.Len()))
	ue.Info("UE context created, c-rnti=0x%04x", req.CRnti)

	msg := &f1ap.InitialUlRrcMessageTransfer{
		GnbDuUeF1apId:      ue.DuUeId,
		Nrcgi:              cell,
		CRnti:              req.CRnti,
		RrcContainer:       req.RrcContainer,
		DuToCuRrcContainer: req.DuToCuRrcContainer,
	}
	du.post(ue, func() { du.send(msg) })
	return ue.Index, nil
}

// RemoveUe tears a UE down on request of the DU manager, without any F1AP
// signalling. The channel closes once the context is gone.
func (du *DuContext) RemoveUe(idx f1ap.DuUeIndex) <-chan struct{} {
	done := make(chan struct{})
	ue := du.ues.FindByIndex(idx)
	if ue == nil {
		close(done)
		return done
	}
	posted := ue.Strand.Post(func() {
		defer close(done)
		du.teardown(ue, model.EventRemoval)
	})
	if !posted {
		close(done)
	}
	return done
}

// teardown takes the fast path to Released. Must run on the UE strand.
func (du *DuContext) teardown(ue *uecontext.UeContext, ev model.EventType) {
	if !ue.Accepts(ev) {
		return
	}
	if err := ue.Send(ev); err != nil {
		ue.Error("Teardown on %q: %v", ev, err)
	}
	du.removeUe(ue)
}

// requestRemoval asks the DU manager once to free the UE's lower layers.
func (du *DuContext) requestRemoval(ue *uecontext.UeContext) <-chan struct{} {
	if ue.RemovalRequested {
		return nil
	}
	ue.RemovalRequested = true
	return du.manager.RequestUeRemoval(UeRemovalRequest{UeIndex: ue.Index})
}

// ueUplink carries what the UE's bearers send towards the CU. It runs on the
// UE strand.
type ueUplink struct {
	du *DuContext
	ue *uecontext.UeContext
}

func (u *ueUplink) OnUlRrcSdu(srb f1ap.SrbId, sdu []byte) {
	ue := u.ue
	if ue.Released() {
		return
	}
	if srb == f1ap.Srb0 {
		ue.Warn("Discarding UL CCCH message after UE creation")
		return
	}
	cu, ok := ue.CuUeId()
	if !ok {
		ue.Warn("Discarding UL RRC message on %s: %v", srb, ErrCuUeIdUnknown)
		return
	}
	u.du.send(&f1ap.UlRrcMessageTransfer{
		GnbCuUeF1apId: cu,
		GnbDuUeF1apId: ue.DuUeId,
		SrbId:         srb,
		RrcContainer:  sdu,
	})
	if srb == f1ap.Srb1 && ue.ConfigPending {
		ue.ConfigPending = false
		u.du.manager.OnUeConfigApplied(ue.Index)
	}
}

func (u *ueUplink) OnDeliveryReport(srb f1ap.SrbId, trigger, delivered, transmitted f1ap.PdcpSn) {
	ue := u.ue
	cu, ok := ue.CuUeId()
	if !ok || ue.Released() {
		return
	}
	u.du.send(&f1ap.RrcDeliveryReport{
		GnbCuUeF1apId: cu,
		GnbDuUeF1apId: ue.DuUeId,
		SrbId:         srb,
		TriggerSn:     trigger,
		DeliveredSn:   delivered,
		TransmittedSn: transmitted,
	})
	u.du.metrics.DeliveryReports.Inc()
}
