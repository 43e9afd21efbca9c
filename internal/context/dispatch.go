package context

import (
	"errors"
	"fmt"

	"distributed-unit/pkg/f1ap"
	"distributed-unit/pkg/model"
)

// HandleMessage takes one decoded PDU from the CU. Routing happens on the
// caller's goroutine; UE work is queued on the UE strand in arrival order.
// The returned error is informational, every failure is already handled.
func (du *DuContext) HandleMessage(msg f1ap.Message) error {
	if msg == nil {
		return fmt.Errorf("F1AP message is empty")
	}
	du.metrics.F1apRx.WithLabelValues(msg.Name()).Inc()
	du.Debug("Receive %s from CU", msg.Name())

	var err error
	switch m := msg.(type) {
	case *f1ap.DlRrcMessageTransfer:
		err = du.handleDlRrcMessageTransfer(m)
	case *f1ap.UeContextSetupRequest:
		err = du.handleUeContextSetupRequest(m)
	case *f1ap.UeContextModificationRequest:
		err = du.handleUeContextModificationRequest(m)
	case *f1ap.UeContextReleaseCommand:
		err = du.handleUeContextReleaseCommand(m)
	case *f1ap.Reset:
		du.handleReset(m)
	case *f1ap.ErrorIndication:
		du.handleErrorIndication(m)
	default:
		err = &RoutingError{Kind: UnexpectedMessage}
	}

	var rerr *RoutingError
	if errors.As(err, &rerr) {
		rerr.Message = msg.Name()
		du.onRoutingError(rerr)
	}
	return err
}

// routeUe resolves a message that must carry a known DU id.
func (du *DuContext) routeUe(duId f1ap.GnbDuUeF1apId, cuId f1ap.GnbCuUeF1apId, oldDuId *f1ap.GnbDuUeF1apId) (*resolveResult, error) {
	res, err := du.ues.resolve(&duId, cuId, oldDuId, nil)
	if err != nil {
		return nil, err
	}
	if res.learned {
		du.learnedCuUeId(res)
	}
	return &res, nil
}

func (du *DuContext) learnedCuUeId(res resolveResult) {
	ue := res.ue
	du.post(ue, func() {
		if err := ue.Send(model.EventCuIdLearned); err != nil {
			ue.Debug("CU UE id learned in %s: %v", ue.CurrentState(), err)
		}
	})
	cu, _ := ue.CuUeId()
	ue.Info("Learned gNB-CU UE F1AP ID %d", cu)
}

func (du *DuContext) onRoutingError(err *RoutingError) {
	du.metrics.RoutingErrors.WithLabelValues(err.Kind.String()).Inc()
	switch err.Kind {
	case UnknownDuId:
		du.Warn("Discarding %v", err)
	case IdMismatch:
		du.Warn("Discarding %v", err)
		du.sendErrorIndication(err.DuUeId, err.CuUeId, err.Cause)
	default:
		du.Warn("Discarding %s: %v", err.Message, ErrUnexpectedMessage)
	}
}
