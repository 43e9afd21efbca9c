package context

import "distributed-unit/pkg/f1ap"

func (du *DuContext) sendErrorIndication(duId *f1ap.GnbDuUeF1apId, cuId *f1ap.GnbCuUeF1apId, cause f1ap.Cause) {
	du.send(&f1ap.ErrorIndication{
		GnbDuUeF1apId: duId,
		GnbCuUeF1apId: cuId,
		Cause:         &cause,
	})
}

func (du *DuContext) handleErrorIndication(msg *f1ap.ErrorIndication) {
	cause := "none"
	if msg.Cause != nil {
		cause = msg.Cause.String()
	}
	switch {
	case msg.GnbDuUeF1apId != nil && msg.GnbCuUeF1apId != nil:
		du.Warn("Error Indication from CU for du_ue_id=%d cu_ue_id=%d, cause %s",
			*msg.GnbDuUeF1apId, *msg.GnbCuUeF1apId, cause)
	case msg.GnbDuUeF1apId != nil:
		du.Warn("Error Indication from CU for du_ue_id=%d, cause %s", *msg.GnbDuUeF1apId, cause)
	default:
		du.Warn("Error Indication from CU, cause %s", cause)
	}
}
