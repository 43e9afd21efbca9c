package context

import "distributed-unit/pkg/f1ap"

type UeCreationRequest struct {
	UeIndex    f1ap.DuUeIndex
	PCellIndex f1ap.CellIndex
	CRnti      f1ap.Rnti // zero when the DU manager must allocate one
}

type UeCreationResponse struct {
	Created bool
	CRnti   f1ap.Rnti
	Cause   f1ap.Cause
}

type UeContextUpdateRequest struct {
	UeIndex       f1ap.DuUeIndex
	SrbsToSetup   []f1ap.SrbId
	DrbsToSetup   []f1ap.DrbToSetup
	DrbsToRelease []f1ap.DrbId
	CuToDuRrcInfo []byte
}

type UeContextUpdateResponse struct {
	Result        bool
	DuToCuRrcInfo []byte
	DrbsSetup     []f1ap.DrbSetup
	DrbsFailed    []f1ap.DrbFailed
	Cause         f1ap.Cause
}

type UeRemovalRequest struct {
	UeIndex f1ap.DuUeIndex
}

// DuManager owns the lower layer resources of each UE. Requests complete
// asynchronously through the returned channels.
type DuManager interface {
	RequestUeCreation(req UeCreationRequest) <-chan UeCreationResponse
	RequestUeContextUpdate(req UeContextUpdateRequest) <-chan UeContextUpdateResponse
	RequestUeRemoval(req UeRemovalRequest) <-chan struct{}
	NotifyReestablishment(newUe, oldUe f1ap.DuUeIndex)
	OnUeConfigApplied(ue f1ap.DuUeIndex)
}

// F1apNotifier sends PDUs towards the CU.
type F1apNotifier interface {
	SendF1ap(msg f1ap.Message) error
}

// RlcGateway hands DL RRC PDUs to the RLC entity of a UE bearer.
type RlcGateway interface {
	OnNewSdu(ue f1ap.DuUeIndex, srb f1ap.SrbId, sdu []byte)
}
