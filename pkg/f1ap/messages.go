package f1ap

import "time"

type ProcedureCode uint8

const (
	ProcedureReset                       ProcedureCode = 0
	ProcedureF1Setup                     ProcedureCode = 1
	ProcedureErrorIndication             ProcedureCode = 2
	ProcedureUeContextSetup              ProcedureCode = 5
	ProcedureUeContextRelease            ProcedureCode = 6
	ProcedureUeContextModification       ProcedureCode = 7
	ProcedureUeContextReleaseRequest     ProcedureCode = 10
	ProcedureInitialUlRrcMessageTransfer ProcedureCode = 11
	ProcedureDlRrcMessageTransfer        ProcedureCode = 12
	ProcedureUlRrcMessageTransfer        ProcedureCode = 13
	ProcedureRrcDeliveryReport           ProcedureCode = 25
)

type MessageType uint8

const (
	InitiatingMessage MessageType = iota
	SuccessfulOutcome
	UnsuccessfulOutcome
)

// Message is the closed set of F1AP PDUs handled by the DU.
type Message interface {
	Procedure() ProcedureCode
	Type() MessageType
	Name() string
	f1apMessage()
}

type SrbToSetup struct {
	SrbId SrbId
}

type DrbToSetup struct {
	DrbId DrbId
	// UlTunnels carries the CU side F1-U endpoints, opaque here.
	UlTunnels [][]byte
}

type DrbSetup struct {
	DrbId DrbId
}

type DrbFailed struct {
	DrbId DrbId
	Cause Cause
}

type InitialUlRrcMessageTransfer struct {
	GnbDuUeF1apId      GnbDuUeF1apId
	Nrcgi              Nrcgi
	CRnti              Rnti
	RrcContainer       []byte
	DuToCuRrcContainer []byte
}

type DlRrcMessageTransfer struct {
	GnbCuUeF1apId            GnbCuUeF1apId
	GnbDuUeF1apId            GnbDuUeF1apId
	OldGnbDuUeF1apId         *GnbDuUeF1apId
	SrbId                    SrbId
	RrcContainer             []byte
	RrcDeliveryStatusRequest bool
}

type UlRrcMessageTransfer struct {
	GnbCuUeF1apId GnbCuUeF1apId
	GnbDuUeF1apId GnbDuUeF1apId
	SrbId         SrbId
	RrcContainer  []byte
}

type UeContextSetupRequest struct {
	GnbCuUeF1apId            GnbCuUeF1apId
	GnbDuUeF1apId            *GnbDuUeF1apId
	SpCellId                 Nrcgi
	CuToDuRrcInfo            []byte
	SrbsToSetup              []SrbToSetup
	DrbsToSetup              []DrbToSetup
	RrcContainer             []byte
	RrcDeliveryStatusRequest bool
}

type UeContextSetupResponse struct {
	GnbCuUeF1apId     GnbCuUeF1apId
	GnbDuUeF1apId     GnbDuUeF1apId
	DuToCuRrcInfo     []byte
	CRnti             *Rnti
	SrbsSetup         []SrbId
	DrbsSetup         []DrbSetup
	DrbsFailedToSetup []DrbFailed
}

type UeContextSetupFailure struct {
	GnbCuUeF1apId GnbCuUeF1apId
	GnbDuUeF1apId *GnbDuUeF1apId
	Cause         Cause
}

type UeContextModificationRequest struct {
	GnbCuUeF1apId            GnbCuUeF1apId
	GnbDuUeF1apId            GnbDuUeF1apId
	SrbsToSetup              []SrbToSetup
	DrbsToSetup              []DrbToSetup
	DrbsToRelease            []DrbId
	RrcContainer             []byte
	RrcDeliveryStatusRequest bool
}

type UeContextModificationResponse struct {
	GnbCuUeF1apId     GnbCuUeF1apId
	GnbDuUeF1apId     GnbDuUeF1apId
	DuToCuRrcInfo     []byte
	SrbsSetup         []SrbId
	DrbsSetup         []DrbSetup
	DrbsFailedToSetup []DrbFailed
}

type UeContextModificationFailure struct {
	GnbCuUeF1apId GnbCuUeF1apId
	GnbDuUeF1apId GnbDuUeF1apId
	Cause         Cause
}

type UeContextReleaseCommand struct {
	GnbCuUeF1apId    GnbCuUeF1apId
	GnbDuUeF1apId    GnbDuUeF1apId
	Cause            Cause
	RrcContainer     []byte
	SrbId            *SrbId // defaults to SRB1 when a container is present
	OldGnbDuUeF1apId *GnbDuUeF1apId
}

type UeContextReleaseComplete struct {
	GnbCuUeF1apId GnbCuUeF1apId
	GnbDuUeF1apId GnbDuUeF1apId
}

type UeContextReleaseRequest struct {
	GnbCuUeF1apId GnbCuUeF1apId
	GnbDuUeF1apId GnbDuUeF1apId
	Cause         Cause
}

// UeF1Connection names one UE-associated logical F1 connection in a partial
// reset. Either id may be absent.
type UeF1Connection struct {
	GnbDuUeF1apId *GnbDuUeF1apId
	GnbCuUeF1apId *GnbCuUeF1apId
}

type Reset struct {
	TransactionId uint8
	Cause         Cause
	All           bool
	Connections   []UeF1Connection
}

type ResetAcknowledge struct {
	TransactionId uint8
	Connections   []UeF1Connection
}

type ErrorIndication struct {
	TransactionId uint8
	GnbDuUeF1apId *GnbDuUeF1apId
	GnbCuUeF1apId *GnbCuUeF1apId
	Cause         *Cause
}

type RrcDeliveryReport struct {
	GnbCuUeF1apId GnbCuUeF1apId
	GnbDuUeF1apId GnbDuUeF1apId
	SrbId         SrbId
	TriggerSn     PdcpSn
	DeliveredSn   PdcpSn
	TransmittedSn PdcpSn
}

type ServedCell struct {
	Nrcgi Nrcgi
	Pci   uint16
	Tac   uint32
}

type F1SetupRequest struct {
	TransactionId    uint8
	GnbDuId          uint64
	GnbDuName        string
	ServedCells      []ServedCell
	LatestRrcVersion uint8
}

type F1SetupResponse struct {
	TransactionId   uint8
	GnbCuName       string
	CellsToActivate []Nrcgi
}

type F1SetupFailure struct {
	TransactionId uint8
	Cause         Cause
	TimeToWait    time.Duration
}

func (*InitialUlRrcMessageTransfer) Procedure() ProcedureCode {
	return ProcedureInitialUlRrcMessageTransfer
}
func (*InitialUlRrcMessageTransfer) Type() MessageType { return InitiatingMessage }
func (*InitialUlRrcMessageTransfer) Name() string      { return "InitialULRRCMessageTransfer" }

func (*DlRrcMessageTransfer) Procedure() ProcedureCode { return ProcedureDlRrcMessageTransfer }
func (*DlRrcMessageTransfer) Type() MessageType        { return InitiatingMessage }
func (*DlRrcMessageTransfer) Name() string             { return "DLRRCMessageTransfer" }

func (*UlRrcMessageTransfer) Procedure() ProcedureCode { return ProcedureUlRrcMessageTransfer }
func (*UlRrcMessageTransfer) Type() MessageType        { return InitiatingMessage }
func (*UlRrcMessageTransfer) Name() string             { return "ULRRCMessageTransfer" }

func (*UeContextSetupRequest) Procedure() ProcedureCode { return ProcedureUeContextSetup }
func (*UeContextSetupRequest) Type() MessageType        { return InitiatingMessage }
func (*UeContextSetupRequest) Name() string             { return "UEContextSetupRequest" }

func (*UeContextSetupResponse) Procedure() ProcedureCode { return ProcedureUeContextSetup }
func (*UeContextSetupResponse) Type() MessageType        { return SuccessfulOutcome }
func (*UeContextSetupResponse) Name() string             { return "UEContextSetupResponse" }

func (*UeContextSetupFailure) Procedure() ProcedureCode { return ProcedureUeContextSetup }
func (*UeContextSetupFailure) Type() MessageType        { return UnsuccessfulOutcome }
func (*UeContextSetupFailure) Name() string             { return "UEContextSetupFailure" }

func (*UeContextModificationRequest) Procedure() ProcedureCode {
	return ProcedureUeContextModification
}
func (*UeContextModificationRequest) Type() MessageType { return InitiatingMessage }
func (*UeContextModificationRequest) Name() string      { return "UEContextModificationRequest" }

func (*UeContextModificationResponse) Procedure() ProcedureCode {
	return ProcedureUeContextModification
}
func (*UeContextModificationResponse) Type() MessageType { return SuccessfulOutcome }
func (*UeContextModificationResponse) Name() string      { return "UEContextModificationResponse" }

func (*UeContextModificationFailure) Procedure() ProcedureCode {
	return ProcedureUeContextModification
}
func (*UeContextModificationFailure) Type() MessageType { return UnsuccessfulOutcome }
func (*UeContextModificationFailure) Name() string      { return "UEContextModificationFailure" }

func (*UeContextReleaseCommand) Procedure() ProcedureCode { return ProcedureUeContextRelease }
func (*UeContextReleaseCommand) Type() MessageType        { return InitiatingMessage }
func (*UeContextReleaseCommand) Name() string             { return "UEContextReleaseCommand" }

func (*UeContextReleaseComplete) Procedure() ProcedureCode { return ProcedureUeContextRelease }
func (*UeContextReleaseComplete) Type() MessageType        { return SuccessfulOutcome }
func (*UeContextReleaseComplete) Name() string             { return "UEContextReleaseComplete" }

func (*UeContextReleaseRequest) Procedure() ProcedureCode {
	return ProcedureUeContextReleaseRequest
}
func (*UeContextReleaseRequest) Type() MessageType { return InitiatingMessage }
func (*UeContextReleaseRequest) Name() string      { return "UEContextReleaseRequest" }

func (*Reset) Procedure() ProcedureCode { return ProcedureReset }
func (*Reset) Type() MessageType        { return InitiatingMessage }
func (*Reset) Name() string             { return "Reset" }

func (*ResetAcknowledge) Procedure() ProcedureCode { return ProcedureReset }
func (*ResetAcknowledge) Type() MessageType        { return SuccessfulOutcome }
func (*ResetAcknowledge) Name() string             { return "ResetAcknowledge" }

func (*ErrorIndication) Procedure() ProcedureCode { return ProcedureErrorIndication }
func (*ErrorIndication) Type() MessageType        { return InitiatingMessage }
func (*ErrorIndication) Name() string             { return "ErrorIndication" }

func (*RrcDeliveryReport) Procedure() ProcedureCode { return ProcedureRrcDeliveryReport }
func (*RrcDeliveryReport) Type() MessageType        { return InitiatingMessage }
func (*RrcDeliveryReport) Name() string             { return "RRCDeliveryReport" }

func (*F1SetupRequest) Procedure() ProcedureCode { return ProcedureF1Setup }
func (*F1SetupRequest) Type() MessageType        { return InitiatingMessage }
func (*F1SetupRequest) Name() string             { return "F1SetupRequest" }

func (*F1SetupResponse) Procedure() ProcedureCode { return ProcedureF1Setup }
func (*F1SetupResponse) Type() MessageType        { return SuccessfulOutcome }
func (*F1SetupResponse) Name() string             { return "F1SetupResponse" }

func (*F1SetupFailure) Procedure() ProcedureCode { return ProcedureF1Setup }
func (*F1SetupFailure) Type() MessageType        { return UnsuccessfulOutcome }
func (*F1SetupFailure) Name() string             { return "F1SetupFailure" }

func (*InitialUlRrcMessageTransfer) f1apMessage()   {}
func (*DlRrcMessageTransfer) f1apMessage()          {}
func (*UlRrcMessageTransfer) f1apMessage()          {}
func (*UeContextSetupRequest) f1apMessage()         {}
func (*UeContextSetupResponse) f1apMessage()        {}
func (*UeContextSetupFailure) f1apMessage()         {}
func (*UeContextModificationRequest) f1apMessage()  {}
func (*UeContextModificationResponse) f1apMessage() {}
func (*UeContextModificationFailure) f1apMessage()  {}
func (*UeContextReleaseCommand) f1apMessage()       {}
func (*UeContextReleaseComplete) f1apMessage()      {}
func (*UeContextReleaseRequest) f1apMessage()       {}
func (*Reset) f1apMessage()                         {}
func (*ResetAcknowledge) f1apMessage()              {}
func (*ErrorIndication) f1apMessage()               {}
func (*RrcDeliveryReport) f1apMessage()             {}
func (*F1SetupRequest) f1apMessage()                {}
func (*F1SetupResponse) f1apMessage()               {}
func (*F1SetupFailure) f1apMessage()                {}

// Ptr is a helper for optional IEs.
func Ptr[T any](v T) *T { return &v }
