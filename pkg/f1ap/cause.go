package f1ap

import "fmt"

type CauseGroup uint8

const (
	CauseGroupRadioNetwork CauseGroup = iota + 1
	CauseGroupTransport
	CauseGroupProtocol
	CauseGroupMisc
)

type CauseRadioNetwork uint8

const (
	CauseRadioNetworkUnspecified CauseRadioNetwork = iota
	CauseRadioNetworkRlFailureRlc
	CauseRadioNetworkUnknownOrAlreadyAllocatedGnbCuUeF1apId
	CauseRadioNetworkUnknownOrAlreadyAllocatedGnbDuUeF1apId
	CauseRadioNetworkUnknownOrInconsistentPairOfUeF1apId
	CauseRadioNetworkInteractionWithOtherProcedure
	CauseRadioNetworkNotSupportedQci
	CauseRadioNetworkActionDesirableForRadioReasons
	CauseRadioNetworkNoRadioResourcesAvailable
	CauseRadioNetworkProcedureCancelled
	CauseRadioNetworkNormalRelease
	CauseRadioNetworkCellNotAvailable
	CauseRadioNetworkRlFailureOthers
	CauseRadioNetworkUeRejection
	CauseRadioNetworkResourcesNotAvailableForTheSlice
)

type CauseTransport uint8

const (
	CauseTransportUnspecified CauseTransport = iota
	CauseTransportResourceUnavailable
)

type CauseProtocol uint8

const (
	CauseProtocolTransferSyntaxError CauseProtocol = iota
	CauseProtocolAbstractSyntaxErrorReject
	CauseProtocolAbstractSyntaxErrorIgnoreAndNotify
	CauseProtocolMessageNotCompatibleWithReceiverState
	CauseProtocolSemanticError
	CauseProtocolAbstractSyntaxErrorFalselyConstructedMessage
	CauseProtocolUnspecified
)

type CauseMisc uint8

const (
	CauseMiscControlProcessingOverload CauseMisc = iota
	CauseMiscNotEnoughUserPlaneProcessingResources
	CauseMiscHardwareFailure
	CauseMiscOmIntervention
	CauseMiscUnspecified
)

// Cause is one value of the closed F1AP cause set.
type Cause struct {
	Group CauseGroup
	Value uint8
}

func RadioNetworkCause(v CauseRadioNetwork) Cause {
	return Cause{Group: CauseGroupRadioNetwork, Value: uint8(v)}
}

func TransportCause(v CauseTransport) Cause {
	return Cause{Group: CauseGroupTransport, Value: uint8(v)}
}

func ProtocolCause(v CauseProtocol) Cause {
	return Cause{Group: CauseGroupProtocol, Value: uint8(v)}
}

func MiscCause(v CauseMisc) Cause {
	return Cause{Group: CauseGroupMisc, Value: uint8(v)}
}

var radioNetworkNames = map[CauseRadioNetwork]string{
	CauseRadioNetworkUnspecified:                            "unspecified",
	CauseRadioNetworkRlFailureRlc:                           "rl-failure-rlc",
	CauseRadioNetworkUnknownOrAlreadyAllocatedGnbCuUeF1apId: "unknown-or-already-allocated-gnb-cu-ue-f1ap-id",
	CauseRadioNetworkUnknownOrAlreadyAllocatedGnbDuUeF1apId: "unknown-or-already-allocated-gnb-du-ue-f1ap-id",
	CauseRadioNetworkUnknownOrInconsistentPairOfUeF1apId:    "unknown-or-inconsistent-pair-of-ue-f1ap-id",
	CauseRadioNetworkInteractionWithOtherProcedure:          "interaction-with-other-procedure",
	CauseRadioNetworkNotSupportedQci:                        "not-supported-qci-value",
	CauseRadioNetworkActionDesirableForRadioReasons:         "action-desirable-for-radio-reasons",
	CauseRadioNetworkNoRadioResourcesAvailable:              "no-radio-resources-available",
	CauseRadioNetworkProcedureCancelled:                     "procedure-cancelled",
	CauseRadioNetworkNormalRelease:                          "normal-release",
	CauseRadioNetworkCellNotAvailable:                       "cell-not-available",
	CauseRadioNetworkRlFailureOthers:                        "rl-failure-others",
	CauseRadioNetworkUeRejection:                            "ue-rejection",
	CauseRadioNetworkResourcesNotAvailableForTheSlice:       "resources-not-available-for-the-slice",
}

var transportNames = map[CauseTransport]string{
	CauseTransportUnspecified:         "unspecified",
	CauseTransportResourceUnavailable: "transport-resource-unavailable",
}

var protocolNames = map[CauseProtocol]string{
	CauseProtocolTransferSyntaxError:                          "transfer-syntax-error",
	CauseProtocolAbstractSyntaxErrorReject:                    "abstract-syntax-error-reject",
	CauseProtocolAbstractSyntaxErrorIgnoreAndNotify:           "abstract-syntax-error-ignore-and-notify",
	CauseProtocolMessageNotCompatibleWithReceiverState:        "message-not-compatible-with-receiver-state",
	CauseProtocolSemanticError:                                "semantic-error",
	CauseProtocolAbstractSyntaxErrorFalselyConstructedMessage: "abstract-syntax-error-falsely-constructed-message",
	CauseProtocolUnspecified:                                  "unspecified",
}

var miscNames = map[CauseMisc]string{
	CauseMiscControlProcessingOverload:             "control-processing-overload",
	CauseMiscNotEnoughUserPlaneProcessingResources: "not-enough-user-plane-processing-resources",
	CauseMiscHardwareFailure:                       "hardware-failure",
	CauseMiscOmIntervention:                        "om-intervention",
	CauseMiscUnspecified:                           "unspecified",
}

func (c Cause) String() string {
	var (
		group string
		name  string
		ok    bool
	)
	switch c.Group {
	case CauseGroupRadioNetwork:
		group = "radio-network"
		name, ok = radioNetworkNames[CauseRadioNetwork(c.Value)]
	case CauseGroupTransport:
		group = "transport"
		name, ok = transportNames[CauseTransport(c.Value)]
	case CauseGroupProtocol:
		group = "protocol"
		name, ok = protocolNames[CauseProtocol(c.Value)]
	case CauseGroupMisc:
		group = "misc"
		name, ok = miscNames[CauseMisc(c.Value)]
	default:
		return fmt.Sprintf("invalid-cause(%d/%d)", c.Group, c.Value)
	}
	if !ok {
		name = fmt.Sprintf("unknown(%d)", c.Value)
	}
	return group + "/" + name
}

func (c Cause) Valid() bool {
	switch c.Group {
	case CauseGroupRadioNetwork:
		_, ok := radioNetworkNames[CauseRadioNetwork(c.Value)]
		return ok
	case CauseGroupTransport:
		_, ok := transportNames[CauseTransport(c.Value)]
		return ok
	case CauseGroupProtocol:
		_, ok := protocolNames[CauseProtocol(c.Value)]
		return ok
	case CauseGroupMisc:
		_, ok := miscNames[CauseMisc(c.Value)]
		return ok
	}
	return false
}
