package context

import (
	"errors"
	"fmt"

	"distributed-unit/pkg/f1ap"
)

var (
	ErrUnknownDuId        = errors.New("unknown gNB-DU UE F1AP ID")
	ErrIdMismatch         = errors.New("inconsistent pair of UE F1AP IDs")
	ErrUnexpectedMessage  = errors.New("unexpected F1AP message")
	ErrResourceExhausted  = errors.New("no UE context available")
	ErrReleaseTimeout     = errors.New("UE context release timed out")
	ErrUnknownUe          = errors.New("unknown UE index")
	ErrUnknownCell        = errors.New("unknown cell index")
	ErrCuUeIdUnknown      = errors.New("gNB-CU UE F1AP ID not known yet")
	ErrProcedureCancelled = errors.New("procedure cancelled")
)

type RoutingErrorKind uint8

const (
	UnknownDuId RoutingErrorKind = iota
	IdMismatch
	UnexpectedMessage
)

func (k RoutingErrorKind) String() string {
	switch k {
	case UnknownDuId:
		return "unknown_du_id"
	case IdMismatch:
		return "id_mismatch"
	case UnexpectedMessage:
		return "unexpected_message"
	}
	return "unknown"
}

// RoutingError reports an inbound message that could not be mapped onto a
// UE context. The message was discarded without touching any state.
type RoutingError struct {
	Kind    RoutingErrorKind
	Message string
	DuUeId  *f1ap.GnbDuUeF1apId
	CuUeId  *f1ap.GnbCuUeF1apId
	Cause   f1ap.Cause
}

func (e *RoutingError) Error() string {
	var ids string
	if e.DuUeId != nil {
		ids += fmt.Sprintf(" du_ue_id=%d", *e.DuUeId)
	}
	if e.CuUeId != nil {
		ids += fmt.Sprintf(" cu_ue_id=%d", *e.CuUeId)
	}
	return fmt.Sprintf("%s:%s: %v", e.Message, ids, e.Unwrap())
}

func (e *RoutingError) Unwrap() error {
	switch e.Kind {
	case UnknownDuId:
		return ErrUnknownDuId
	case IdMismatch:
		return ErrIdMismatch
	default:
		return ErrUnexpectedMessage
	}
}
