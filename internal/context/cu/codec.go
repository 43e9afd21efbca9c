package cu

import (
	"errors"
	"fmt"

	"distributed-unit/internal/common/utils"
	"distributed-unit/pkg/f1ap"

	f1gen "github.com/JocelynWS/f1-gen"
	"github.com/JocelynWS/f1-gen/ies"
	"github.com/lvdund/ngap/aper"
	"github.com/lvdund/rrc"
	rrcies "github.com/lvdund/rrc/ies"
)

var ErrUnsupported = errors.New("F1AP message not supported by the codec")

// Cause CHOICE indexes
const (
	causeRadioNetworkChoice = 1
	causeTransportChoice    = 2
	causeProtocolChoice     = 3
	causeMiscChoice         = 4
)

// latestRrcVersion is the 3 bit Latest RRC Version advertised in F1 Setup.
var latestRrcVersion = aper.BitString{Bytes: []byte{0x0c, 0x22, 0x38}, NumBits: 3}

// Decode turns one received F1AP PDU into its semantic form.
func Decode(data []byte) (f1ap.Message, error) {
	pdu, err, diagnostics := f1gen.F1apDecode(data)
	if err != nil {
		return nil, fmt.Errorf("decode F1AP PDU: %w (diagnostics %v)", err, diagnostics)
	}
	if pdu.Present == 0 || pdu.Message.Msg == nil {
		return nil, fmt.Errorf("decode F1AP PDU: empty message")
	}

	switch m := pdu.Message.Msg.(type) {
	case *ies.DLRRCMessageTransfer:
		return &f1ap.DlRrcMessageTransfer{
			GnbCuUeF1apId: f1ap.GnbCuUeF1apId(m.GNBCUUEF1APID),
			GnbDuUeF1apId: f1ap.GnbDuUeF1apId(m.GNBDUUEF1APID),
			SrbId:         f1ap.SrbId(m.SRBID),
			RrcContainer:  m.RRCContainer,
		}, nil
	case *ies.UEContextSetupRequest:
		return decodeUeContextSetupRequest(m)
	case *ies.UEContextReleaseCommand:
		cmd := &f1ap.UeContextReleaseCommand{
			GnbCuUeF1apId: f1ap.GnbCuUeF1apId(m.GNBCUUEF1APID),
			GnbDuUeF1apId: f1ap.GnbDuUeF1apId(m.GNBDUUEF1APID),
			Cause:         decodeCause(m.Cause),
			RrcContainer:  m.RRCContainer,
		}
		if m.SRBID != nil {
			cmd.SrbId = f1ap.Ptr(f1ap.SrbId(*m.SRBID))
		}
		return cmd, nil
	case *ies.ErrorIndication:
		ind := &f1ap.ErrorIndication{TransactionId: uint8(m.TransactionID)}
		if m.GNBCUUEF1APID != nil {
			ind.GnbCuUeF1apId = f1ap.Ptr(f1ap.GnbCuUeF1apId(*m.GNBCUUEF1APID))
		}
		if m.GNBDUUEF1APID != nil {
			ind.GnbDuUeF1apId = f1ap.Ptr(f1ap.GnbDuUeF1apId(*m.GNBDUUEF1APID))
		}
		if m.Cause != nil {
			ind.Cause = f1ap.Ptr(decodeCause(*m.Cause))
		}
		return ind, nil
	case *ies.F1SetupResponse:
		resp := &f1ap.F1SetupResponse{
			TransactionId: uint8(m.TransactionID),
			GnbCuName:     string(m.GNBCUName),
		}
		for _, c := range m.CellstobeActivatedList {
			nrcgi, err := decodeNrcgi(c.NRCGI)
			if err != nil {
				return nil, fmt.Errorf("F1 Setup Response: %w", err)
			}
			resp.CellsToActivate = append(resp.CellsToActivate, nrcgi)
		}
		return resp, nil
	case *ies.F1SetupFailure:
		return &f1ap.F1SetupFailure{
			TransactionId: uint8(m.TransactionID),
			Cause:         decodeCause(m.Cause),
		}, nil
	}
	return nil, fmt.Errorf("procedure code %d, %T: %w", pdu.Message.ProcedureCode.Value, pdu.Message.Msg, ErrUnsupported)
}

func decodeUeContextSetupRequest(m *ies.UEContextSetupRequest) (*f1ap.UeContextSetupRequest, error) {
	spCell, err := decodeNrcgi(m.SpCellID)
	if err != nil {
		return nil, fmt.Errorf("UE Context Setup Request: %w", err)
	}
	req := &f1ap.UeContextSetupRequest{
		GnbCuUeF1apId: f1ap.GnbCuUeF1apId(m.GNBCUUEF1APID),
		SpCellId:      spCell,
		RrcContainer:  m.RRCContainer,
	}
	if m.GNBDUUEF1APID != nil {
		req.GnbDuUeF1apId = f1ap.Ptr(f1ap.GnbDuUeF1apId(*m.GNBDUUEF1APID))
	}
	if m.CUtoDURRCInformation != nil {
		req.CuToDuRrcInfo = m.CUtoDURRCInformation.CGConfigInfo
	}
	for _, s := range m.SRBsToBeSetupList {
		req.SrbsToSetup = append(req.SrbsToSetup, f1ap.SrbToSetup{SrbId: f1ap.SrbId(s.SRBID)})
	}
	for _, d := range m.DRBsToBeSetupList {
		req.DrbsToSetup = append(req.DrbsToSetup, f1ap.DrbToSetup{DrbId: f1ap.DrbId(d.DRBID)})
	}
	return req, nil
}

func decodeNrcgi(n ies.NRCGI) (f1ap.Nrcgi, error) {
	plmn, err := utils.PlmnFromOctets(n.PLMNIdentity)
	if err != nil {
		return f1ap.Nrcgi{}, err
	}
	if len(n.NRCellIdentity.Bytes) == 0 {
		return f1ap.Nrcgi{}, fmt.Errorf("NR cell identity is empty")
	}
	bs := n.NRCellIdentity
	return f1ap.Nrcgi{Plmn: plmn, NrCellId: utils.BitStringToUint64(&bs)}, nil
}

func encodeNrcgi(n f1ap.Nrcgi) ies.NRCGI {
	plmn, nci := utils.NrcgiToBytes(n)
	return ies.NRCGI{PLMNIdentity: plmn, NRCellIdentity: nci}
}

func decodeCause(c ies.Cause) f1ap.Cause {
	switch {
	case c.Choice == causeRadioNetworkChoice && c.RadioNetwork != nil:
		return f1ap.RadioNetworkCause(f1ap.CauseRadioNetwork(c.RadioNetwork.Value))
	case c.Choice == causeTransportChoice && c.Transport != nil:
		return f1ap.TransportCause(f1ap.CauseTransport(c.Transport.Value))
	case c.Choice == causeProtocolChoice && c.Protocol != nil:
		return f1ap.ProtocolCause(f1ap.CauseProtocol(c.Protocol.Value))
	case c.Choice == causeMiscChoice && c.Misc != nil:
		return f1ap.MiscCause(f1ap.CauseMisc(c.Misc.Value))
	}
	return f1ap.MiscCause(f1ap.CauseMiscUnspecified)
}

func encodeCause(c f1ap.Cause) ies.Cause {
	v := aper.Enumerated(c.Value)
	switch c.Group {
	case f1ap.CauseGroupRadioNetwork:
		return ies.Cause{Choice: causeRadioNetworkChoice, RadioNetwork: &ies.CauseRadioNetwork{Value: v}}
	case f1ap.CauseGroupTransport:
		return ies.Cause{Choice: causeTransportChoice, Transport: &ies.CauseTransport{Value: v}}
	case f1ap.CauseGroupProtocol:
		return ies.Cause{Choice: causeProtocolChoice, Protocol: &ies.CauseProtocol{Value: v}}
	case f1ap.CauseGroupMisc:
		return ies.Cause{Choice: causeMiscChoice, Misc: &ies.CauseMisc{Value: v}}
	}
	return ies.Cause{Choice: causeMiscChoice, Misc: &ies.CauseMisc{Value: aper.Enumerated(f1ap.CauseMiscUnspecified)}}
}

// Encode turns a message for the CU into an F1AP PDU.
func Encode(msg f1ap.Message) ([]byte, error) {
	var (
		b   []byte
		err error
	)
	switch m := msg.(type) {
	case *f1ap.InitialUlRrcMessageTransfer:
		container := m.DuToCuRrcContainer
		if len(container) == 0 {
			if container, err = DefaultCellGroupConfig(); err != nil {
				return nil, err
			}
		}
		b, err = f1gen.F1apEncode(&ies.InitialULRRCMessageTransfer{
			GNBDUUEF1APID:      int64(m.GnbDuUeF1apId),
			NRCGI:              encodeNrcgi(m.Nrcgi),
			CRNTI:              int64(m.CRnti),
			RRCContainer:       m.RrcContainer,
			DUtoCURRCContainer: container,
		})
	case *f1ap.UlRrcMessageTransfer:
		b, err = f1gen.F1apEncode(&ies.ULRRCMessageTransfer{
			GNBCUUEF1APID: int64(m.GnbCuUeF1apId),
			GNBDUUEF1APID: int64(m.GnbDuUeF1apId),
			SRBID:         int64(m.SrbId),
			RRCContainer:  m.RrcContainer,
		})
	case *f1ap.UeContextSetupResponse:
		b, err = f1gen.F1apEncode(&ies.UEContextSetupResponse{
			GNBCUUEF1APID: int64(m.GnbCuUeF1apId),
			GNBDUUEF1APID: int64(m.GnbDuUeF1apId),
		})
	case *f1ap.UeContextSetupFailure:
		fail := &ies.UEContextSetupFailure{
			GNBCUUEF1APID: int64(m.GnbCuUeF1apId),
			Cause:         encodeCause(m.Cause),
		}
		if m.GnbDuUeF1apId != nil {
			fail.GNBDUUEF1APID = f1ap.Ptr(int64(*m.GnbDuUeF1apId))
		}
		b, err = f1gen.F1apEncode(fail)
	case *f1ap.UeContextReleaseComplete:
		b, err = f1gen.F1apEncode(&ies.UEContextReleaseComplete{
			GNBCUUEF1APID: int64(m.GnbCuUeF1apId),
			GNBDUUEF1APID: int64(m.GnbDuUeF1apId),
		})
	case *f1ap.ErrorIndication:
		ind := &ies.ErrorIndication{TransactionID: int64(m.TransactionId)}
		if m.GnbCuUeF1apId != nil {
			ind.GNBCUUEF1APID = f1ap.Ptr(int64(*m.GnbCuUeF1apId))
		}
		if m.GnbDuUeF1apId != nil {
			ind.GNBDUUEF1APID = f1ap.Ptr(int64(*m.GnbDuUeF1apId))
		}
		if m.Cause != nil {
			ind.Cause = f1ap.Ptr(encodeCause(*m.Cause))
		}
		b, err = f1gen.F1apEncode(ind)
	case *f1ap.F1SetupRequest:
		b, err = f1gen.F1apEncode(&ies.F1SetupRequest{
			TransactionID:   int64(m.TransactionId),
			GNBDUID:         int64(m.GnbDuId),
			GNBDUName:       []byte(m.GnbDuName),
			GNBDURRCVersion: ies.RRCVersion{LatestRRCVersion: latestRrcVersion},
		})
	default:
		return nil, fmt.Errorf("%s: %w", msg.Name(), ErrUnsupported)
	}

	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Name(), err)
	}
	return b, nil
}

// DefaultCellGroupConfig is the DU to CU container sent when the DU manager
// gave none.
func DefaultCellGroupConfig() ([]byte, error) {
	cellGroupConfig := rrcies.CellGroupConfig{
		CellGroupId: rrcies.CellGroupId{Value: 0},
	}
	b, err := rrc.Encode(&cellGroupConfig)
	if err != nil {
		return nil, fmt.Errorf("encode CellGroupConfig: %w", err)
	}
	return b, nil
}

// streamOf picks the SCTP stream of a PDU: stream 0 carries non UE-associated
// signalling, UE-associated PDUs are spread over the others by DU id.
func streamOf(msg f1ap.Message, streams uint16) uint16 {
	if streams < 2 {
		return 0
	}
	var id f1ap.GnbDuUeF1apId
	switch m := msg.(type) {
	case *f1ap.InitialUlRrcMessageTransfer:
		id = m.GnbDuUeF1apId
	case *f1ap.UlRrcMessageTransfer:
		id = m.GnbDuUeF1apId
	case *f1ap.UeContextSetupResponse:
		id = m.GnbDuUeF1apId
	case *f1ap.UeContextModificationResponse:
		id = m.GnbDuUeF1apId
	case *f1ap.UeContextModificationFailure:
		id = m.GnbDuUeF1apId
	case *f1ap.UeContextReleaseComplete:
		id = m.GnbDuUeF1apId
	case *f1ap.UeContextReleaseRequest:
		id = m.GnbDuUeF1apId
	case *f1ap.RrcDeliveryReport:
		id = m.GnbDuUeF1apId
	default:
		return 0
	}
	return 1 + uint16(uint32(id)%uint32(streams-1))
}
