package cu

import (
	"context"
	"sync"
	"testing"
	"time"

	"distributed-unit/internal/common/utils"
	"distributed-unit/pkg/f1ap"

	f1gen "github.com/JocelynWS/f1-gen"
	"github.com/JocelynWS/f1-gen/ies"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCell = f1ap.Nrcgi{Plmn: f1ap.Plmn{Mcc: "208", Mnc: "93"}, NrCellId: 0x66c000}

type sentPdu struct {
	data   []byte
	stream uint16
}

type fakeTransport struct {
	mu   sync.Mutex
	pdus []sentPdu
	rx   chan []byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{rx: make(chan []byte, 16)}
}

func (f *fakeTransport) Send(data []byte, stream uint16) error {
	f.mu.Lock()
	f.pdus = append(f.pdus, sentPdu{data, stream})
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Read() <-chan []byte { return f.rx }
func (f *fakeTransport) Streams() uint16     { return 4 }

func (f *fakeTransport) sent() []sentPdu {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentPdu(nil), f.pdus...)
}

type collector struct {
	mu   sync.Mutex
	msgs []f1ap.Message
}

func (c *collector) HandleMessage(msg f1ap.Message) error {
	c.mu.Lock()
	c.msgs = append(c.msgs, msg)
	c.mu.Unlock()
	return nil
}

func (c *collector) all() []f1ap.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]f1ap.Message(nil), c.msgs...)
}

func newTestCu(t *testing.T) (*GNBCU, *fakeTransport, *clockwork.FakeClock) {
	t.Helper()
	tr := newFakeTransport()
	fc := clockwork.NewFakeClock()
	cu, err := New(Options{
		GnbDuId:    1,
		GnbDuName:  "du-test",
		Tnla:       tr,
		Clock:      fc,
		SetupRetry: time.Second,
	})
	require.NoError(t, err)
	return cu, tr, fc
}

func encodeSetupResponse(t *testing.T, transactionId int64) []byte {
	t.Helper()
	b, err := f1gen.F1apEncode(&ies.F1SetupResponse{
		TransactionID: transactionId,
		GNBCURRCVersion: ies.RRCVersion{
			LatestRRCVersion: latestRrcVersion,
		},
		CellstobeActivatedList: []ies.CellstobeActivatedListItem{{
			NRCGI: encodeNrcgi(testCell),
			NRPCI: &ies.NRPCI{Value: 1},
		}},
		GNBCUName: []byte("CU-CP"),
	})
	require.NoError(t, err)
	return b
}

func TestF1Setup(t *testing.T) {
	cu, tr, _ := newTestCu(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cu.Run(ctx, &collector{})

	done := make(chan error, 1)
	go func() { done <- cu.Setup(ctx) }()

	require.Eventually(t, func() bool { return len(tr.sent()) == 1 }, time.Second, time.Millisecond)
	pdu := tr.sent()[0]
	assert.Equal(t, uint16(0), pdu.stream)

	decoded, err, _ := f1gen.F1apDecode(pdu.data)
	require.NoError(t, err)
	req, ok := decoded.Message.Msg.(*ies.F1SetupRequest)
	require.True(t, ok)
	assert.Equal(t, int64(1), req.GNBDUID)
	assert.Equal(t, "du-test", string(req.GNBDUName))
	assert.Equal(t, CU_SETUP_PENDING, cu.State())

	tr.rx <- encodeSetupResponse(t, req.TransactionID)
	require.NoError(t, <-done)
	assert.True(t, cu.IsActive())
	assert.Equal(t, "CU-CP", cu.Name())
	assert.Equal(t, []f1ap.Nrcgi{testCell}, cu.CellsToActivate())
}

func TestF1SetupRetries(t *testing.T) {
	cu, tr, fc := newTestCu(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cu.Run(ctx, &collector{})

	done := make(chan error, 1)
	go func() { done <- cu.Setup(ctx) }()
	require.Eventually(t, func() bool { return len(tr.sent()) == 1 }, time.Second, time.Millisecond)

	// rejected, then unanswered
	fail, err := f1gen.F1apEncode(&ies.F1SetupFailure{
		TransactionID: 1,
		Cause:         ies.Cause{Choice: causeMiscChoice, Misc: &ies.CauseMisc{Value: 0}},
	})
	require.NoError(t, err)
	tr.rx <- fail

	require.Eventually(t, func() bool {
		fc.Advance(time.Second)
		return len(tr.sent()) >= 3
	}, time.Second, time.Millisecond)
	assert.False(t, cu.IsActive())

	tr.rx <- encodeSetupResponse(t, 3)
	require.NoError(t, <-done)
	assert.True(t, cu.IsActive())
}

func TestF1SetupCancelled(t *testing.T) {
	cu, tr, _ := newTestCu(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- cu.Setup(ctx) }()
	require.Eventually(t, func() bool { return len(tr.sent()) == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, CU_DISCONNECTED, cu.State())
}

func TestRunDispatchesDlRrcMessage(t *testing.T) {
	cu, tr, _ := newTestCu(t)
	h := &collector{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- cu.Run(ctx, h) }()

	b, err := f1gen.F1apEncode(&ies.DLRRCMessageTransfer{
		GNBCUUEF1APID:        5,
		GNBDUUEF1APID:        7,
		SRBID:                1,
		RRCContainer:         []byte{0x00, 0x03, 0x21},
		ExecuteDuplication:   &ies.ExecuteDuplication{Value: 0},
		RedirectedRRCmessage: []byte{0},
	})
	require.NoError(t, err)
	tr.rx <- b
	tr.rx <- []byte{0xff, 0xff}

	require.Eventually(t, func() bool { return len(h.all()) == 1 }, time.Second, time.Millisecond)
	dl, ok := h.all()[0].(*f1ap.DlRrcMessageTransfer)
	require.True(t, ok)
	assert.Equal(t, f1ap.GnbCuUeF1apId(5), dl.GnbCuUeF1apId)
	assert.Equal(t, f1ap.GnbDuUeF1apId(7), dl.GnbDuUeF1apId)
	assert.Equal(t, f1ap.Srb1, dl.SrbId)
	assert.Equal(t, []byte{0x00, 0x03, 0x21}, dl.RrcContainer)

	close(tr.rx)
	assert.ErrorIs(t, <-runErr, ErrAssociationLost)
	assert.Equal(t, CU_DISCONNECTED, cu.State())
}

func TestSendF1apStreams(t *testing.T) {
	cu, tr, _ := newTestCu(t)

	require.NoError(t, cu.SendF1ap(&f1ap.UlRrcMessageTransfer{
		GnbCuUeF1apId: 5, GnbDuUeF1apId: 4, SrbId: f1ap.Srb1, RrcContainer: []byte{0x01},
	}))
	require.NoError(t, cu.SendF1ap(&f1ap.InitialUlRrcMessageTransfer{
		GnbDuUeF1apId: 2, Nrcgi: testCell, CRnti: 0x4601, RrcContainer: []byte{0x1d},
	}))
	err := cu.SendF1ap(&f1ap.ResetAcknowledge{})
	assert.ErrorIs(t, err, ErrUnsupported)

	pdus := tr.sent()
	require.Len(t, pdus, 2)
	assert.Equal(t, uint16(1+4%3), pdus[0].stream)
	assert.Equal(t, uint16(1+2%3), pdus[1].stream)
}

func TestEncodeInitialUlRrcMessage(t *testing.T) {
	b, err := Encode(&f1ap.InitialUlRrcMessageTransfer{
		GnbDuUeF1apId: 3,
		Nrcgi:         testCell,
		CRnti:         0x4601,
		RrcContainer:  []byte{0x1d, 0xec},
	})
	require.NoError(t, err)

	pdu, err, _ := f1gen.F1apDecode(b)
	require.NoError(t, err)
	msg, ok := pdu.Message.Msg.(*ies.InitialULRRCMessageTransfer)
	require.True(t, ok)
	assert.Equal(t, int64(3), msg.GNBDUUEF1APID)
	assert.Equal(t, int64(0x4601), msg.CRNTI)
	assert.Equal(t, []byte{0x1d, 0xec}, msg.RRCContainer)
	assert.NotEmpty(t, msg.DUtoCURRCContainer)
	assert.Equal(t, utils.PlmnToOctets(testCell.Plmn), []byte(msg.NRCGI.PLMNIdentity))

	nrcgi, err := decodeNrcgi(msg.NRCGI)
	require.NoError(t, err)
	assert.Equal(t, testCell, nrcgi)
}

func TestEncodeUlRrcMessage(t *testing.T) {
	b, err := Encode(&f1ap.UlRrcMessageTransfer{
		GnbCuUeF1apId: 9,
		GnbDuUeF1apId: 3,
		SrbId:         f1ap.Srb2,
		RrcContainer:  []byte{0x00, 0x07},
	})
	require.NoError(t, err)

	pdu, err, _ := f1gen.F1apDecode(b)
	require.NoError(t, err)
	msg, ok := pdu.Message.Msg.(*ies.ULRRCMessageTransfer)
	require.True(t, ok)
	assert.Equal(t, int64(9), msg.GNBCUUEF1APID)
	assert.Equal(t, int64(3), msg.GNBDUUEF1APID)
	assert.Equal(t, int64(2), msg.SRBID)
}

func TestDecodeUeContextSetupRequest(t *testing.T) {
	duUeId := int64(4)
	b, err := f1gen.F1apEncode(&ies.UEContextSetupRequest{
		GNBCUUEF1APID: 6,
		GNBDUUEF1APID: &duUeId,
		SpCellID:      encodeNrcgi(testCell),
		ServCellIndex: 0,
		CUtoDURRCInformation: &ies.CUtoDURRCInformation{
			CGConfigInfo: []byte{0x00},
		},
		SRBsToBeSetupList: []ies.SRBsToBeSetupItem{{SRBID: 2}},
		DRBsToBeSetupList: []ies.DRBsToBeSetupItem{{DRBID: 1}},
		NRUESidelinkAggregateMaximumBitrate: &ies.NRUESidelinkAggregateMaximumBitrate{
			UENRSidelinkAggregateMaximumBitrate: 1000000000,
		},
		ConditionalInterDUMobilityInformation: &ies.ConditionalInterDUMobilityInformation{
			CHOTrigger: ies.CHOTriggerInterDU{
				Value: ies.CHOtriggerInterDUChoinitiation,
			},
		},
	})
	require.NoError(t, err)

	msg, err := Decode(b)
	require.NoError(t, err)
	req, ok := msg.(*f1ap.UeContextSetupRequest)
	require.True(t, ok)
	assert.Equal(t, f1ap.GnbCuUeF1apId(6), req.GnbCuUeF1apId)
	require.NotNil(t, req.GnbDuUeF1apId)
	assert.Equal(t, f1ap.GnbDuUeF1apId(4), *req.GnbDuUeF1apId)
	assert.Equal(t, testCell, req.SpCellId)
	assert.Equal(t, []f1ap.SrbToSetup{{SrbId: f1ap.Srb2}}, req.SrbsToSetup)
	assert.Equal(t, []f1ap.DrbToSetup{{DrbId: 1}}, req.DrbsToSetup)
	assert.Equal(t, []byte{0x00}, req.CuToDuRrcInfo)
}

func TestDecodeUnsupported(t *testing.T) {
	b, err := Encode(&f1ap.F1SetupRequest{TransactionId: 1, GnbDuId: 1, GnbDuName: "du"})
	require.NoError(t, err)
	_, err = Decode(b)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestDecodeUeContextReleaseCommand(t *testing.T) {
	srb := int64(1)
	b, err := f1gen.F1apEncode(&ies.UEContextReleaseCommand{
		GNBCUUEF1APID: 6,
		GNBDUUEF1APID: 4,
		Cause:         encodeCause(f1ap.RadioNetworkCause(f1ap.CauseRadioNetworkNormalRelease)),
		RRCContainer:  []byte{0x20, 0x01},
		SRBID:         &srb,
	})
	require.NoError(t, err)

	msg, err := Decode(b)
	require.NoError(t, err)
	cmd, ok := msg.(*f1ap.UeContextReleaseCommand)
	require.True(t, ok)
	assert.Equal(t, f1ap.GnbCuUeF1apId(6), cmd.GnbCuUeF1apId)
	assert.Equal(t, f1ap.GnbDuUeF1apId(4), cmd.GnbDuUeF1apId)
	assert.Equal(t, f1ap.RadioNetworkCause(f1ap.CauseRadioNetworkNormalRelease), cmd.Cause)
	assert.Equal(t, []byte{0x20, 0x01}, cmd.RrcContainer)
	require.NotNil(t, cmd.SrbId)
	assert.Equal(t, f1ap.Srb1, *cmd.SrbId)
}

func TestEncodeUeContextReleaseComplete(t *testing.T) {
	b, err := Encode(&f1ap.UeContextReleaseComplete{GnbCuUeF1apId: 6, GnbDuUeF1apId: 4})
	require.NoError(t, err)

	pdu, err, _ := f1gen.F1apDecode(b)
	require.NoError(t, err)
	msg, ok := pdu.Message.Msg.(*ies.UEContextReleaseComplete)
	require.True(t, ok)
	assert.Equal(t, int64(6), msg.GNBCUUEF1APID)
	assert.Equal(t, int64(4), msg.GNBDUUEF1APID)
}

func TestErrorIndicationBothWays(t *testing.T) {
	cause := f1ap.RadioNetworkCause(f1ap.CauseRadioNetworkUnknownOrInconsistentPairOfUeF1apId)
	b, err := Encode(&f1ap.ErrorIndication{
		TransactionId: 3,
		GnbDuUeF1apId: f1ap.Ptr(f1ap.GnbDuUeF1apId(4)),
		GnbCuUeF1apId: f1ap.Ptr(f1ap.GnbCuUeF1apId(9)),
		Cause:         &cause,
	})
	require.NoError(t, err)

	msg, err := Decode(b)
	require.NoError(t, err)
	ind, ok := msg.(*f1ap.ErrorIndication)
	require.True(t, ok)
	assert.Equal(t, uint8(3), ind.TransactionId)
	require.NotNil(t, ind.GnbDuUeF1apId)
	assert.Equal(t, f1ap.GnbDuUeF1apId(4), *ind.GnbDuUeF1apId)
	require.NotNil(t, ind.GnbCuUeF1apId)
	assert.Equal(t, f1ap.GnbCuUeF1apId(9), *ind.GnbCuUeF1apId)
	require.NotNil(t, ind.Cause)
	assert.Equal(t, cause, *ind.Cause)
}

func TestCauseGroups(t *testing.T) {
	for _, c := range []f1ap.Cause{
		f1ap.RadioNetworkCause(f1ap.CauseRadioNetworkInteractionWithOtherProcedure),
		f1ap.TransportCause(f1ap.CauseTransportResourceUnavailable),
		f1ap.ProtocolCause(f1ap.CauseProtocolSemanticError),
		f1ap.MiscCause(f1ap.CauseMiscControlProcessingOverload),
	} {
		assert.Equal(t, c, decodeCause(encodeCause(c)), c.String())
	}
	assert.Equal(t, f1ap.MiscCause(f1ap.CauseMiscUnspecified), decodeCause(ies.Cause{Choice: causeMiscChoice}))
}

func TestEncodeUeContextSetupFailure(t *testing.T) {
	b, err := Encode(&f1ap.UeContextSetupFailure{
		GnbCuUeF1apId: 6,
		Cause:         f1ap.MiscCause(f1ap.CauseMiscControlProcessingOverload),
	})
	require.NoError(t, err)

	pdu, err, _ := f1gen.F1apDecode(b)
	require.NoError(t, err)
	msg, ok := pdu.Message.Msg.(*ies.UEContextSetupFailure)
	require.True(t, ok)
	assert.Equal(t, int64(6), msg.GNBCUUEF1APID)
	assert.Nil(t, msg.GNBDUUEF1APID)
	assert.Equal(t, f1ap.MiscCause(f1ap.CauseMiscControlProcessingOverload), decodeCause(msg.Cause))
}
