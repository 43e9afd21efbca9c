package context

import (
	"sync"
	"testing"
	"time"

	"distributed-unit/internal/metrics"
	"distributed-unit/internal/timer"
	"distributed-unit/pkg/f1ap"

	"github.com/alitto/pond/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

var testCell = f1ap.Nrcgi{Plmn: f1ap.Plmn{Mcc: "001", Mnc: "01"}, NrCellId: 0x66c000}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []f1ap.Message
}

func (f *fakeNotifier) SendF1ap(msg f1ap.Message) error {
	f.mu.Lock()
	f.msgs = append(f.msgs, msg)
	f.mu.Unlock()
	return nil
}

func sent[T f1ap.Message](f *fakeNotifier) []T {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []T
	for _, m := range f.msgs {
		if v, ok := m.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// waitSent waits until at least n messages of type T were sent.
func waitSent[T f1ap.Message](t *testing.T, f *fakeNotifier, n int) []T {
	t.Helper()
	require.Eventually(t, func() bool { return len(sent[T](f)) >= n }, waitFor, time.Millisecond,
		"waiting for %d %T", n, *new(T))
	return sent[T](f)
}

type rlcSdu struct {
	ue  f1ap.DuUeIndex
	srb f1ap.SrbId
	sdu []byte
}

type fakeRlc struct {
	mu   sync.Mutex
	sdus []rlcSdu
}

func (f *fakeRlc) OnNewSdu(ue f1ap.DuUeIndex, srb f1ap.SrbId, sdu []byte) {
	f.mu.Lock()
	f.sdus = append(f.sdus, rlcSdu{ue, srb, sdu})
	f.mu.Unlock()
}

func (f *fakeRlc) all() []rlcSdu {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]rlcSdu(nil), f.sdus...)
}

func (f *fakeRlc) wait(t *testing.T, n int) []rlcSdu {
	t.Helper()
	require.Eventually(t, func() bool { return len(f.all()) >= n }, waitFor, time.Millisecond)
	return f.all()
}

type managerCalls struct {
	creations        []UeCreationRequest
	updates          []UeContextUpdateRequest
	removals         []f1ap.DuUeIndex
	reestablishments [][2]f1ap.DuUeIndex
	configApplied    []f1ap.DuUeIndex
}

type fakeManager struct {
	mu sync.Mutex
	managerCalls

	creationResp *UeCreationResponse
	updateResp   *UeContextUpdateResponse
	// updateGate delays every update response until a value is received
	updateGate  chan struct{}
	holdRemoval bool
}

func (m *fakeManager) RequestUeCreation(req UeCreationRequest) <-chan UeCreationResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creations = append(m.creations, req)
	resp := UeCreationResponse{Created: true, CRnti: 0x4601}
	if m.creationResp != nil {
		resp = *m.creationResp
	}
	ch := make(chan UeCreationResponse, 1)
	ch <- resp
	return ch
}

func (m *fakeManager) RequestUeContextUpdate(req UeContextUpdateRequest) <-chan UeContextUpdateResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, req)
	resp := UeContextUpdateResponse{Result: true, DuToCuRrcInfo: []byte{0xca, 0xfe}}
	for _, d := range req.DrbsToSetup {
		resp.DrbsSetup = append(resp.DrbsSetup, f1ap.DrbSetup{DrbId: d.DrbId})
	}
	if m.updateResp != nil {
		resp = *m.updateResp
	}
	ch := make(chan UeContextUpdateResponse, 1)
	if gate := m.updateGate; gate != nil {
		go func() {
			<-gate
			ch <- resp
		}()
	} else {
		ch <- resp
	}
	return ch
}

func (m *fakeManager) RequestUeRemoval(req UeRemovalRequest) <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removals = append(m.removals, req.UeIndex)
	ch := make(chan struct{}, 1)
	if !m.holdRemoval {
		ch <- struct{}{}
	}
	return ch
}

func (m *fakeManager) NotifyReestablishment(newUe, oldUe f1ap.DuUeIndex) {
	m.mu.Lock()
	m.reestablishments = append(m.reestablishments, [2]f1ap.DuUeIndex{newUe, oldUe})
	m.mu.Unlock()
}

func (m *fakeManager) OnUeConfigApplied(ue f1ap.DuUeIndex) {
	m.mu.Lock()
	m.configApplied = append(m.configApplied, ue)
	m.mu.Unlock()
}

func (m *fakeManager) snapshot() managerCalls {
	m.mu.Lock()
	defer m.mu.Unlock()
	return managerCalls{
		creations:        append([]UeCreationRequest(nil), m.creations...),
		updates:          append([]UeContextUpdateRequest(nil), m.updates...),
		removals:         append([]f1ap.DuUeIndex(nil), m.removals...),
		reestablishments: append([][2]f1ap.DuUeIndex(nil), m.reestablishments...),
		configApplied:    append([]f1ap.DuUeIndex(nil), m.configApplied...),
	}
}

type testDu struct {
	*DuContext
	manager  *fakeManager
	notifier *fakeNotifier
	rlc      *fakeRlc
	timers   *timer.Manager
	metrics  *metrics.Metrics
	now      uint64
}

func newTestDu(t *testing.T, mutate ...func(*Config, *fakeManager)) *testDu {
	t.Helper()
	cfg := Config{
		Cells:                 map[f1ap.CellIndex]f1ap.Nrcgi{0: testCell},
		MaxUes:                16,
		ReleaseTimeout:        10 * time.Millisecond,
		ReestablishmentWindow: 20 * time.Millisecond,
		ProcedureTimeout:      time.Second,
	}
	mgr := &fakeManager{}
	for _, m := range mutate {
		m(&cfg, mgr)
	}

	pool := pond.NewPool(8)
	td := &testDu{
		manager:  mgr,
		notifier: &fakeNotifier{},
		rlc:      &fakeRlc{},
		timers:   timer.NewManager(),
		metrics:  metrics.New(prometheus.NewRegistry()),
	}
	du, err := NewDuContext(Options{
		Config:   cfg,
		Manager:  mgr,
		Notifier: td.notifier,
		Rlc:      td.rlc,
		Timers:   td.timers,
		Pool:     pool,
		Metrics:  td.metrics,
	})
	require.NoError(t, err)
	td.DuContext = du
	t.Cleanup(func() {
		du.Terminate()
		pool.StopAndWait()
	})
	return td
}

// advance delivers n more ticks to the timer facility.
func (td *testDu) advance(n int) {
	for i := 0; i < n; i++ {
		td.now++
		td.timers.Tick(td.now)
	}
}

func pdcpPdu(sn uint16, payload ...byte) []byte {
	return append([]byte{byte(sn>>8) & 0x0f, byte(sn)}, payload...)
}
