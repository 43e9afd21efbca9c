package uecontext

import (
	"context"
	"sync"

	"distributed-unit/internal/common/fsm"
	"distributed-unit/internal/common/logger"
	"distributed-unit/internal/common/task"
	"distributed-unit/internal/context/bearer"
	"distributed-unit/internal/timer"
	"distributed-unit/pkg/f1ap"
	"distributed-unit/pkg/model"

	"github.com/alitto/pond/v2"
)

type Drb struct {
	DrbId     f1ap.DrbId
	UlTunnels [][]byte
}

type Options struct {
	Index      f1ap.DuUeIndex
	DuUeId     f1ap.GnbDuUeF1apId
	PCellIndex f1ap.CellIndex
	CRnti      f1ap.Rnti
	Pool       pond.Pool
	Timers     *timer.Manager
	Lifecycle  *fsm.Fsm
	Logger     *logger.Logger
}

// UeContext is the F1AP view of one UE. Fields without a note are owned by
// the UE strand.
type UeContext struct {
	*logger.Logger
	Index      f1ap.DuUeIndex
	DuUeId     f1ap.GnbDuUeF1apId
	PCellIndex f1ap.CellIndex
	CRnti      f1ap.Rnti

	State      *fsm.State
	Strand     *task.Strand
	Procedures *task.Queue
	Ctx        context.Context

	ReleaseTimer         *timer.UniqueTimer
	ReestablishmentTimer *timer.UniqueTimer

	// ReestablishedFrom is set once the DU manager was told which UE this
	// one reestablishes.
	ReestablishedFrom *f1ap.DuUeIndex
	// ConfigPending is set while an RRC reconfiguration waits for the UE's
	// first UL message on SRB1.
	ConfigPending    bool
	ReleaseRequested bool
	RemovalRequested bool
	Drbs             map[f1ap.DrbId]*Drb

	lifecycle *fsm.Fsm
	cancel    context.CancelFunc

	mu          sync.RWMutex // guards the fields below
	cuUeId      f1ap.GnbCuUeF1apId
	cuUeIdKnown bool
	srbs        map[f1ap.SrbId]*bearer.SrbRelay
}

func New(opts Options) *UeContext {
	if opts.Logger == nil {
		opts.Logger = logger.InitLogger("", map[string]string{"mod": "ue"})
	}
	ctx, cancel := context.WithCancel(context.Background())
	strand := task.NewStrand(opts.Pool)
	ue := &UeContext{
		Logger:     opts.Logger.With("ue_index", opts.Index).With("du_ue_id", opts.DuUeId),
		Index:      opts.Index,
		DuUeId:     opts.DuUeId,
		PCellIndex: opts.PCellIndex,
		CRnti:      opts.CRnti,
		Strand:     strand,
		Procedures: task.NewQueue(strand),
		Ctx:        ctx,
		Drbs:       make(map[f1ap.DrbId]*Drb),
		lifecycle:  opts.Lifecycle,
		cancel:     cancel,
		srbs:       make(map[f1ap.SrbId]*bearer.SrbRelay),
	}
	ue.State = fsm.NewState(model.UeCreated, ue)
	ue.ReleaseTimer = opts.Timers.CreateTimer(strand)
	ue.ReestablishmentTimer = opts.Timers.CreateTimer(strand)
	return ue
}

func (ue *UeContext) CuUeId() (f1ap.GnbCuUeF1apId, bool) {
	ue.mu.RLock()
	defer ue.mu.RUnlock()
	return ue.cuUeId, ue.cuUeIdKnown
}

// SetCuUeId records the CU id. The UE table calls it while holding its own
// lock so that the CU index and the context agree.
func (ue *UeContext) SetCuUeId(id f1ap.GnbCuUeF1apId) {
	ue.mu.Lock()
	ue.cuUeId = id
	ue.cuUeIdKnown = true
	ue.mu.Unlock()
}

func (ue *UeContext) AddSrb(srb *bearer.SrbRelay) {
	ue.mu.Lock()
	ue.srbs[srb.SrbId()] = srb
	ue.mu.Unlock()
}

func (ue *UeContext) Srb(id f1ap.SrbId) *bearer.SrbRelay {
	ue.mu.RLock()
	defer ue.mu.RUnlock()
	return ue.srbs[id]
}

func (ue *UeContext) SrbIds() []f1ap.SrbId {
	ue.mu.RLock()
	defer ue.mu.RUnlock()
	ids := make([]f1ap.SrbId, 0, len(ue.srbs))
	for id := range ue.srbs {
		ids = append(ids, id)
	}
	return ids
}

// Send feeds a lifecycle event. Must run on the UE strand.
func (ue *UeContext) Send(ev model.EventType) error {
	return ue.lifecycle.SyncSendEvent(ue.State, fsm.NewEmptyEventData(ev))
}

// SendCause is Send with the F1AP cause that triggered the event.
func (ue *UeContext) SendCause(ev model.EventType, cause f1ap.Cause) error {
	return ue.lifecycle.SyncSendEvent(ue.State, fsm.NewEventData(ev, &cause))
}

// Accepts reports whether the lifecycle takes ev in the current state.
func (ue *UeContext) Accepts(ev model.EventType) bool {
	return ue.lifecycle.Can(ue.State, ev)
}

func (ue *UeContext) CurrentState() model.StateType {
	return ue.State.CurrentState()
}

func (ue *UeContext) Released() bool {
	return ue.State.CurrentState() == model.UeReleased
}

// Close releases every resource of a released context: timers, bearers and
// pending procedures. Must run on the UE strand.
func (ue *UeContext) Close() {
	ue.cancel()
	ue.ReleaseTimer.Stop()
	ue.ReestablishmentTimer.Stop()
	ue.Procedures.Clear()

	ue.mu.Lock()
	srbs := ue.srbs
	ue.srbs = make(map[f1ap.SrbId]*bearer.SrbRelay)
	ue.mu.Unlock()
	for _, srb := range srbs {
		srb.Close()
	}
	ue.Strand.Close()
}
