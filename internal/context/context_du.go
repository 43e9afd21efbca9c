package context

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"distributed-unit/internal/common/fsm"
	"distributed-unit/internal/common/logger"
	"distributed-unit/internal/context/bearer"
	"distributed-unit/internal/context/uecontext"
	"distributed-unit/internal/metrics"
	"distributed-unit/internal/timer"
	"distributed-unit/pkg/f1ap"
	"distributed-unit/pkg/model"

	"github.com/alitto/pond/v2"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultReleaseTimeout        = time.Second
	defaultReestablishmentWindow = 5 * time.Second
	defaultProcedureTimeout      = 2 * time.Second
)

type Config struct {
	GnbDuId               uint64
	Cells                 map[f1ap.CellIndex]f1ap.Nrcgi
	MaxUes                int
	ReleaseTimeout        time.Duration
	ReestablishmentWindow time.Duration
	ProcedureTimeout      time.Duration
}

type Options struct {
	Config   Config
	Manager  DuManager
	Notifier F1apNotifier
	Rlc      RlcGateway
	Timers   *timer.Manager
	Pool     pond.Pool
	Metrics  *metrics.Metrics
	Logger   *logger.Logger
}

// DuContext is the F1AP-DU engine: the UE context table, the per-UE
// procedures and the routing of UE-associated PDUs.
type DuContext struct {
	*logger.Logger
	cfg       Config
	ues       *UeTable
	manager   DuManager
	notifier  F1apNotifier
	rlc       RlcGateway
	timers    *timer.Manager
	pool      pond.Pool
	ownPool   bool
	metrics   *metrics.Metrics
	lifecycle *fsm.Fsm

	// DU id of recently released contexts, kept for the reestablishment
	// window
	released *cache.Cache

	Ctx    context.Context
	cancel context.CancelFunc
}

func NewDuContext(opts Options) (*DuContext, error) {
	if opts.Manager == nil || opts.Notifier == nil || opts.Rlc == nil {
		return nil, fmt.Errorf("DU context needs a DU manager, an F1AP notifier and an RLC gateway")
	}
	cfg := opts.Config
	if cfg.ReleaseTimeout <= 0 {
		cfg.ReleaseTimeout = defaultReleaseTimeout
	}
	if cfg.ReestablishmentWindow <= 0 {
		cfg.ReestablishmentWindow = defaultReestablishmentWindow
	}
	if cfg.ProcedureTimeout <= 0 {
		cfg.ProcedureTimeout = defaultProcedureTimeout
	}

	du := &DuContext{
		Logger:   opts.Logger,
		cfg:      cfg,
		ues:      NewUeTable(cfg.MaxUes),
		manager:  opts.Manager,
		notifier: opts.Notifier,
		rlc:      opts.Rlc,
		timers:   opts.Timers,
		pool:     opts.Pool,
		metrics:  opts.Metrics,
		released: cache.New(cfg.ReestablishmentWindow, 2*cfg.ReestablishmentWindow),
	}
	if du.Logger == nil {
		du.Logger = logger.InitLogger("", map[string]string{"mod": "du"})
	}
	if du.timers == nil {
		du.timers = timer.NewManager()
	}
	if du.pool == nil {
		du.pool = pond.NewPool(64)
		du.ownPool = true
	}
	if du.metrics == nil {
		du.metrics = metrics.New(prometheus.NewRegistry())
	}
	du.lifecycle = uecontext.NewLifecycle()
	du.Ctx, du.cancel = context.WithCancel(context.Background())
	return du, nil
}

// Timers is the facility every UE timer is created on.
func (du *DuContext) Timers() *timer.Manager { return du.timers }

func (du *DuContext) UeCount() int { return du.ues.Len() }

// UeState returns the lifecycle state of a live UE.
func (du *DuContext) UeState(idx f1ap.DuUeIndex) (model.StateType, bool) {
	ue := du.ues.FindByIndex(idx)
	if ue == nil {
		return "", false
	}
	return ue.CurrentState(), true
}

// UeInfo is a snapshot of one live context.
type UeInfo struct {
	Index  f1ap.DuUeIndex      `json:"ue_index"`
	DuUeId f1ap.GnbDuUeF1apId  `json:"gnb_du_ue_f1ap_id"`
	CuUeId *f1ap.GnbCuUeF1apId `json:"gnb_cu_ue_f1ap_id,omitempty"`
	CRnti  f1ap.Rnti           `json:"c_rnti"`
	PCell  f1ap.CellIndex      `json:"pcell_index"`
	State  model.StateType     `json:"state"`
	Srbs   []f1ap.SrbId        `json:"srbs"`
}

func (du *DuContext) Ues() []UeInfo {
	all := du.ues.All()
	infos := make([]UeInfo, 0, len(all))
	for _, ue := range all {
		info := UeInfo{
			Index:  ue.Index,
			DuUeId: ue.DuUeId,
			CRnti:  ue.CRnti,
			PCell:  ue.PCellIndex,
			State:  ue.CurrentState(),
			Srbs:   ue.SrbIds(),
		}
		if cu, ok := ue.CuUeId(); ok {
			info.CuUeId = &cu
		}
		infos = append(infos, info)
	}
	return infos
}

// Srb returns the relay of a UE bearer, for the RLC receive path.
func (du *DuContext) Srb(idx f1ap.DuUeIndex, srb f1ap.SrbId) (*bearer.SrbRelay, bool) {
	ue := du.ues.FindByIndex(idx)
	if ue == nil {
		return nil, false
	}
	s := ue.Srb(srb)
	return s, s != nil
}

// Terminate tears every UE down without signalling and stops the engine.
func (du *DuContext) Terminate() {
	du.cancel()
	for _, ue := range du.ues.All() {
		<-du.RemoveUe(ue.Index)
	}
	if du.ownPool {
		du.pool.StopAndWait()
	}
	du.Info("F1AP-DU terminated")
}

func (du *DuContext) newUe(idx f1ap.DuUeIndex, duUeId f1ap.GnbDuUeF1apId, pcell f1ap.CellIndex, crnti f1ap.Rnti) *uecontext.UeContext {
	ue := uecontext.New(uecontext.Options{
		Index:      idx,
		DuUeId:     duUeId,
		PCellIndex: pcell,
		CRnti:      crnti,
		Pool:       du.pool,
		Timers:     du.timers,
		Lifecycle:  du.lifecycle,
		Logger:     du.Logger,
	})
	du.addSrb(ue, f1ap.Srb0)
	du.addSrb(ue, f1ap.Srb1)
	return ue
}

func (du *DuContext) addSrb(ue *uecontext.UeContext, id f1ap.SrbId) {
	if ue.Srb(id) != nil {
		return
	}
	ue.AddSrb(bearer.NewSrbRelay(bearer.Config{
		SrbId:    id,
		Executor: ue.Strand,
		Tx:       &rlcTx{rlc: du.rlc, ue: ue.Index, srb: id},
		Uplink:   &ueUplink{du: du, ue: ue},
		Logger:   ue.Logger,
	}))
}

// post runs fn on the UE strand unless the context is released by then.
func (du *DuContext) post(ue *uecontext.UeContext, fn func()) bool {
	return ue.Strand.Post(func() {
		if ue.Released() {
			return
		}
		fn()
	})
}

func (du *DuContext) send(msg f1ap.Message) {
	if err := du.notifier.SendF1ap(msg); err != nil {
		du.Error("Failed to send %s: %v", msg.Name(), err)
		return
	}
	du.metrics.F1apTx.WithLabelValues(msg.Name()).Inc()
}

// procedureContext bounds a wait on the DU manager.
func (du *DuContext) procedureContext(ue *uecontext.UeContext) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ue.Ctx, du.cfg.ProcedureTimeout)
}

// removeUe drops a released context from the table and frees it. Must run on
// the UE strand.
func (du *DuContext) removeUe(ue *uecontext.UeContext) {
	du.ues.Remove(ue)
	du.released.Set(releasedKey(ue.DuUeId), ue.Index, cache.DefaultExpiration)
	ue.Close()
	du.metrics.UeContexts.Set(float64(du.ues.Len()))
	ue.Info("UE context removed")
}

// recentlyReleased looks up the UE index a released DU id belonged to.
func (du *DuContext) recentlyReleased(id f1ap.GnbDuUeF1apId) (f1ap.DuUeIndex, bool) {
	v, ok := du.released.Get(releasedKey(id))
	if !ok {
		return f1ap.InvalidDuUeIndex, false
	}
	return v.(f1ap.DuUeIndex), true
}

func releasedKey(id f1ap.GnbDuUeF1apId) string {
	return strconv.FormatUint(uint64(id), 10)
}

type rlcTx struct {
	rlc RlcGateway
	ue  f1ap.DuUeIndex
	srb f1ap.SrbId
}

func (r *rlcTx) OnNewSdu(sdu []byte) {
	r.rlc.OnNewSdu(r.ue, r.srb, sdu)
}
