// Package clock provides the DU time base. It ticks once per millisecond,
// either from a free-running ticker while no cell is active or from the slot
// indications of the active cells.
package clock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"distributed-unit/internal/common/logger"
	"distributed-unit/internal/metrics"
	"distributed-unit/pkg/model"

	"github.com/jonboulle/clockwork"
)

// maxCatchUp bounds how many missed boundaries are replayed at once. Larger
// gaps resynchronize with a single tick.
const maxCatchUp = 100

var ErrCellExists = errors.New("cell time source already registered")

// Subscriber receives every tick in order.
type Subscriber interface {
	Tick(now uint64)
}

type Options struct {
	Clock      clockwork.Clock // defaults to the real clock
	Period     time.Duration   // free-running period, defaults to 1ms
	Subscriber Subscriber
	Metrics    *metrics.Metrics
	Logger     *logger.Logger
}

type Source struct {
	*logger.Logger
	clk     clockwork.Clock
	period  time.Duration
	sub     Subscriber
	metrics *metrics.Metrics

	tickMu       sync.Mutex
	now          atomic.Uint64
	lastBoundary atomic.Int64 // -1 until a cell ticks

	// modeMu is held shared while a cell ticks and exclusively while the mode
	// changes.
	modeMu     sync.RWMutex
	cells      map[uint16]*CellTimeSource
	active     int
	started    bool
	freeCancel context.CancelFunc
	freeDone   chan struct{}
}

func New(opts Options) *Source {
	s := &Source{
		Logger:  opts.Logger,
		clk:     opts.Clock,
		period:  opts.Period,
		sub:     opts.Subscriber,
		metrics: opts.Metrics,
		cells:   make(map[uint16]*CellTimeSource),
	}
	if s.Logger == nil {
		s.Logger = logger.InitLogger("", map[string]string{"mod": "clock"})
	}
	if s.clk == nil {
		s.clk = clockwork.NewRealClock()
	}
	if s.period <= 0 {
		s.period = time.Millisecond
	}
	s.lastBoundary.Store(-1)
	return s
}

// Start enables free-running mode while no cell is active.
func (s *Source) Start() {
	s.modeMu.Lock()
	defer s.modeMu.Unlock()
	s.started = true
	if s.active == 0 {
		s.startFreeRunning()
	}
}

// Stop halts the free-running ticker and waits for it to exit. Cells keep
// ticking if they keep reporting.
func (s *Source) Stop() {
	s.modeMu.Lock()
	defer s.modeMu.Unlock()
	s.started = false
	s.stopFreeRunning()
}

// Now is the last delivered tick.
func (s *Source) Now() uint64 {
	return s.now.Load()
}

func (s *Source) Mode() model.ClockMode {
	s.modeMu.RLock()
	defer s.modeMu.RUnlock()
	if s.active > 0 {
		return model.ClockSlotDriven
	}
	return model.ClockFreeRunning
}

// AddCell registers a cell. It does not drive the clock until its first
// slot indication.
func (s *Source) AddCell(index uint16, numerology uint8) (*CellTimeSource, error) {
	if numerology > maxNumerology {
		return nil, fmt.Errorf("cell %d: numerology %d out of range", index, numerology)
	}
	s.modeMu.Lock()
	defer s.modeMu.Unlock()
	if _, ok := s.cells[index]; ok {
		return nil, fmt.Errorf("cell %d: %w", index, ErrCellExists)
	}
	c := &CellTimeSource{src: s, index: index, numerology: numerology}
	s.cells[index] = c
	return c, nil
}

// activate switches the source to slot-driven on a cell's first indication.
func (s *Source) activate(c *CellTimeSource) bool {
	s.modeMu.Lock()
	defer s.modeMu.Unlock()
	if c.closed {
		return false
	}
	if c.active.Load() {
		return true
	}
	c.active.Store(true)
	s.active++
	if s.active == 1 {
		s.stopFreeRunning()
		s.setSlotDriven(true)
		s.Info("Clock is slot-driven, first active cell %d", c.index)
	}
	return true
}

func (s *Source) removeCell(c *CellTimeSource) {
	s.modeMu.Lock()
	defer s.modeMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	delete(s.cells, c.index)
	if !c.active.Load() {
		return
	}
	s.active--
	if s.active == 0 {
		s.lastBoundary.Store(-1)
		s.setSlotDriven(false)
		if s.started {
			s.startFreeRunning()
		}
		s.Info("Clock is free-running, last active cell %d removed", c.index)
	}
}

// onBoundary is called by a cell at the start of millisecond ms of its own
// SFN cycle. The first boundary of a cell aligns it on the shared boundary, so
// cells whose SFNs are offset from each other map onto one timeline. The cell
// that moves the shared boundary forward ticks for everyone.
func (s *Source) onBoundary(c *CellTimeSource, ms int64) {
	if !c.aligned {
		c.aligned = true
		if s.lastBoundary.CompareAndSwap(-1, ms) {
			s.advance(1, model.ClockSlotDriven)
			return
		}
		c.offset = (s.lastBoundary.Load() - ms + boundaryPeriod) % boundaryPeriod
		return
	}
	ms = (ms + c.offset) % boundaryPeriod

	for {
		last := s.lastBoundary.Load()
		n := int64(1)
		if last >= 0 {
			d := (ms - last + boundaryPeriod) % boundaryPeriod
			if d == 0 || d >= boundaryPeriod/2 {
				// already ticked, or a lagging cell
				return
			}
			if d <= maxCatchUp {
				n = d
			} else {
				s.Warn("Clock jumped %d ms, resynchronizing", d)
			}
		}
		if s.lastBoundary.CompareAndSwap(last, ms) {
			s.advance(int(n), model.ClockSlotDriven)
			return
		}
	}
}

func (s *Source) advance(n int, mode model.ClockMode) {
	s.tickMu.Lock()
	for i := 0; i < n; i++ {
		now := s.now.Add(1)
		if s.sub != nil {
			s.sub.Tick(now)
		}
	}
	s.tickMu.Unlock()
	if s.metrics != nil {
		s.metrics.ClockTicks.WithLabelValues(string(mode)).Add(float64(n))
	}
}

func (s *Source) setSlotDriven(on bool) {
	if s.metrics == nil {
		return
	}
	if on {
		s.metrics.ClockSlotDriven.Set(1)
	} else {
		s.metrics.ClockSlotDriven.Set(0)
	}
}

// startFreeRunning requires modeMu held exclusively.
func (s *Source) startFreeRunning() {
	if s.freeCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	ticker := s.clk.NewTicker(s.period)
	s.freeCancel = cancel
	s.freeDone = done

	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				s.advance(1, model.ClockFreeRunning)
			}
		}
	}()
}

// stopFreeRunning requires modeMu held exclusively. It returns once the
// ticker goroutine is gone, so no free-running tick follows.
func (s *Source) stopFreeRunning() {
	if s.freeCancel == nil {
		return
	}
	s.freeCancel()
	<-s.freeDone
	s.freeCancel = nil
	s.freeDone = nil
}

// CellTimeSource forwards the slot indications of one cell.
type CellTimeSource struct {
	src        *Source
	index      uint16
	numerology uint8
	active     atomic.Bool
	lastSlot   atomic.Value // SlotPoint
	closed     bool         // guarded by src.modeMu

	// owned by the slot thread
	aligned bool
	offset  int64 // added to the cell's millisecond to reach the shared one
}

func (c *CellTimeSource) Index() uint16 { return c.index }

// OnSlotIndication is called from the cell's slot thread.
func (c *CellTimeSource) OnSlotIndication(sl SlotPoint) {
	if sl.Numerology != c.numerology || !sl.Valid() {
		c.src.Warn("Cell %d: dropping slot indication %s, cell numerology %d", c.index, sl, c.numerology)
		return
	}
	if !c.active.Load() && !c.src.activate(c) {
		return
	}
	c.lastSlot.Store(sl)
	if !sl.IsMsBoundary() {
		return
	}

	c.src.modeMu.RLock()
	defer c.src.modeMu.RUnlock()
	if c.closed {
		return
	}
	c.src.onBoundary(c, sl.Millisecond())
}

// LastSlot is the last slot reported by the cell.
func (c *CellTimeSource) LastSlot() (SlotPoint, bool) {
	sl, ok := c.lastSlot.Load().(SlotPoint)
	return sl, ok
}

// Close unregisters the cell. Closing the last active cell reverts the
// source to free-running.
func (c *CellTimeSource) Close() {
	c.src.removeCell(c)
}
