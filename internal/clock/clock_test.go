package clock

import (
	"sync"
	"testing"
	"time"

	"distributed-unit/internal/metrics"
	"distributed-unit/pkg/model"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recorder struct {
	mu    sync.Mutex
	ticks []uint64
}

func (r *recorder) Tick(now uint64) {
	r.mu.Lock()
	r.ticks = append(r.ticks, now)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ticks)
}

func (r *recorder) assertMonotonic(t *testing.T) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, v := range r.ticks {
		require.Equal(t, uint64(i+1), v, "tick %d out of order", i)
	}
}

func newSource(t *testing.T, clk clockwork.Clock) (*Source, *recorder, *metrics.Metrics) {
	t.Helper()
	rec := &recorder{}
	m := metrics.New(prometheus.NewRegistry())
	s := New(Options{Clock: clk, Subscriber: rec, Metrics: m})
	t.Cleanup(s.Stop)
	return s, rec, m
}

// runFrames feeds every slot of frames [fromSfn, fromSfn+frames) to c.
func runFrames(c *CellTimeSource, numerology uint8, fromSfn uint16, frames int) {
	sl := SlotPoint{Numerology: numerology, Sfn: fromSfn}
	total := frames * int(sl.SlotsPerFrame())
	for i := 0; i < total; i++ {
		c.OnSlotIndication(sl)
		sl = sl.Next()
	}
}

// runLockstep feeds one millisecond of slots to every cell concurrently, ms
// times, starting each cell at its slot in from.
func runLockstep(cells []*CellTimeSource, from []SlotPoint, ms int) {
	slots := append([]SlotPoint(nil), from...)
	for step := 0; step < ms; step++ {
		var wg sync.WaitGroup
		for i, c := range cells {
			wg.Add(1)
			go func(i int, c *CellTimeSource) {
				defer wg.Done()
				for k := uint16(0); k < slots[i].SlotsPerMs(); k++ {
					c.OnSlotIndication(slots[i])
					slots[i] = slots[i].Next()
				}
			}(i, c)
		}
		wg.Wait()
	}
}

func TestCoalescingAcrossCells(t *testing.T) {
	s, rec, _ := newSource(t, clockwork.NewFakeClock())

	numerologies := []uint8{0, 1, 2, 3}
	cells := make([]*CellTimeSource, len(numerologies))
	from := make([]SlotPoint, len(numerologies))
	for i, mu := range numerologies {
		c, err := s.AddCell(uint16(i), mu)
		require.NoError(t, err)
		cells[i] = c
		from[i] = SlotPoint{Numerology: mu}
	}

	const frames = 50
	runLockstep(cells, from, frames*msPerFrame)

	assert.Equal(t, frames*msPerFrame, rec.count())
	assert.Equal(t, uint64(frames*msPerFrame), s.Now())
	rec.assertMonotonic(t)
	assert.Equal(t, model.ClockSlotDriven, s.Mode())
}

func TestCellsWithSfnOffset(t *testing.T) {
	for name, leadingFirst := range map[string]bool{"leading first": true, "lagging first": false} {
		t.Run(name, func(t *testing.T) {
			s, rec, _ := newSource(t, clockwork.NewFakeClock())
			lagging, err := s.AddCell(0, 0)
			require.NoError(t, err)
			leading, err := s.AddCell(1, 0)
			require.NoError(t, err)

			lag, lead := SlotPoint{Sfn: 0}, SlotPoint{Sfn: 3}
			for i := 0; i < 100; i++ {
				if leadingFirst {
					leading.OnSlotIndication(lead)
					lagging.OnSlotIndication(lag)
				} else {
					lagging.OnSlotIndication(lag)
					leading.OnSlotIndication(lead)
				}
				lag, lead = lag.Next(), lead.Next()
			}

			assert.Equal(t, 100, rec.count())
			rec.assertMonotonic(t)
		})
	}
}

func TestLateCellJoinsWithoutBurst(t *testing.T) {
	s, rec, _ := newSource(t, clockwork.NewFakeClock())
	first, err := s.AddCell(0, 0)
	require.NoError(t, err)
	runFrames(first, 0, 0, 5)
	require.Equal(t, 50, rec.count())

	late, err := s.AddCell(1, 1)
	require.NoError(t, err)
	a, b := SlotPoint{Sfn: 5}, SlotPoint{Numerology: 1, Sfn: 500}
	for ms := 0; ms < 50; ms++ {
		first.OnSlotIndication(a)
		a = a.Next()
		for k := 0; k < 2; k++ {
			late.OnSlotIndication(b)
			b = b.Next()
		}
	}
	assert.Equal(t, 100, rec.count())

	// the late cell keeps the clock going on its own
	first.Close()
	runFrames(late, 1, 505, 1)
	assert.Equal(t, 110, rec.count())
	assert.Equal(t, model.ClockSlotDriven, s.Mode())
	rec.assertMonotonic(t)
}

func TestSfnWrap(t *testing.T) {
	s, rec, _ := newSource(t, clockwork.NewFakeClock())
	c, err := s.AddCell(0, 1)
	require.NoError(t, err)

	runFrames(c, 1, sfnPeriod-4, 8)
	assert.Equal(t, 80, rec.count())
	rec.assertMonotonic(t)
}

func TestCatchUpAndStale(t *testing.T) {
	s, rec, _ := newSource(t, clockwork.NewFakeClock())
	c, err := s.AddCell(0, 0)
	require.NoError(t, err)

	c.OnSlotIndication(SlotPoint{Sfn: 0, Slot: 0})
	assert.Equal(t, 1, rec.count())

	// five boundaries later, the missed ones are replayed
	c.OnSlotIndication(SlotPoint{Sfn: 0, Slot: 5})
	assert.Equal(t, 6, rec.count())

	// stale boundary from a lagging cell
	c.OnSlotIndication(SlotPoint{Sfn: 0, Slot: 3})
	assert.Equal(t, 6, rec.count())

	// same boundary again
	c.OnSlotIndication(SlotPoint{Sfn: 0, Slot: 5})
	assert.Equal(t, 6, rec.count())

	// a large jump resynchronizes with a single tick
	c.OnSlotIndication(SlotPoint{Sfn: 300, Slot: 0})
	assert.Equal(t, 7, rec.count())
	rec.assertMonotonic(t)
}

func TestNonBoundarySlotsDoNotTick(t *testing.T) {
	s, rec, _ := newSource(t, clockwork.NewFakeClock())
	c, err := s.AddCell(0, 2)
	require.NoError(t, err)

	c.OnSlotIndication(SlotPoint{Numerology: 2, Sfn: 0, Slot: 1})
	c.OnSlotIndication(SlotPoint{Numerology: 2, Sfn: 0, Slot: 2})
	assert.Zero(t, rec.count())
	assert.Equal(t, model.ClockSlotDriven, s.Mode())

	last, ok := c.LastSlot()
	require.True(t, ok)
	assert.Equal(t, uint16(2), last.Slot)
}

func TestInvalidIndicationIgnored(t *testing.T) {
	s, rec, _ := newSource(t, clockwork.NewFakeClock())
	c, err := s.AddCell(0, 1)
	require.NoError(t, err)

	c.OnSlotIndication(SlotPoint{Numerology: 0, Sfn: 0, Slot: 0})
	c.OnSlotIndication(SlotPoint{Numerology: 1, Sfn: 0, Slot: 20})
	assert.Zero(t, rec.count())
	assert.Equal(t, model.ClockFreeRunning, s.Mode())
}

func TestAddCellErrors(t *testing.T) {
	s, _, _ := newSource(t, clockwork.NewFakeClock())
	_, err := s.AddCell(1, 0)
	require.NoError(t, err)
	_, err = s.AddCell(1, 0)
	assert.ErrorIs(t, err, ErrCellExists)
	_, err = s.AddCell(2, 7)
	assert.Error(t, err)
}

func TestModeSwitching(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s, rec, m := newSource(t, fc)
	s.Start()
	assert.Equal(t, model.ClockFreeRunning, s.Mode())

	fc.BlockUntil(1)
	for i := 1; i <= 3; i++ {
		fc.Advance(time.Millisecond)
		require.Eventually(t, func() bool { return rec.count() == i }, time.Second, time.Millisecond)
	}

	c, err := s.AddCell(0, 0)
	require.NoError(t, err)
	c.OnSlotIndication(SlotPoint{Sfn: 0, Slot: 0})
	assert.Equal(t, model.ClockSlotDriven, s.Mode())
	assert.Equal(t, 4, rec.count())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ClockSlotDriven))

	// free-running stopped synchronously: advancing wall time adds nothing
	fc.Advance(10 * time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 4, rec.count())

	c.Close()
	assert.Equal(t, model.ClockFreeRunning, s.Mode())
	assert.Equal(t, float64(0), testutil.ToFloat64(m.ClockSlotDriven))

	fc.BlockUntil(1)
	fc.Advance(time.Millisecond)
	require.Eventually(t, func() bool { return rec.count() == 5 }, time.Second, time.Millisecond)

	// a closed cell no longer drives the clock
	c.OnSlotIndication(SlotPoint{Sfn: 0, Slot: 1})
	assert.Equal(t, model.ClockFreeRunning, s.Mode())

	// a new cell restarts from a fresh boundary
	c2, err := s.AddCell(0, 0)
	require.NoError(t, err)
	c2.OnSlotIndication(SlotPoint{Sfn: 700, Slot: 0})
	assert.Equal(t, 6, rec.count())
	rec.assertMonotonic(t)

	assert.Equal(t, float64(4), testutil.ToFloat64(m.ClockTicks.WithLabelValues(string(model.ClockFreeRunning))))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ClockTicks.WithLabelValues(string(model.ClockSlotDriven))))
}

func TestFreeRunningRealClockNoLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &recorder{}
	s := New(Options{Subscriber: rec})
	s.Start()
	require.Eventually(t, func() bool { return rec.count() >= 5 }, 2*time.Second, time.Millisecond)
	s.Stop()

	n := rec.count()
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, n, rec.count())
	rec.assertMonotonic(t)
}
