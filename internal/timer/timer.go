// Package timer is the tick-driven timer facility. One tick is one
// millisecond of DU time, delivered by the clock source.
package timer

import (
	"container/heap"
	"sync"
	"time"

	"distributed-unit/internal/common/task"
)

type TimerID uint64

type Manager struct {
	mu     sync.Mutex
	now    uint64
	nextID TimerID
	queue  expiryQueue
}

func NewManager() *Manager {
	return &Manager{}
}

// Now is the tick last delivered to Tick.
func (m *Manager) Now() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// CreateTimer returns a stopped timer whose callbacks run on exec.
func (m *Manager) CreateTimer(exec task.Executor) *UniqueTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return &UniqueTimer{m: m, id: m.nextID, exec: exec}
}

// Tick advances the timer wheel to now and posts the callback of every expired
// timer to its executor. Ticks must arrive in order.
func (m *Manager) Tick(now uint64) {
	type fired struct {
		t     *UniqueTimer
		epoch uint64
		cb    func(TimerID)
	}
	var expired []fired

	m.mu.Lock()
	m.now = now
	for m.queue.Len() > 0 && m.queue[0].deadline <= now {
		e := heap.Pop(&m.queue).(expiry)
		t := e.t
		if !t.running || t.epoch != e.epoch {
			continue
		}
		t.running = false
		expired = append(expired, fired{t: t, epoch: e.epoch, cb: t.callback})
	}
	m.mu.Unlock()

	for _, f := range expired {
		f := f
		f.t.exec.Post(func() {
			// stopped or restarted after it fired
			if !f.t.sameEpoch(f.epoch) {
				return
			}
			if f.cb != nil {
				f.cb(f.t.id)
			}
		})
	}
}

// UniqueTimer is a restartable one-shot timer.
type UniqueTimer struct {
	m    *Manager
	id   TimerID
	exec task.Executor

	// guarded by m.mu
	duration uint64
	callback func(TimerID)
	epoch    uint64
	running  bool
}

func (t *UniqueTimer) ID() TimerID { return t.id }

// Set stops the timer and configures its duration and expiry callback.
func (t *UniqueTimer) Set(d time.Duration, cb func(TimerID)) {
	ticks := uint64(d / time.Millisecond)
	if ticks == 0 {
		ticks = 1
	}
	t.m.mu.Lock()
	t.epoch++
	t.running = false
	t.duration = ticks
	t.callback = cb
	t.m.mu.Unlock()
}

// Run starts or restarts the timer with the configured duration.
func (t *UniqueTimer) Run() {
	t.m.mu.Lock()
	t.epoch++
	t.running = true
	heap.Push(&t.m.queue, expiry{deadline: t.m.now + t.duration, t: t, epoch: t.epoch})
	t.m.mu.Unlock()
}

// Stop cancels a pending expiry, including one already posted but not run.
func (t *UniqueTimer) Stop() {
	t.m.mu.Lock()
	t.epoch++
	t.running = false
	t.m.mu.Unlock()
}

func (t *UniqueTimer) IsRunning() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	return t.running
}

func (t *UniqueTimer) Duration() time.Duration {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	return time.Duration(t.duration) * time.Millisecond
}

func (t *UniqueTimer) sameEpoch(epoch uint64) bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	return t.epoch == epoch
}

type expiry struct {
	deadline uint64
	t        *UniqueTimer
	epoch    uint64
}

type expiryQueue []expiry

func (q expiryQueue) Len() int           { return len(q) }
func (q expiryQueue) Less(i, j int) bool { return q[i].deadline < q[j].deadline }
func (q expiryQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *expiryQueue) Push(x any)        { *q = append(*q, x.(expiry)) }
func (q *expiryQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = expiry{}
	*q = old[:n-1]
	return e
}
