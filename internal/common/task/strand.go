package task

import (
	"sync"

	"github.com/alitto/pond/v2"
)

// Executor runs posted functions. Post returns false when the function was
// rejected and will never run.
type Executor interface {
	Post(fn func()) bool
}

// Inline runs every posted function on the caller's goroutine.
type Inline struct{}

func (Inline) Post(fn func()) bool {
	fn()
	return true
}

const strandBatch = 32

// Strand executes posted functions one at a time, in posting order, on a
// shared worker pool. No worker is held while the strand is idle.
type Strand struct {
	mu      sync.Mutex
	pool    pond.Pool
	queue   []func()
	running bool
	closed  bool
}

func NewStrand(pool pond.Pool) *Strand {
	return &Strand{pool: pool}
}

func (s *Strand) Post(fn func()) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.queue = append(s.queue, fn)
	if !s.running {
		s.running = true
		s.pool.Submit(s.drain)
	}
	s.mu.Unlock()
	return true
}

// Close rejects further posts. Functions already queued still run.
func (s *Strand) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Strand) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Strand) drain() {
	for i := 0; ; i++ {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		if i == strandBatch {
			// give the worker back, keep running flag set
			s.pool.Submit(s.drain)
			s.mu.Unlock()
			return
		}
		fn := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		fn()
	}
}
