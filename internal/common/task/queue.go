package task

import "sync"

// Procedure is a unit of per-UE work. It must call done exactly once, possibly
// from a later continuation; the next procedure starts only after that.
type Procedure func(done func())

type namedProcedure struct {
	name string
	run  Procedure
}

// Queue serializes procedures on an executor. All of its state is touched
// only from functions running on that executor.
type Queue struct {
	exec    Executor
	pending []namedProcedure
	current string
	busy    bool
	closed  bool
}

func NewQueue(exec Executor) *Queue {
	return &Queue{exec: exec}
}

// Schedule appends a procedure. It returns false if the executor rejected it.
func (q *Queue) Schedule(name string, p Procedure) bool {
	return q.exec.Post(func() {
		if q.closed {
			return
		}
		q.pending = append(q.pending, namedProcedure{name: name, run: p})
		q.next()
	})
}

// Clear drops every procedure that has not started yet and refuses new ones.
// Must run on the executor.
func (q *Queue) Clear() {
	q.closed = true
	q.pending = nil
}

// Current names the procedure in flight, empty when idle. Must run on the
// executor.
func (q *Queue) Current() string {
	return q.current
}

func (q *Queue) next() {
	if q.busy || len(q.pending) == 0 {
		return
	}
	p := q.pending[0]
	q.pending = q.pending[1:]
	q.busy = true
	q.current = p.name

	var once sync.Once
	p.run(func() {
		once.Do(func() {
			q.exec.Post(func() {
				q.busy = false
				q.current = ""
				if !q.closed {
					q.next()
				}
			})
		})
	})
}
