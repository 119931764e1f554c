// Package queue provides the shared blocking work queue drained by the
// worker pool.
//
// The queue has two states guarded by a single mutex and condition
// variable: accepting (Post succeeds, idle workers block in Next) and
// stopped (Post is rejected, Next returns immediately). Stop and Reset
// give the pool its settle-and-restart cycle: Stop wakes every blocked
// worker so the pool can join them, Reset discards whatever was still
// pending and returns the queue to the accepting state.
package queue

import (
	"errors"
	"sync"
)

// ErrStopped is returned by Post while the queue is stopped.
var ErrStopped = errors.New("keen/queue: queue stopped")

// Queue is a FIFO of deferred work units. Safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []func()
	stopped bool
}

// New returns a new accepting Queue.
func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Post appends a work unit. Returns ErrStopped if the queue is not
// accepting; the unit is dropped in that case.
func (q *Queue) Post(fn func()) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return ErrStopped
	}
	q.pending = append(q.pending, fn)
	q.cond.Signal()
	return nil
}

// Next blocks until a work unit is available or the queue is stopped.
// The second return is false when the caller should exit its loop.
// Units still pending when Stop is called are not handed out; they stay
// queued until Reset discards them (their tasks are drained from the
// ledger instead).
func (q *Queue) Next() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for !q.stopped && len(q.pending) == 0 {
		q.cond.Wait()
	}
	if q.stopped {
		return nil, false
	}

	fn := q.pending[0]
	q.pending = q.pending[1:]
	return fn, true
}

// Stop puts the queue into the stopped state and wakes every blocked
// worker. Idempotent.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stopped = true
	q.cond.Broadcast()
}

// Reset discards all pending work units and returns the queue to the
// accepting state. Call only after the pool has joined its workers.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = nil
	q.stopped = false
}

// Len returns the number of pending work units.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Stopped reports whether the queue is in the stopped state.
func (q *Queue) Stopped() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopped
}
