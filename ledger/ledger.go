// Package ledger tracks live delivery tasks so a pool reset can drain
// them instead of dropping them.
//
// A task is present in the ledger from the moment it is scheduled until
// the moment its body finishes executing, whether it ran on a worker or
// was force-run during a drain. Membership is keyed by a monotonically
// increasing sequence number, so two structurally identical tasks never
// collide.
package ledger

import (
	"sort"
	"sync"

	"github.com/cualquiercosa327/libkeen/task"
)

// Ledger is an arena of live task records. Safe for concurrent use; it
// holds its own lock, independent of the singleton lock in the root
// package.
type Ledger struct {
	mu    sync.Mutex
	seq   uint64
	tasks map[uint64]*task.Task
}

// New returns an empty Ledger.
func New() *Ledger {
	return &Ledger{tasks: make(map[uint64]*task.Task)}
}

// Register assigns the task its sequence number and records it as live.
// It returns the assigned sequence number.
func (l *Ledger) Register(t *task.Task) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	t.Seq = l.seq
	l.tasks[t.Seq] = t
	return t.Seq
}

// Remove drops the task with the given sequence number. It is a no-op
// if the task is not present, which happens when a drain already
// cleared the ledger between the task's execution and its removal.
func (l *Ledger) Remove(seq uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.tasks, seq)
}

// Snapshot returns a copy of all live tasks in registration order.
// Draining iterates the snapshot, never the live map, so concurrently
// completing workers cannot mutate the collection mid-iteration.
func (l *Ledger) Snapshot() []*task.Task {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*task.Task, 0, len(l.tasks))
	for _, t := range l.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Clear empties the ledger.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.tasks)
}

// Len returns the number of live tasks.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}
