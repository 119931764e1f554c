// Package task defines the unit of deferred delivery work tracked by
// the ledger and executed by the worker pool.
package task

import (
	"time"

	"github.com/cualquiercosa327/libkeen/id"
)

// Task is a single pending delivery: one event payload bound to one
// collector address. Tasks are tracked by the ledger under Seq from the
// moment they are scheduled until their body finishes executing.
type Task struct {
	// Seq is the ledger sequence number. Zero until the task is
	// registered; assigned exactly once.
	Seq uint64

	// EventID correlates log lines and spans for this delivery.
	EventID id.EventID

	// Name is the event collection name, empty for cache replays.
	Name string

	// Address is the fully built collector endpoint URL.
	Address string

	// Payload is the raw event body.
	Payload string

	// Replay marks a task created from a retry-cache entry rather than
	// a fresh PostEvent call.
	Replay bool

	// Timeout bounds a single delivery attempt. Zero means no deadline.
	Timeout time.Duration

	CreatedAt time.Time
}

// New creates a delivery task for a freshly posted event.
func New(name, address, payload string) *Task {
	return &Task{
		EventID:   id.NewEventID(),
		Name:      name,
		Address:   address,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}

// NewReplay creates a delivery task for a retry-cache entry.
func NewReplay(address, payload string) *Task {
	return &Task{
		EventID:   id.NewEventID(),
		Address:   address,
		Payload:   payload,
		Replay:    true,
		CreatedAt: time.Now().UTC(),
	}
}
