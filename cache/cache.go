// Package cache defines the durable retry store for events that failed
// immediate delivery.
//
// The dispatch core pushes a (address, payload) pair whenever a send
// fails, reads entries back during a cache flush, and removes an entry
// only after its retry send succeeds. Pop is therefore a bounded read,
// not a destructive take: an entry that fails again is simply left in
// place for a future flush, which also means the core never pushes the
// same failed entry twice.
//
// Backends live in subpackages: memory (tests and development), redis,
// and bun (SQLite or PostgreSQL through the Bun ORM). All backends must
// be safe for concurrent use; workers push and remove while a flush
// reads.
package cache

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("keen/cache: store closed")

// Entry is one undelivered event, identified by the value of the pair
// rather than by any handle identity.
type Entry struct {
	Address string `json:"address" msgpack:"address"`
	Payload string `json:"payload" msgpack:"payload"`
}

// Store is the retry cache contract.
type Store interface {
	// Push appends an undelivered entry. Duplicate values are kept as
	// distinct entries.
	Push(ctx context.Context, e Entry) error

	// Pop returns up to max entries in insertion order without
	// removing them.
	Pop(ctx context.Context, max int) ([]Entry, error)

	// Remove deletes one entry matching e by value. No-op if absent.
	Remove(ctx context.Context, e Entry) error

	// Count returns the number of cached entries.
	Count(ctx context.Context) (int, error)

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Close releases backend resources. Further calls fail with
	// ErrClosed where the backend can detect them.
	Close() error
}
