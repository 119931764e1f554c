// Package memory provides a fully in-memory retry cache. Safe for
// concurrent access. Intended for unit testing and development.
package memory

import (
	"context"
	"sync"

	"github.com/cualquiercosa327/libkeen/cache"
)

// Compile-time interface check.
var _ cache.Store = (*Store)(nil)

// Store keeps entries in insertion order behind a mutex.
type Store struct {
	mu      sync.Mutex
	entries []cache.Entry
	closed  bool
}

// New returns a new empty Store.
func New() *Store {
	return &Store{}
}

// Push appends an undelivered entry.
func (s *Store) Push(_ context.Context, e cache.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cache.ErrClosed
	}
	s.entries = append(s.entries, e)
	return nil
}

// Pop returns up to max entries in insertion order without removing them.
func (s *Store) Pop(_ context.Context, max int) ([]cache.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, cache.ErrClosed
	}
	if max <= 0 || len(s.entries) == 0 {
		return nil, nil
	}
	if max > len(s.entries) {
		max = len(s.entries)
	}

	out := make([]cache.Entry, max)
	copy(out, s.entries[:max])
	return out, nil
}

// Remove deletes the first entry matching e by value.
func (s *Store) Remove(_ context.Context, e cache.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cache.ErrClosed
	}
	for i, have := range s.entries {
		if have == e {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

// Count returns the number of cached entries.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, cache.ErrClosed
	}
	return len(s.entries), nil
}

// Clear removes every entry.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cache.ErrClosed
	}
	s.entries = nil
	return nil
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
