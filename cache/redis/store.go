// Package redis implements the retry cache on a Redis list for
// deployments where cached events must survive the process.
//
// Entries are msgpack-encoded and kept in a single list in insertion
// order. Remove uses LREM with an exact encoded value, which matches
// the contract of deleting one entry by value.
//
// Usage:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	s := rediscache.New(client)
package redis

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/cualquiercosa327/libkeen/cache"
)

// retryKey is the list holding all cached entries.
// Prefixed with "keen:" to avoid collisions.
const retryKey = "keen:retry"

// Compile-time interface check.
var _ cache.Store = (*Store)(nil)

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithKey overrides the default list key, for running multiple
// independent clients against one Redis.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// Store implements cache.Store backed by Redis.
type Store struct {
	client goredis.Cmdable
	key    string
	logger *slog.Logger
}

// New creates a Redis-backed retry cache. The caller owns the Redis
// client lifecycle.
func New(client goredis.Cmdable, opts ...Option) *Store {
	s := &Store{client: client, key: retryKey, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Client returns the underlying Redis client.
func (s *Store) Client() goredis.Cmdable { return s.client }

// Push appends an undelivered entry to the tail of the list.
func (s *Store) Push(ctx context.Context, e cache.Entry) error {
	data, err := msgpack.Marshal(e)
	if err != nil {
		return fmt.Errorf("keen/redis: encode entry: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("keen/redis: push: %w", err)
	}
	return nil
}

// Pop returns up to max entries from the head of the list without
// removing them.
func (s *Store) Pop(ctx context.Context, max int) ([]cache.Entry, error) {
	if max <= 0 {
		return nil, nil
	}

	raw, err := s.client.LRange(ctx, s.key, 0, int64(max)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("keen/redis: pop: %w", err)
	}

	entries := make([]cache.Entry, 0, len(raw))
	for _, item := range raw {
		var e cache.Entry
		if decErr := msgpack.Unmarshal([]byte(item), &e); decErr != nil {
			// A corrupt entry would wedge every flush; skip it.
			s.logger.Warn("skipping undecodable cache entry",
				slog.String("error", decErr.Error()),
			)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Remove deletes one entry matching e by value.
func (s *Store) Remove(ctx context.Context, e cache.Entry) error {
	data, err := msgpack.Marshal(e)
	if err != nil {
		return fmt.Errorf("keen/redis: encode entry: %w", err)
	}
	if err := s.client.LRem(ctx, s.key, 1, data).Err(); err != nil {
		return fmt.Errorf("keen/redis: remove: %w", err)
	}
	return nil
}

// Count returns the number of cached entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.client.LLen(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("keen/redis: count: %w", err)
	}
	return int(n), nil
}

// Clear removes every entry.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("keen/redis: clear: %w", err)
	}
	return nil
}

// Close is a no-op; the caller owns the Redis client lifecycle.
func (s *Store) Close() error { return nil }
