// Package bun implements the retry cache on a SQL database through the
// Bun ORM. SQLite fits the embedded client case the cache was designed
// for; PostgreSQL works for fleet-wide collection proxies. See
// OpenSQLite and OpenPostgres for ready-made constructors.
package bun

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/cualquiercosa327/libkeen/cache"
)

// Compile-time interface check.
var _ cache.Store = (*Store)(nil)

// retryModel is the table row for one cached entry. The autoincrement
// id preserves insertion order and lets Remove delete exactly one of
// several identical (address, payload) rows.
type retryModel struct {
	bun.BaseModel `bun:"table:keen_retry"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Address   string    `bun:"address,notnull"`
	Payload   string    `bun:"payload,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Store is a Bun ORM implementation of cache.Store. The caller owns the
// *bun.DB lifecycle; Store never closes it.
type Store struct {
	db     *bun.DB
	logger *slog.Logger
}

// New creates a new Bun store. Call Migrate before first use.
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying *bun.DB for advanced usage.
func (s *Store) DB() *bun.DB { return s.db }

// Migrate creates the retry table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*retryModel)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("keen/bun: migrate: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Push appends an undelivered entry.
func (s *Store) Push(ctx context.Context, e cache.Entry) error {
	m := &retryModel{
		Address:   e.Address,
		Payload:   e.Payload,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("keen/bun: push: %w", err)
	}
	return nil
}

// Pop returns up to max entries in insertion order without removing them.
func (s *Store) Pop(ctx context.Context, max int) ([]cache.Entry, error) {
	if max <= 0 {
		return nil, nil
	}

	var models []retryModel
	err := s.db.NewSelect().
		Model(&models).
		Order("id ASC").
		Limit(max).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("keen/bun: pop: %w", err)
	}

	entries := make([]cache.Entry, 0, len(models))
	for i := range models {
		entries = append(entries, cache.Entry{
			Address: models[i].Address,
			Payload: models[i].Payload,
		})
	}
	return entries, nil
}

// Remove deletes the oldest entry matching e by value. No-op if absent.
func (s *Store) Remove(ctx context.Context, e cache.Entry) error {
	var rowID int64
	err := s.db.NewSelect().
		Model((*retryModel)(nil)).
		Column("id").
		Where("address = ?", e.Address).
		Where("payload = ?", e.Payload).
		Order("id ASC").
		Limit(1).
		Scan(ctx, &rowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("keen/bun: remove lookup: %w", err)
	}

	_, err = s.db.NewDelete().
		Model((*retryModel)(nil)).
		Where("id = ?", rowID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("keen/bun: remove: %w", err)
	}
	return nil
}

// Count returns the number of cached entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().
		Model((*retryModel)(nil)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("keen/bun: count: %w", err)
	}
	return n, nil
}

// Clear removes every entry.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*retryModel)(nil)).
		Where("1 = 1").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("keen/bun: clear: %w", err)
	}
	return nil
}

// Close is a no-op because the caller owns the *bun.DB lifecycle.
func (s *Store) Close() error { return nil }
