package bun

import (
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver registration
)

// OpenSQLite opens a SQLite-backed store at the given path. Use
// ":memory:" for an ephemeral store. Call Migrate before first use.
// The returned cleanup closes the database.
func OpenSQLite(path string, opts ...Option) (*Store, func() error, error) {
	sqldb, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, nil, fmt.Errorf("keen/bun: open sqlite: %w", err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	s := New(db, opts...)
	return s, db.Close, nil
}

// OpenPostgres opens a PostgreSQL-backed store from a DSN. Call
// Migrate before first use. The returned cleanup closes the database.
func OpenPostgres(dsn string, opts ...Option) (*Store, func() error, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	s := New(db, opts...)
	return s, db.Close, nil
}
