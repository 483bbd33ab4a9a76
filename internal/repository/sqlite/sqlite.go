// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// modernc.org/sqlite is a pure Go translation of the SQLite C code, so no C
// compiler is needed and the binary cross-compiles like any other Go program.
//
// DATABASE/SQL OVERVIEW:
// Go's standard library provides "database/sql" — a generic interface for SQL databases.
// It works with any database through "drivers" (SQLite, Postgres, MySQL, etc.).
// The pattern is always:
//  1. sql.Open(driverName, dataSourceName) → creates a pool
//  2. db.QueryContext / db.ExecContext     → runs queries
//  3. rows.Scan(&field1, &field2)          → reads results into Go variables
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	// The blank-imported driver registers itself with database/sql as "sqlite".
	// We also import it by name to inspect *Error codes.
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/treebio/internal/repository"
)

// compile-time check that *DB implements the full storage surface
var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/treebio.db"  → file-based database (persistent)
//   - ":memory:"         → in-memory database (tests)
//
// The pool is limited to ONE connection. SQLite has a single writer anyway,
// and with one connection concurrent writers queue up inside database/sql
// instead of failing with SQLITE_BUSY. It also keeps a ":memory:" database
// alive for the lifetime of the pool (every new connection would otherwise
// see an empty database).
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", strings.ToLower(p), err)
		}
	}

	db := &DB{conn: conn}

	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE ... IF NOT EXISTS makes it safe to run
// on every start.
//
// The UNIQUE constraints on users.external_id and users.username are the
// source of truth for those invariants: the application never checks
// uniqueness before writing, it reacts to the constraint error.
func (db *DB) migrate(ctx context.Context) error {
	statements := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id          TEXT PRIMARY KEY,
				external_id TEXT NOT NULL UNIQUE,
				first_name  TEXT NOT NULL DEFAULT '',
				last_name   TEXT NOT NULL DEFAULT '',
				email       TEXT NOT NULL DEFAULT '',
				avatar_url  TEXT NOT NULL DEFAULT '',
				bio         TEXT NOT NULL DEFAULT '',
				username    TEXT UNIQUE,
				created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`},
		{"links", `
			CREATE TABLE IF NOT EXISTS links (
				id          TEXT PRIMARY KEY,
				user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				title       TEXT NOT NULL,
				url         TEXT NOT NULL,
				description TEXT,
				click_count INTEGER NOT NULL DEFAULT 0 CHECK (click_count >= 0),
				created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`},
		{"links user index", `CREATE INDEX IF NOT EXISTS idx_links_user_id ON links(user_id, created_at)`},
		{"social_links", `
			CREATE TABLE IF NOT EXISTS social_links (
				id         TEXT PRIMARY KEY,
				user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				platform   TEXT NOT NULL CHECK (platform IN ('instagram','youtube','email','github','linkedin','twitter')),
				url        TEXT NOT NULL,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`},
		{"social_links user index", `CREATE INDEX IF NOT EXISTS idx_social_links_user_id ON social_links(user_id, created_at)`},
		{"profile_visits", `
			CREATE TABLE IF NOT EXISTS profile_visits (
				id           TEXT PRIMARY KEY,
				user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				visited_at   DATETIME NOT NULL,
				referrer     TEXT NOT NULL DEFAULT '',
				user_agent   TEXT NOT NULL DEFAULT '',
				visitor_hash TEXT NOT NULL DEFAULT ''
			)`},
		{"profile_visits index", `CREATE INDEX IF NOT EXISTS idx_profile_visits_user_time ON profile_visits(user_id, visited_at)`},
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt.sql); err != nil {
			return fmt.Errorf("creating %s: %w", stmt.name, err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is SQLite rejecting a write because of
// a UNIQUE constraint.
func isUniqueViolation(err error) bool {
	var sqliteErr *moderncsqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// rowsAffected converts a zero-row result into err.
func rowsAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
