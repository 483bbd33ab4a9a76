// Package postgres implements the repository interfaces on PostgreSQL via
// pgx's connection pool. It is selected when DATABASE_URL is configured;
// otherwise the server runs on repository/sqlite.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sakif/treebio/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// DB wraps a pgx pool.
type DB struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL, verifies the connection and runs migrations.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	db := &DB{pool: pool}
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}
	return db, nil
}

// Close releases every pooled connection.
func (db *DB) Close() error {
	db.pool.Close()
	return nil
}

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
				created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
			)`},
		{"links", `
			CREATE TABLE IF NOT EXISTS links (
				id          TEXT PRIMARY KEY,
				user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				title       TEXT NOT NULL,
				url         TEXT NOT NULL,
				description TEXT,
				click_count BIGINT NOT NULL DEFAULT 0 CHECK (click_count >= 0),
				created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
			)`},
		{"links user index", `CREATE INDEX IF NOT EXISTS idx_links_user_id ON links(user_id, created_at)`},
		{"social_links", `
			CREATE TABLE IF NOT EXISTS social_links (
				id         TEXT PRIMARY KEY,
				user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				platform   TEXT NOT NULL CHECK (platform IN ('instagram','youtube','email','github','linkedin','twitter')),
				url        TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`},
		{"social_links user index", `CREATE INDEX IF NOT EXISTS idx_social_links_user_id ON social_links(user_id, created_at)`},
		{"profile_visits", `
			CREATE TABLE IF NOT EXISTS profile_visits (
				id           TEXT PRIMARY KEY,
				user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				visited_at   TIMESTAMPTZ NOT NULL,
				referrer     TEXT NOT NULL DEFAULT '',
				user_agent   TEXT NOT NULL DEFAULT '',
				visitor_hash TEXT NOT NULL DEFAULT ''
			)`},
		{"profile_visits index", `CREATE INDEX IF NOT EXISTS idx_profile_visits_user_time ON profile_visits(user_id, visited_at)`},
	}

	for _, stmt := range statements {
		if _, err := db.pool.Exec(ctx, stmt.sql); err != nil {
			return fmt.Errorf("creating %s: %w", stmt.name, err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
