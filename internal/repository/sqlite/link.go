package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/treebio/internal/apperror"
	"github.com/sakif/treebio/internal/model"
)

const linkColumns = `id, user_id, title, url, description, click_count, created_at, updated_at`

// CreateLink inserts a new link. The ID, timestamps and a zero click count
// are assigned here and written back into link.
func (db *DB) CreateLink(ctx context.Context, link *model.Link) error {
	link.ID = xid.New().String()
	now := time.Now().UTC()
	link.CreatedAt = now
	link.UpdatedAt = now
	link.ClickCount = 0

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO links (`+linkColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		link.ID,
		link.UserID,
		link.Title,
		link.URL,
		link.Description,
		link.ClickCount,
		link.CreatedAt,
		link.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating link: %w", err)
	}
	return nil
}

// ListLinks returns the user's links in the order they were added.
func (db *DB) ListLinks(ctx context.Context, userID string) ([]model.Link, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+linkColumns+`
		 FROM links
		 WHERE user_id = ?
		 ORDER BY created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing links: %w", err)
	}
	defer rows.Close()

	links := make([]model.Link, 0)
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning link row: %w", err)
		}
		links = append(links, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating links: %w", err)
	}
	return links, nil
}

// LinkOwner returns the user_id of the link, or apperror.ErrNotFound.
func (db *DB) LinkOwner(ctx context.Context, id string) (string, error) {
	var owner string
	err := db.conn.QueryRowContext(ctx, `SELECT user_id FROM links WHERE id = ?`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperror.NotFound("link", id)
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: getting owner of link %s: %w", id, err)
	}
	return owner, nil
}

// UpdateLink rewrites title, url and description. The WHERE clause matches
// on both id and owner, so a link belonging to someone else reads as not
// found. On success link holds the stored row.
func (db *DB) UpdateLink(ctx context.Context, link *model.Link) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE links
		 SET title = ?, url = ?, description = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		link.Title,
		link.URL,
		link.Description,
		time.Now().UTC(),
		link.ID,
		link.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating link %s: %w", link.ID, err)
	}
	if err := rowsAffected(result, apperror.NotFound("link", link.ID)); err != nil {
		return err
	}

	updated, err := db.getLink(ctx, link.ID)
	if err != nil {
		return err
	}
	*link = *updated
	return nil
}

// DeleteLink removes the link if userID owns it.
func (db *DB) DeleteLink(ctx context.Context, id, userID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM links WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting link %s: %w", id, err)
	}
	return rowsAffected(result, apperror.NotFound("link", id))
}

// IncrementClicks bumps click_count by one in a single statement, so
// concurrent clicks never lose an update, and returns the link.
func (db *DB) IncrementClicks(ctx context.Context, id string) (*model.Link, error) {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE links SET click_count = click_count + 1 WHERE id = ?`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: recording click on link %s: %w", id, err)
	}
	if err := rowsAffected(result, apperror.NotFound("link", id)); err != nil {
		return nil, err
	}
	return db.getLink(ctx, id)
}

func (db *DB) getLink(ctx context.Context, id string) (*model.Link, error) {
	l, err := scanLink(db.conn.QueryRowContext(ctx,
		`SELECT `+linkColumns+` FROM links WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("link", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting link %s: %w", id, err)
	}
	return l, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanLink(s scanner) (*model.Link, error) {
	var l model.Link
	if err := s.Scan(
		&l.ID,
		&l.UserID,
		&l.Title,
		&l.URL,
		&l.Description,
		&l.ClickCount,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &l, nil
}
