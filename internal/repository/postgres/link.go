package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/treebio/internal/apperror"
	"github.com/sakif/treebio/internal/model"
)

const linkColumns = `id, user_id, title, url, description, click_count, created_at, updated_at`

func (db *DB) CreateLink(ctx context.Context, link *model.Link) error {
	link.ID = xid.New().String()
	now := time.Now().UTC()
	link.CreatedAt = now
	link.UpdatedAt = now
	link.ClickCount = 0

	_, err := db.pool.Exec(ctx,
		`INSERT INTO links (`+linkColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		link.ID, link.UserID, link.Title, link.URL, link.Description, link.ClickCount, link.CreatedAt, link.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: creating link: %w", err)
	}
	return nil
}

func (db *DB) ListLinks(ctx context.Context, userID string) ([]model.Link, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+linkColumns+` FROM links WHERE user_id = $1 ORDER BY created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing links: %w", err)
	}
	links, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Link, error) {
		l, err := scanLink(row)
		if err != nil {
			return model.Link{}, err
		}
		return *l, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning links: %w", err)
	}
	if links == nil {
		links = []model.Link{}
	}
	return links, nil
}

func (db *DB) LinkOwner(ctx context.Context, id string) (string, error) {
	var owner string
	err := db.pool.QueryRow(ctx, `SELECT user_id FROM links WHERE id = $1`, id).Scan(&owner)
	if isNoRows(err) {
		return "", apperror.NotFound("link", id)
	}
	if err != nil {
		return "", fmt.Errorf("postgres: getting owner of link %s: %w", id, err)
	}
	return owner, nil
}

func (db *DB) UpdateLink(ctx context.Context, link *model.Link) error {
	updated, err := scanLink(db.pool.QueryRow(ctx,
		`UPDATE links SET title = $1, url = $2, description = $3, updated_at = $4
		 WHERE id = $5 AND user_id = $6
		 RETURNING `+linkColumns,
		link.Title, link.URL, link.Description, time.Now().UTC(), link.ID, link.UserID,
	))
	if isNoRows(err) {
		return apperror.NotFound("link", link.ID)
	}
	if err != nil {
		return fmt.Errorf("postgres: updating link %s: %w", link.ID, err)
	}
	*link = *updated
	return nil
}

func (db *DB) DeleteLink(ctx context.Context, id, userID string) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM links WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("postgres: deleting link %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("link", id)
	}
	return nil
}

func (db *DB) IncrementClicks(ctx context.Context, id string) (*model.Link, error) {
	l, err := scanLink(db.pool.QueryRow(ctx,
		`UPDATE links SET click_count = click_count + 1 WHERE id = $1 RETURNING `+linkColumns, id,
	))
	if isNoRows(err) {
		return nil, apperror.NotFound("link", id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: recording click on link %s: %w", id, err)
	}
	return l, nil
}

func scanLink(row pgx.Row) (*model.Link, error) {
	var l model.Link
	if err := row.Scan(
		&l.ID, &l.UserID, &l.Title, &l.URL, &l.Description, &l.ClickCount, &l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &l, nil
}
