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

const socialLinkColumns = `id, user_id, platform, url, created_at`

func (db *DB) CreateSocialLink(ctx context.Context, link *model.SocialLink) error {
	link.ID = xid.New().String()
	link.CreatedAt = time.Now().UTC()

	_, err := db.pool.Exec(ctx,
		`INSERT INTO social_links (`+socialLinkColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		link.ID, link.UserID, string(link.Platform), link.URL, link.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: creating social link: %w", err)
	}
	return nil
}

func (db *DB) ListSocialLinks(ctx context.Context, userID string) ([]model.SocialLink, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+socialLinkColumns+` FROM social_links WHERE user_id = $1 ORDER BY created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing social links: %w", err)
	}
	links, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.SocialLink, error) {
		l, err := scanSocialLink(row)
		if err != nil {
			return model.SocialLink{}, err
		}
		return *l, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning social links: %w", err)
	}
	if links == nil {
		links = []model.SocialLink{}
	}
	return links, nil
}

func (db *DB) SocialLinkOwner(ctx context.Context, id string) (string, error) {
	var owner string
	err := db.pool.QueryRow(ctx, `SELECT user_id FROM social_links WHERE id = $1`, id).Scan(&owner)
	if isNoRows(err) {
		return "", apperror.NotFound("social link", id)
	}
	if err != nil {
		return "", fmt.Errorf("postgres: getting owner of social link %s: %w", id, err)
	}
	return owner, nil
}

func (db *DB) UpdateSocialLink(ctx context.Context, link *model.SocialLink) error {
	updated, err := scanSocialLink(db.pool.QueryRow(ctx,
		`UPDATE social_links SET platform = $1, url = $2
		 WHERE id = $3 AND user_id = $4
		 RETURNING `+socialLinkColumns,
		string(link.Platform), link.URL, link.ID, link.UserID,
	))
	if isNoRows(err) {
		return apperror.NotFound("social link", link.ID)
	}
	if err != nil {
		return fmt.Errorf("postgres: updating social link %s: %w", link.ID, err)
	}
	*link = *updated
	return nil
}

func (db *DB) DeleteSocialLink(ctx context.Context, id, userID string) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM social_links WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("postgres: deleting social link %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("social link", id)
	}
	return nil
}

func scanSocialLink(row pgx.Row) (*model.SocialLink, error) {
	var (
		l        model.SocialLink
		platform string
	)
	if err := row.Scan(&l.ID, &l.UserID, &platform, &l.URL, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.Platform = model.Platform(platform)
	return &l, nil
}
