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

const socialLinkColumns = `id, user_id, platform, url, created_at`

func (db *DB) CreateSocialLink(ctx context.Context, link *model.SocialLink) error {
	link.ID = xid.New().String()
	link.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO social_links (`+socialLinkColumns+`) VALUES (?, ?, ?, ?, ?)`,
		link.ID,
		link.UserID,
		string(link.Platform),
		link.URL,
		link.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating social link: %w", err)
	}
	return nil
}

func (db *DB) ListSocialLinks(ctx context.Context, userID string) ([]model.SocialLink, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+socialLinkColumns+`
		 FROM social_links
		 WHERE user_id = ?
		 ORDER BY created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing social links: %w", err)
	}
	defer rows.Close()

	links := make([]model.SocialLink, 0)
	for rows.Next() {
		l, err := scanSocialLink(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning social link row: %w", err)
		}
		links = append(links, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating social links: %w", err)
	}
	return links, nil
}

func (db *DB) SocialLinkOwner(ctx context.Context, id string) (string, error) {
	var owner string
	err := db.conn.QueryRowContext(ctx, `SELECT user_id FROM social_links WHERE id = ?`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperror.NotFound("social link", id)
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: getting owner of social link %s: %w", id, err)
	}
	return owner, nil
}

// UpdateSocialLink changes platform and url, matching on id and owner.
func (db *DB) UpdateSocialLink(ctx context.Context, link *model.SocialLink) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE social_links SET platform = ?, url = ?
		 WHERE id = ? AND user_id = ?`,
		string(link.Platform),
		link.URL,
		link.ID,
		link.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating social link %s: %w", link.ID, err)
	}
	if err := rowsAffected(result, apperror.NotFound("social link", link.ID)); err != nil {
		return err
	}

	updated, err := scanSocialLink(db.conn.QueryRowContext(ctx,
		`SELECT `+socialLinkColumns+` FROM social_links WHERE id = ?`, link.ID,
	))
	if err != nil {
		return fmt.Errorf("sqlite: reading back social link %s: %w", link.ID, err)
	}
	*link = *updated
	return nil
}

func (db *DB) DeleteSocialLink(ctx context.Context, id, userID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM social_links WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting social link %s: %w", id, err)
	}
	return rowsAffected(result, apperror.NotFound("social link", id))
}

func scanSocialLink(s scanner) (*model.SocialLink, error) {
	var (
		l        model.SocialLink
		platform string
	)
	if err := s.Scan(&l.ID, &l.UserID, &platform, &l.URL, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.Platform = model.Platform(platform)
	return &l, nil
}
