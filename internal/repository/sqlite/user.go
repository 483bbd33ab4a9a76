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

const userColumns = `id, external_id, first_name, last_name, email, avatar_url, bio, username, created_at, updated_at`

// Upsert inserts or updates a user keyed on their external identity.
//
// ON CONFLICT(external_id) DO UPDATE keeps the existing internal id and
// created_at, and refreshes only what the identity provider owns (name,
// email, avatar). Bio and username belong to the user and are never touched
// here. After the write we SELECT the row back so the caller gets the
// canonical record.
func (db *DB) Upsert(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, external_id, first_name, last_name, email, avatar_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(external_id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name  = excluded.last_name,
			email      = excluded.email,
			avatar_url = excluded.avatar_url,
			updated_at = excluded.updated_at`,
		xid.New().String(),
		user.ExternalID,
		user.FirstName,
		user.LastName,
		user.Email,
		user.AvatarURL,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting user (externalID=%s): %w", user.ExternalID, err)
	}

	stored, err := db.getUser(ctx, `external_id = ?`, user.ExternalID)
	if err != nil {
		return fmt.Errorf("sqlite: reading back user (externalID=%s): %w", user.ExternalID, err)
	}
	*user = *stored
	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := db.getUser(ctx, `id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByUsername looks up the owner of a public profile.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := db.getUser(ctx, `username = ?`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", username)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user by username %q: %w", username, err)
	}
	return u, nil
}

// UsernameExists reports whether any user holds username.
func (db *DB) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)`, username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking username %q: %w", username, err)
	}
	return exists, nil
}

// SetUsername writes the username unconditionally. If another user already
// holds it, the UNIQUE constraint fails and we return apperror.UsernameTaken.
func (db *DB) SetUsername(ctx context.Context, userID, username string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET username = ?, updated_at = ? WHERE id = ?`,
		username, time.Now().UTC(), userID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.UsernameTaken(username)
		}
		return fmt.Errorf("sqlite: setting username for %s: %w", userID, err)
	}
	return rowsAffected(result, apperror.NotFound("user", userID))
}

// UpdateProfile saves the editable profile fields and returns the new row.
func (db *DB) UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error) {
	query := `UPDATE users SET first_name = ?, last_name = ?, bio = ?, avatar_url = ?, updated_at = ?`
	args := []any{update.FirstName, update.LastName, update.Bio, update.AvatarURL, time.Now().UTC()}
	if update.Username != nil {
		query += `, username = ?`
		args = append(args, *update.Username)
	}
	query += ` WHERE id = ?`
	args = append(args, userID)

	result, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) && update.Username != nil {
			return nil, apperror.UsernameTaken(*update.Username)
		}
		return nil, fmt.Errorf("sqlite: updating profile for %s: %w", userID, err)
	}
	if err := rowsAffected(result, apperror.NotFound("user", userID)); err != nil {
		return nil, err
	}

	return db.GetUserByID(ctx, userID)
}

// getUser runs a single-row SELECT with the given WHERE clause. It returns
// sql.ErrNoRows untouched so callers can pick their own not-found message.
func (db *DB) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User
	err := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where, arg,
	).Scan(
		&u.ID,
		&u.ExternalID,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.AvatarURL,
		&u.Bio,
		&u.Username,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
