package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/treebio/internal/apperror"
	"github.com/sakif/treebio/internal/model"
)

const userColumns = `id, external_id, first_name, last_name, email, avatar_url, bio, username, created_at, updated_at`

// Upsert inserts the user or refreshes the provider-owned fields of the
// existing row with the same external_id, returning the stored row.
func (db *DB) Upsert(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	row := db.pool.QueryRow(ctx,
		`INSERT INTO users (id, external_id, first_name, last_name, email, avatar_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		 ON CONFLICT (external_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name  = EXCLUDED.last_name,
			email      = EXCLUDED.email,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = EXCLUDED.updated_at
		 RETURNING `+userColumns,
		xid.New().String(), user.ExternalID, user.FirstName, user.LastName, user.Email, user.AvatarURL, now,
	)
	stored, err := scanUser(row)
	if err != nil {
		return fmt.Errorf("postgres: upserting user (externalID=%s): %w", user.ExternalID, err)
	}
	*user = *stored
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if isNoRows(err) {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: getting user %s: %w", id, err)
	}
	return u, nil
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(db.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if isNoRows(err) {
		return nil, apperror.NotFound("user", username)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: getting user by username %q: %w", username, err)
	}
	return u, nil
}

func (db *DB) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: checking username %q: %w", username, err)
	}
	return exists, nil
}

func (db *DB) SetUsername(ctx context.Context, userID, username string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE users SET username = $1, updated_at = $2 WHERE id = $3`,
		username, time.Now().UTC(), userID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.UsernameTaken(username)
		}
		return fmt.Errorf("postgres: setting username for %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("user", userID)
	}
	return nil
}

func (db *DB) UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error) {
	// COALESCE keeps the current username when none is supplied.
	u, err := scanUser(db.pool.QueryRow(ctx,
		`UPDATE users
		 SET first_name = $1, last_name = $2, bio = $3, avatar_url = $4,
		     username = COALESCE($5, username), updated_at = $6
		 WHERE id = $7
		 RETURNING `+userColumns,
		update.FirstName, update.LastName, update.Bio, update.AvatarURL, update.Username, time.Now().UTC(), userID,
	))
	switch {
	case isNoRows(err):
		return nil, apperror.NotFound("user", userID)
	case isUniqueViolation(err) && update.Username != nil:
		return nil, apperror.UsernameTaken(*update.Username)
	case err != nil:
		return nil, fmt.Errorf("postgres: updating profile for %s: %w", userID, err)
	}
	return u, nil
}

func scanUser(row interface{ Scan(dest ...any) error }) (*model.User, error) {
	var u model.User
	if err := row.Scan(
		&u.ID, &u.ExternalID, &u.FirstName, &u.LastName, &u.Email,
		&u.AvatarURL, &u.Bio, &u.Username, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}
