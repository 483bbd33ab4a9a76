package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/treebio/internal/apperror"
	"github.com/sakif/treebio/internal/model"
)

func TestUpsert_CreatesUser(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		ExternalID: "github:42",
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
		AvatarURL:  "https://example.com/ada.png",
	}
	require.NoError(t, db.Upsert(context.Background(), user))

	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())
	assert.Nil(t, user.Username)
	assert.Equal(t, "Lovelace", user.LastName)
}

func TestUpsert_IsIdempotentAndRefreshesProviderFields(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := createTestUser(t, db, "github:42", "Ada")
	require.NoError(t, db.SetUsername(ctx, first.ID, "ada"))
	_, err := db.UpdateProfile(ctx, first.ID, model.ProfileUpdate{FirstName: "Ada", Bio: "math"})
	require.NoError(t, err)

	again := &model.User{ExternalID: "github:42", FirstName: "Augusta", Email: "new@example.com"}
	require.NoError(t, db.Upsert(ctx, again))

	assert.Equal(t, first.ID, again.ID, "same external id must map to the same user")
	assert.Equal(t, "Augusta", again.FirstName)
	assert.Equal(t, "new@example.com", again.Email)
	assert.Equal(t, "math", again.Bio, "bio is not owned by the identity provider")
	require.NotNil(t, again.Username)
	assert.Equal(t, "ada", *again.Username)

	var count int
	require.NoError(t, db.conn.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestGetUserByUsername(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "github:1", "Ada")
	require.NoError(t, db.SetUsername(ctx, user.ID, "ada_l"))

	got, err := db.GetUserByUsername(ctx, "ada_l")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = db.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUsernameExists(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "github:1", "Ada")

	exists, err := db.UsernameExists(ctx, "ada")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, db.SetUsername(ctx, user.ID, "ada"))

	exists, err = db.UsernameExists(ctx, "ada")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSetUsername_Taken(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ada := createTestUser(t, db, "github:1", "Ada")
	bob := createTestUser(t, db, "github:2", "Bob")

	require.NoError(t, db.SetUsername(ctx, ada.ID, "shared"))

	err := db.SetUsername(ctx, bob.ID, "shared")
	assert.ErrorIs(t, err, apperror.ErrUsernameTaken)
}

func TestSetUsername_UnknownUser(t *testing.T) {
	db := newTestDB(t)

	err := db.SetUsername(context.Background(), "ghost", "ghost")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestSetUsername_ConcurrentClaimsExactlyOneWins(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	const claimants = 8
	users := make([]*model.User, claimants)
	for i := range users {
		users[i] = createTestUser(t, db, "github:"+string(rune('a'+i)), "User")
	}

	var (
		wg   sync.WaitGroup
		errs = make([]error, claimants)
	)
	for i, u := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = db.SetUsername(ctx, u.ID, "contested")
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, apperror.ErrUsernameTaken):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
}

func TestUpdateProfile(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "github:1", "Ada")

	username := "ada"
	got, err := db.UpdateProfile(ctx, user.ID, model.ProfileUpdate{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Bio:       "first programmer",
		AvatarURL: "https://example.com/a.png",
		Username:  &username,
	})
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", got.LastName)
	assert.Equal(t, "first programmer", got.Bio)
	require.NotNil(t, got.Username)
	assert.Equal(t, "ada", *got.Username)

	// nil Username leaves the stored username alone
	got, err = db.UpdateProfile(ctx, user.ID, model.ProfileUpdate{FirstName: "Ada"})
	require.NoError(t, err)
	require.NotNil(t, got.Username)
	assert.Equal(t, "ada", *got.Username)
}

func TestUpdateProfile_UsernameTaken(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ada := createTestUser(t, db, "github:1", "Ada")
	bob := createTestUser(t, db, "github:2", "Bob")
	require.NoError(t, db.SetUsername(ctx, ada.ID, "ada"))

	taken := "ada"
	_, err := db.UpdateProfile(ctx, bob.ID, model.ProfileUpdate{FirstName: "Bob", Username: &taken})
	assert.ErrorIs(t, err, apperror.ErrUsernameTaken)
}
