package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/treebio/internal/apperror"
	"github.com/sakif/treebio/internal/model"
)

func newProfileService(store *fakeStore) *ProfileService {
	return NewProfileService(store, store, store, testLogger())
}

func TestCheckAvailability_EmptyUsername(t *testing.T) {
	store := newFakeStore()
	svc := newProfileService(store)

	got, err := svc.CheckAvailability(context.Background(), "   ")
	require.NoError(t, err)
	assert.False(t, got.Available)
	assert.Empty(t, got.Suggestions)
	assert.Zero(t, store.existsCalls, "empty username must not hit storage")
}

func TestCheckAvailability_Free(t *testing.T) {
	svc := newProfileService(newFakeStore())

	got, err := svc.CheckAvailability(context.Background(), "fresh_name")
	require.NoError(t, err)
	assert.True(t, got.Available)
	assert.Empty(t, got.Suggestions)
}

func TestCheckAvailability_InvalidFormat(t *testing.T) {
	svc := newProfileService(newFakeStore())

	for _, name := range []string{"ab", "has space", "dash-ed", strings.Repeat("a", 31)} {
		_, err := svc.CheckAvailability(context.Background(), name)
		assert.ErrorIs(t, err, apperror.ErrValidation, name)
	}
}

func TestCheckAvailability_TakenSuggestsFreeNames(t *testing.T) {
	for _, taken := range []string{"ada", "alice_smith", strings.Repeat("z", 30), "A1_b2"} {
		t.Run(taken, func(t *testing.T) {
			store := newFakeStore()
			store.addUser(taken)
			svc := newProfileService(store)

			got, err := svc.CheckAvailability(context.Background(), taken)
			require.NoError(t, err)
			assert.False(t, got.Available)
			require.NotEmpty(t, got.Suggestions)
			assert.LessOrEqual(t, len(got.Suggestions), 3)

			seen := map[string]bool{}
			for _, s := range got.Suggestions {
				assert.False(t, seen[s], "duplicate suggestion %q", s)
				seen[s] = true
				assert.NoError(t, validateUsername(s), "suggestion %q breaks the username rule", s)

				again, err := svc.CheckAvailability(context.Background(), s)
				require.NoError(t, err)
				assert.True(t, again.Available, "suggestion %q should be free", s)
			}
		})
	}
}

func TestCheckAvailability_BoundedStorageChecks(t *testing.T) {
	store := newFakeStore()
	store.addUser("ada")
	svc := newProfileService(store)
	// every candidate collides with an existing name
	svc.intN = func(int) int { return 0 }
	store.addUser("ada1")
	store.addUser("ada_1")
	store.addUser("ada_official")

	got, err := svc.CheckAvailability(context.Background(), "ada")
	require.NoError(t, err)
	assert.False(t, got.Available)
	// one check for the name itself, at most ten for suggestions
	assert.LessOrEqual(t, store.existsCalls, 1+maxSuggestionTries)
}

func TestCheckAvailability_StorageError(t *testing.T) {
	store := newFakeStore()
	store.existsErr = errors.New("db down")
	svc := newProfileService(store)

	_, err := svc.CheckAvailability(context.Background(), "ada")
	assert.ErrorContains(t, err, "db down")
}

func TestUsernameCandidates(t *testing.T) {
	calls := 0
	intN := func(n int) int { calls++; return calls % n }

	got := usernameCandidates(strings.Repeat("x", 30), 10, intN)
	require.Len(t, got, 10)
	for _, c := range got {
		assert.LessOrEqual(t, len(c), MaxUsernameLength)
		assert.True(t, usernamePattern.MatchString(c))
	}
}

func TestClaimUsername(t *testing.T) {
	store := newFakeStore()
	svc := newProfileService(store)
	ada := store.addUser("")
	bob := store.addUser("")
	ctx := context.Background()

	require.NoError(t, svc.ClaimUsername(ctx, ada, " ada "))
	got, _ := store.GetUserByID(ctx, ada)
	assert.Equal(t, "ada", *got.Username)

	err := svc.ClaimUsername(ctx, bob, "ada")
	assert.ErrorIs(t, err, apperror.ErrUsernameTaken)

	assert.ErrorIs(t, svc.ClaimUsername(ctx, bob, "no way"), apperror.ErrValidation)
	assert.ErrorIs(t, svc.ClaimUsername(ctx, bob, "Admin"), apperror.ErrValidation)
	assert.ErrorIs(t, svc.ClaimUsername(ctx, "", "bob"), apperror.ErrUnauthorized)
}

func TestClaimUsername_ConcurrentClaimsExactlyOneWins(t *testing.T) {
	store := newFakeStore()
	svc := newProfileService(store)

	const claimants = 10
	ids := make([]string, claimants)
	for i := range ids {
		ids[i] = store.addUser("")
	}

	var wg sync.WaitGroup
	errs := make([]error, claimants)
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = svc.ClaimUsername(context.Background(), id, "contested")
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, apperror.ErrUsernameTaken)
	}
	assert.Equal(t, 1, wins)
}

func TestUpdateProfile(t *testing.T) {
	store := newFakeStore()
	svc := newProfileService(store)
	id := store.addUser("ada")
	ctx := context.Background()

	user, err := svc.UpdateProfile(ctx, id, ProfileInput{
		FirstName: " Ada ",
		LastName:  "Lovelace",
		Bio:       "first programmer",
		ImageURL:  "https://example.com/ada.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.FirstName)
	assert.Equal(t, "https://example.com/ada.png", user.AvatarURL)
	assert.Equal(t, "ada", *user.Username, "empty username keeps the current one")
}

func TestUpdateProfile_Validation(t *testing.T) {
	svc := newProfileService(newFakeStore())

	tests := []struct {
		name      string
		in        ProfileInput
		wantField string
		wantMsg   string
	}{
		{"missing first name", ProfileInput{}, "firstName", "First name is required"},
		{"long last name", ProfileInput{FirstName: "A", LastName: strings.Repeat("b", 51)}, "lastName", "Last name must be less than 50 characters"},
		{"short username", ProfileInput{FirstName: "A", Username: "ab"}, "username", "Username must be at least 3 characters"},
		{"bad username", ProfileInput{FirstName: "A", Username: "a-b-c"}, "username", "Username can only contain letters, numbers, and underscores"},
		{"long bio", ProfileInput{FirstName: "A", Bio: strings.Repeat("b", 501)}, "bio", "Bio must be less than 500 characters"},
		{"bad image", ProfileInput{FirstName: "A", ImageURL: "not a url"}, "imageUrl", "Please enter a valid image URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateProfile(context.Background(), "user-1", tt.in)
			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.ErrorIs(t, err, apperror.ErrValidation)
			assert.Equal(t, tt.wantField, appErr.Field)
			assert.Equal(t, tt.wantMsg, appErr.Message)
		})
	}
}

func TestUpdateProfile_UsernameTaken(t *testing.T) {
	store := newFakeStore()
	svc := newProfileService(store)
	store.addUser("ada")
	bob := store.addUser("bob")

	_, err := svc.UpdateProfile(context.Background(), bob, ProfileInput{FirstName: "Bob", Username: "ada"})
	assert.ErrorIs(t, err, apperror.ErrUsernameTaken)
}

func TestPublicProfile(t *testing.T) {
	store := newFakeStore()
	svc := newProfileService(store)
	id := store.addUser("ada")
	ctx := context.Background()
	require.NoError(t, store.CreateLink(ctx, &model.Link{UserID: id, Title: "Blog", URL: "https://ada.dev"}))
	require.NoError(t, store.CreateSocialLink(ctx, &model.SocialLink{UserID: id, Platform: model.PlatformGitHub, URL: "https://github.com/ada"}))

	profile, err := svc.PublicProfile(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, id, profile.User.ID)
	assert.Len(t, profile.Links, 1)
	assert.Len(t, profile.SocialLinks, 1)

	_, err = svc.PublicProfile(ctx, "nobody")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.PublicProfile(ctx, "")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestProfile_Own(t *testing.T) {
	store := newFakeStore()
	svc := newProfileService(store)
	id := store.addUser("ada")

	profile, err := svc.Profile(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "ada", *profile.User.Username)
	assert.NotNil(t, profile.Links)

	_, err = svc.Profile(context.Background(), "")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}
