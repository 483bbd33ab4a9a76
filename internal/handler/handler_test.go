package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/treebio/internal/auth"
	"github.com/sakif/treebio/internal/model"
	sqliteRepo "github.com/sakif/treebio/internal/repository/sqlite"
	"github.com/sakif/treebio/internal/service"
)

const testBaseURL = "https://treebio.test"

// testEnv wires the real services over an in-memory SQLite store, so
// handler tests exercise the same path as production minus the router.
type testEnv struct {
	store     *sqliteRepo.DB
	tokens    *auth.TokenService
	identity  *service.IdentityService
	profiles  *service.ProfileService
	links     *service.LinkService
	socials   *service.SocialLinkService
	analytics *service.AnalyticsService
	logger    *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testEnv{
		store:     store,
		tokens:    tokens,
		identity:  service.NewIdentityService(store, tokens, logger),
		profiles:  service.NewProfileService(store, store, store, logger),
		links:     service.NewLinkService(store, logger),
		socials:   service.NewSocialLinkService(store, logger),
		analytics: service.NewAnalyticsService(store, "test-key", logger),
		logger:    logger,
	}
}

// createUser stores a user and, when username is non-empty, claims it.
func (e *testEnv) createUser(t *testing.T, externalID, username string) *model.User {
	t.Helper()
	ctx := context.Background()

	u := &model.User{ExternalID: externalID, FirstName: "Ada", LastName: "Lovelace"}
	require.NoError(t, e.store.Upsert(ctx, u))
	if username != "" {
		require.NoError(t, e.store.SetUsername(ctx, u.ID, username))
	}
	got, err := e.store.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	return got
}

// asUser attaches a signed-in user to the request, as RequireAuth would.
func asUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(auth.WithUserID(r.Context(), userID))
}

// withURLParam sets a chi route parameter without going through a router.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "body: %s", rr.Body.String())
	return v
}
