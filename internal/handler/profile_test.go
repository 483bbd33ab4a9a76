package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/treebio/internal/model"
	"github.com/sakif/treebio/internal/service"
)

func TestHandleCheckUsername(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "github:1", "ada")
	h := NewProfileHandler(env.profiles, env.logger)

	t.Run("free", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleCheckUsername(rr, httptest.NewRequest(http.MethodGet, "/api/username/check?username=grace", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		got := decode[service.Availability](t, rr)
		assert.True(t, got.Available)
		assert.Empty(t, got.Suggestions)
	})

	t.Run("taken", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleCheckUsername(rr, httptest.NewRequest(http.MethodGet, "/api/username/check?username=ada", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		got := decode[service.Availability](t, rr)
		assert.False(t, got.Available)
		assert.NotEmpty(t, got.Suggestions)
		assert.LessOrEqual(t, len(got.Suggestions), 3)
		assert.NotContains(t, got.Suggestions, "ada")
	})

	t.Run("empty", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleCheckUsername(rr, httptest.NewRequest(http.MethodGet, "/api/username/check", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"available":false,"suggestions":[]}`, rr.Body.String())
	})

	t.Run("malformed", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleCheckUsername(rr, httptest.NewRequest(http.MethodGet, "/api/username/check?username=a+b", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHandleClaimUsername(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "github:1", "ada")
	bob := env.createUser(t, "github:2", "")
	h := NewProfileHandler(env.profiles, env.logger)

	claim := func(body string) *httptest.ResponseRecorder {
		req := asUser(httptest.NewRequest(http.MethodPost, "/api/username/claim", strings.NewReader(body)), bob.ID)
		rr := httptest.NewRecorder()
		h.HandleClaimUsername(rr, req)
		return rr
	}

	rr := claim(`{"username":"ada"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "username_taken", decode[ErrorResponse](t, rr).Error)

	rr = claim(`{"username":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "username", decode[ErrorResponse](t, rr).Field)

	rr = claim(`not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = claim(`{"username":"bob_builds"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"username":"bob_builds"}`, rr.Body.String())
}

func TestHandleProfile_GetAndUpdate(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "github:1", "ada")
	h := NewProfileHandler(env.profiles, env.logger)

	rr := httptest.NewRecorder()
	h.HandleGetProfile(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/profile", nil), user.ID))
	require.Equal(t, http.StatusOK, rr.Code)
	profile := decode[model.PublicProfile](t, rr)
	assert.Equal(t, user.ID, profile.User.ID)
	assert.NotNil(t, profile.Links)
	assert.NotNil(t, profile.SocialLinks)

	body := `{"firstName":"Augusta","lastName":"King","username":"countess","bio":"Analyst","imageUrl":"https://img.test/a.png"}`
	rr = httptest.NewRecorder()
	h.HandleUpdateProfile(rr, asUser(httptest.NewRequest(http.MethodPut, "/api/profile", strings.NewReader(body)), user.ID))
	require.Equal(t, http.StatusOK, rr.Code)
	updated := decode[model.User](t, rr)
	assert.Equal(t, "Augusta", updated.FirstName)
	assert.Equal(t, "countess", *updated.Username)
	assert.Equal(t, "https://img.test/a.png", updated.AvatarURL)

	rr = httptest.NewRecorder()
	h.HandleUpdateProfile(rr, asUser(httptest.NewRequest(http.MethodPut, "/api/profile", strings.NewReader(`{"firstName":""}`)), user.ID))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "firstName", decode[ErrorResponse](t, rr).Field)
}
