package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

// echoUser writes the context user id, or "anonymous".
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	id, ok := UserIDFromContext(r.Context())
	if !ok {
		id = "anonymous"
	}
	w.Write([]byte(id))
})

func requestWithToken(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		r.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	}
	return r
}

func TestRequireAuth(t *testing.T) {
	ts := newTestTokenService(t)
	token, _ := ts.Generate("user-1")
	h := RequireAuth(ts)(echoUser)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithToken(token))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithToken(""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"unauthorized"`)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestRequirePage_RedirectsAnonymous(t *testing.T) {
	ts := newTestTokenService(t)
	h := RequirePage(ts, "/sign-up")(echoUser)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithToken("bogus"))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/sign-up", rec.Header().Get("Location"))
}

func TestOptionalAuth(t *testing.T) {
	ts := newTestTokenService(t)
	token, _ := ts.Generate("user-1")
	h := OptionalAuth(ts)(echoUser)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithToken(token))
	assert.Equal(t, "user-1", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithToken("expired-or-garbage"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())
}
