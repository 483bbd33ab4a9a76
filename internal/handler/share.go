package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/treebio/internal/apperror"
	"github.com/sakif/treebio/internal/auth"
	"github.com/sakif/treebio/internal/share"
)

type ShareHandler struct {
	users   userLookup
	baseURL string
	logger  *slog.Logger
}

func NewShareHandler(users userLookup, baseURL string, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{users: users, baseURL: baseURL, logger: logger}
}

type ShareResponse struct {
	ProfileURL string         `json:"profileUrl"`
	Targets    []share.Target `json:"targets"`
}

// HandleShare returns the public profile URL and one share link per network.
//
// HTTP: GET /api/share
func (h *ShareHandler) HandleShare(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.users.CurrentUser(r.Context(), userID)
	if err != nil {
		logIfInternal(h.logger, "loading user for share failed", err, slog.String("userID", userID))
		writeError(w, err)
		return
	}
	if !user.HasUsername() {
		writeError(w, apperror.ValidationFailed("username", "Claim a username before sharing your page"))
		return
	}

	profileURL := share.ProfileURL(h.baseURL, *user.Username)
	writeJSON(w, http.StatusOK, ShareResponse{
		ProfileURL: profileURL,
		Targets:    share.Targets(profileURL),
	})
}
