package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/treebio/internal/auth"
	"github.com/sakif/treebio/internal/service"
)

// ProfileHandler serves username claiming and the profile editor API.
type ProfileHandler struct {
	profiles *service.ProfileService
	logger   *slog.Logger
}

func NewProfileHandler(profiles *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// HandleCheckUsername reports whether a username is free and, if not,
// suggests alternatives.
//
// HTTP: GET /api/username/check?username=ada
func (h *ProfileHandler) HandleCheckUsername(w http.ResponseWriter, r *http.Request) {
	availability, err := h.profiles.CheckAvailability(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		logIfInternal(h.logger, "checking username failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, availability)
}

type claimRequest struct {
	Username string `json:"username"`
}

// HandleClaimUsername sets the caller's username. A lost race with another
// user answers 409 username_taken.
//
// HTTP: POST /api/username/claim
// REQUEST BODY: {"username": "ada"}
func (h *ProfileHandler) HandleClaimUsername(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req claimRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.profiles.ClaimUsername(r.Context(), userID, req.Username); err != nil {
		logIfInternal(h.logger, "claiming username failed", err, slog.String("userID", userID))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "username": req.Username})
}

// HandleGetProfile returns the caller's profile with links and social links.
//
// HTTP: GET /api/profile
func (h *ProfileHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	profile, err := h.profiles.Profile(r.Context(), userID)
	if err != nil {
		logIfInternal(h.logger, "loading profile failed", err, slog.String("userID", userID))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleUpdateProfile saves the editable profile fields.
//
// HTTP: PUT /api/profile
// REQUEST BODY: {"firstName": "Ada", "lastName": "", "username": "ada", "bio": "", "imageUrl": ""}
func (h *ProfileHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var in service.ProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.profiles.UpdateProfile(r.Context(), userID, in)
	if err != nil {
		logIfInternal(h.logger, "updating profile failed", err, slog.String("userID", userID))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
