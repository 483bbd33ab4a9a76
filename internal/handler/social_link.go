package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/treebio/internal/auth"
	"github.com/sakif/treebio/internal/service"
)

// SocialLinkHandler is the social-link CRUD API.
type SocialLinkHandler struct {
	socials *service.SocialLinkService
	logger  *slog.Logger
}

func NewSocialLinkHandler(socials *service.SocialLinkService, logger *slog.Logger) *SocialLinkHandler {
	return &SocialLinkHandler{socials: socials, logger: logger}
}

// HTTP: GET /api/social-links
func (h *SocialLinkHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	links, err := h.socials.List(r.Context(), userID)
	if err != nil {
		logIfInternal(h.logger, "listing social links failed", err, slog.String("userID", userID))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

// HTTP: POST /api/social-links
// REQUEST BODY: {"platform": "github", "url": "https://github.com/ada"}
func (h *SocialLinkHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var in service.SocialLinkInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	link, err := h.socials.Create(r.Context(), userID, in)
	if err != nil {
		logIfInternal(h.logger, "creating social link failed", err, slog.String("userID", userID))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

// HTTP: PUT /api/social-links/{id}
func (h *SocialLinkHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var in service.SocialLinkInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	link, err := h.socials.Update(r.Context(), userID, id, in)
	if err != nil {
		logIfInternal(h.logger, "updating social link failed", err, slog.String("id", id))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// HTTP: DELETE /api/social-links/{id}
func (h *SocialLinkHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.socials.Delete(r.Context(), userID, id); err != nil {
		logIfInternal(h.logger, "deleting social link failed", err, slog.String("id", id))
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
