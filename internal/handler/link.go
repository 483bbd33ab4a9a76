package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/treebio/internal/apperror"
	"github.com/sakif/treebio/internal/auth"
	"github.com/sakif/treebio/internal/service"
)

// LinkHandler is the link CRUD API plus the public click-through redirect.
type LinkHandler struct {
	links  *service.LinkService
	logger *slog.Logger
}

func NewLinkHandler(links *service.LinkService, logger *slog.Logger) *LinkHandler {
	return &LinkHandler{links: links, logger: logger}
}

// HandleList returns the caller's links in creation order.
//
// HTTP: GET /api/links
func (h *LinkHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	links, err := h.links.List(r.Context(), userID)
	if err != nil {
		logIfInternal(h.logger, "listing links failed", err, slog.String("userID", userID))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

// HandleCreate adds a link owned by the caller.
//
// HTTP: POST /api/links
// REQUEST BODY: {"title": "Blog", "url": "https://ada.dev", "description": ""}
func (h *LinkHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var in service.LinkInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	link, err := h.links.Create(r.Context(), userID, in)
	if err != nil {
		logIfInternal(h.logger, "creating link failed", err, slog.String("userID", userID))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

// HandleUpdate edits one of the caller's links.
//
// HTTP: PUT /api/links/{id}
func (h *LinkHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var in service.LinkInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	link, err := h.links.Update(r.Context(), userID, id, in)
	if err != nil {
		logIfInternal(h.logger, "updating link failed", err, slog.String("id", id))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// HandleDelete removes one of the caller's links.
//
// HTTP: DELETE /api/links/{id}
func (h *LinkHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.links.Delete(r.Context(), userID, id); err != nil {
		logIfInternal(h.logger, "deleting link failed", err, slog.String("id", id))
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRedirect counts a click and sends the visitor to the link target.
//
// HTTP: GET /go/{id}
func (h *LinkHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	link, err := h.links.RecordClick(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("recording click failed", slog.String("id", id), slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, link.URL, http.StatusFound)
}
