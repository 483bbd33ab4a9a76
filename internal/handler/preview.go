package handler

import (
	"net/http"

	"github.com/sakif/treebio/internal/preview"
)

// PreviewHandler backs the link editor's preview card.
type PreviewHandler struct {
	previews *preview.Service
}

func NewPreviewHandler(previews *preview.Service) *PreviewHandler {
	return &PreviewHandler{previews: previews}
}

// HandlePreview fetches Open Graph metadata for ?url=. The fetch is bound to
// the request context, so a client that goes away cancels it.
//
// HTTP: GET /api/og-data?url=https://example.com
func (h *PreviewHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	md, err := h.previews.Fetch(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, md)
}
