package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/treebio/internal/apperror"
	"github.com/sakif/treebio/internal/auth"
	"github.com/sakif/treebio/internal/service"
)

type AnalyticsHandler struct {
	analytics *service.AnalyticsService
	logger    *slog.Logger
}

func NewAnalyticsHandler(analytics *service.AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, logger: logger}
}

// HandleVisits returns one zero-filled bucket per UTC day, oldest first.
// days defaults to 30 and is clamped to 1..365.
//
// HTTP: GET /api/analytics/visits?days=30
func (h *AnalyticsHandler) HandleVisits(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, apperror.ValidationFailed("days", "days must be a whole number"))
			return
		}
		days = n
	}

	counts, err := h.analytics.DailyVisits(r.Context(), userID, days)
	if err != nil {
		logIfInternal(h.logger, "loading daily visits failed", err, slog.String("userID", userID))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// HandleSummary returns the dashboard totals.
//
// HTTP: GET /api/analytics/summary
func (h *AnalyticsHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	summary, err := h.analytics.Summary(r.Context(), userID)
	if err != nil {
		logIfInternal(h.logger, "loading summary failed", err, slog.String("userID", userID))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
