package handler

// Every JSON error from the API has the same shape:
//
//	{"error": "not_found", "message": "link not found with id abc123"}
//
// writeError is the single place where domain errors become status codes,
// so services never import net/http.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/treebio/internal/apperror"
	"github.com/sakif/treebio/internal/preview"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable type, e.g. "not_found"
	Message string `json:"message"` // human-readable description
	Field   string `json:"field,omitempty"`
}

// writeJSON sends data with the given status. Headers must be set before
// the body is written, so the order here matters.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// headers are already sent, all we can do is log
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status and sends it.
//
//	apperror.ErrValidation    → 400 validation_error
//	apperror.ErrUnauthorized  → 401 unauthorized
//	apperror.ErrForbidden     → 403 forbidden
//	apperror.ErrNotFound      → 404 not_found
//	apperror.ErrUsernameTaken → 409 username_taken
//	apperror.ErrConflict      → 409 conflict
//	*preview.Error            → 400 / 502 / 504 (blocked addresses are 400)
//
// Anything else is a 500 with a generic message: raw errors can carry SQL
// or file paths and never reach the client.
func writeError(w http.ResponseWriter, err error) {
	var pe *preview.Error
	if errors.As(err, &pe) {
		writePreviewError(w, pe)
		return
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrUsernameTaken):
			status = http.StatusConflict
			errorType = "username_taken"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
			Field:   appErr.Field,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

func writePreviewError(w http.ResponseWriter, pe *preview.Error) {
	status := http.StatusBadGateway
	errorType := "bad_gateway"
	switch pe.Type {
	case preview.ErrorTypeInvalidURL, preview.ErrorTypeBlocked:
		status = http.StatusBadRequest
		errorType = "validation_error"
	case preview.ErrorTypeTimeout:
		status = http.StatusGatewayTimeout
		errorType = "timeout"
	}

	msg := pe.UserMessage()
	if pe.Type == preview.ErrorTypeInvalidURL {
		msg = pe.Message
	}
	writeJSON(w, status, ErrorResponse{Error: errorType, Message: msg})
}

// decodeJSON reads a single JSON object from the request body into dst.
// A malformed body is a validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apperror.ValidationFailed("", "Request body is too large")
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("", "Request body is required")
		default:
			return apperror.ValidationFailed("", "Invalid JSON body")
		}
	}
	return nil
}

// logIfInternal logs errors that writeError will turn into a 500.
func logIfInternal(logger *slog.Logger, msg string, err error, attrs ...any) {
	var appErr *apperror.AppError
	var pe *preview.Error
	if errors.As(err, &appErr) || errors.As(err, &pe) {
		return
	}
	logger.Error(msg, append(attrs, slog.String("error", err.Error()))...)
}
