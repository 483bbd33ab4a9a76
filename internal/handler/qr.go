package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/treebio/internal/apperror"
	"github.com/sakif/treebio/internal/auth"
	"github.com/sakif/treebio/internal/model"
	"github.com/sakif/treebio/internal/qrcode"
	"github.com/sakif/treebio/internal/share"
)

// userLookup resolves the signed-in user. *service.IdentityService
// implements it.
type userLookup interface {
	CurrentUser(ctx context.Context, userID string) (*model.User, error)
}

// QRHandler backs the QR tool. Data defaults to the caller's public profile
// URL.
type QRHandler struct {
	qr      *qrcode.Builder
	users   userLookup
	baseURL string
	logger  *slog.Logger
}

func NewQRHandler(qr *qrcode.Builder, users userLookup, baseURL string, logger *slog.Logger) *QRHandler {
	return &QRHandler{qr: qr, users: users, baseURL: baseURL, logger: logger}
}

// QRResponse is what the QR tool renders.
type QRResponse struct {
	ImageURL string `json:"imageUrl"`
	Data     string `json:"data"`
	Size     int    `json:"size"`
	ECC      string `json:"ecc"`
}

// HandleQR returns the image URL for the requested options.
//
// HTTP: GET /api/qr?data=...&size=200&ecc=M
func (h *QRHandler) HandleQR(w http.ResponseWriter, r *http.Request) {
	opts, _, err := h.options(r)
	if err != nil {
		writeError(w, err)
		return
	}

	opts, err = opts.Normalize()
	if err != nil {
		writeError(w, err)
		return
	}
	imageURL, err := h.qr.URL(opts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, QRResponse{ImageURL: imageURL, Data: opts.Data, Size: opts.Size, ECC: opts.ECC})
}

// HandleDownload proxies the image so the browser saves it as
// <username>-qr-code.png. The image is buffered so a failed upstream fetch
// can still produce a JSON error.
//
// HTTP: GET /api/qr/download?data=...&size=200&ecc=M
func (h *QRHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	opts, user, err := h.options(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	img, err := h.qr.Download(r.Context(), opts, &buf)
	if err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			writeError(w, err)
			return
		}
		h.logger.Warn("QR download failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   "bad_gateway",
			Message: "Could not generate the QR code. Please try again.",
		})
		return
	}

	username := ""
	if user.HasUsername() {
		username = *user.Username
	}
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, qrcode.DownloadFilename(username)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// options reads size, ecc and data from the query. Missing data falls back
// to the caller's profile URL.
func (h *QRHandler) options(r *http.Request) (qrcode.Options, *model.User, error) {
	q := r.URL.Query()
	opts := qrcode.Options{Data: q.Get("data"), ECC: q.Get("ecc")}

	if raw := q.Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return opts, nil, apperror.ValidationFailed("size", "Size must be a whole number")
		}
		opts.Size = n
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	user, err := h.users.CurrentUser(r.Context(), userID)
	if err != nil {
		return opts, nil, err
	}
	if opts.Data == "" && user.HasUsername() {
		opts.Data = share.ProfileURL(h.baseURL, *user.Username)
	}
	return opts, user, nil
}
