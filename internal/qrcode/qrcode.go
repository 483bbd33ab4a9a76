// Package qrcode builds request URLs for a hosted QR image endpoint
// (api.qrserver.com by default) and proxies image downloads. Nothing is
// rendered locally.
package qrcode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sakif/treebio/internal/apperror"
)

const (
	DefaultEndpoint = "https://api.qrserver.com/v1/create-qr-code/"
	DefaultSize     = 200
	MinSize         = 100
	MaxSize         = 1000
	DefaultECC      = "M"

	maxImageBytes = 4 << 20
)

// Options describes one QR image. Zero Size and empty ECC take the defaults.
type Options struct {
	Data string
	Size int
	ECC  string
}

// Normalize fills defaults and validates. ECC is case-insensitive.
func (o Options) Normalize() (Options, error) {
	o.Data = strings.TrimSpace(o.Data)
	if o.Data == "" {
		return o, apperror.ValidationFailed("data", "Please enter a URL or text to encode")
	}
	if o.Size == 0 {
		o.Size = DefaultSize
	}
	if o.Size < MinSize || o.Size > MaxSize {
		return o, apperror.ValidationFailed("size", fmt.Sprintf("Size must be between %d and %d", MinSize, MaxSize))
	}
	o.ECC = strings.ToUpper(strings.TrimSpace(o.ECC))
	if o.ECC == "" {
		o.ECC = DefaultECC
	}
	switch o.ECC {
	case "L", "M", "Q", "H":
	default:
		return o, apperror.ValidationFailed("ecc", "Error correction must be one of L, M, Q or H")
	}
	return o, nil
}

// ErrImageTooLarge is returned by Download when the endpoint sends more
// than the size cap.
var ErrImageTooLarge = errors.New("qrcode: image exceeds size limit")

type Builder struct {
	endpoint string
	client   *http.Client
	maxBytes int64
}

// Image describes a downloaded QR image.
type Image struct {
	ContentType string
	Bytes       int64
}

func NewBuilder(endpoint string, client *http.Client) *Builder {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Builder{endpoint: endpoint, client: client, maxBytes: maxImageBytes}
}

// URL returns <endpoint>?size=NxN&ecc=X&data=<escaped data>.
func (b *Builder) URL(opts Options) (string, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return "", err
	}

	sep := "?"
	if strings.Contains(b.endpoint, "?") {
		sep = "&"
	}
	size := strconv.Itoa(opts.Size)
	return b.endpoint + sep +
		"size=" + size + "x" + size +
		"&ecc=" + opts.ECC +
		"&data=" + escapeComponent(opts.Data), nil
}

// Download fetches the image for opts and copies it to w. An image larger
// than the cap fails with ErrImageTooLarge; w may then hold a partial copy.
// A missing upstream Content-Type is reported as image/png.
func (b *Builder) Download(ctx context.Context, opts Options, w io.Writer) (Image, error) {
	target, err := b.URL(opts)
	if err != nil {
		return Image{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Image{}, fmt.Errorf("qrcode: building request: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return Image{}, fmt.Errorf("qrcode: fetching image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Image{}, fmt.Errorf("qrcode: endpoint returned HTTP %d", resp.StatusCode)
	}
	img := Image{ContentType: resp.Header.Get("Content-Type")}
	if img.ContentType == "" {
		img.ContentType = "image/png"
	}
	if !strings.HasPrefix(img.ContentType, "image/") {
		return Image{}, fmt.Errorf("qrcode: endpoint returned %s, want an image", img.ContentType)
	}

	// one byte past the cap tells a full-size image from an oversized one
	n, err := io.Copy(w, io.LimitReader(resp.Body, b.maxBytes+1))
	img.Bytes = n
	if err != nil {
		return img, fmt.Errorf("qrcode: reading image: %w", err)
	}
	if n > b.maxBytes {
		return img, fmt.Errorf("%w (%d bytes)", ErrImageTooLarge, b.maxBytes)
	}
	return img, nil
}

// DownloadFilename is the attachment name offered to the browser.
func DownloadFilename(username string) string {
	if username == "" {
		return "qr-code.png"
	}
	return username + "-qr-code.png"
}

// escapeComponent escapes like JavaScript's encodeURIComponent: spaces
// become %20 rather than +.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
