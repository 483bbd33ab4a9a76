// Package preview fetches Open Graph metadata for the link editor's preview
// card, either from a third-party endpoint or by scraping the page itself.
package preview

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds a whole fetch, including redirects and body reads.
const DefaultTimeout = 15 * time.Second

// Metadata is the preview card content. Every field is optional.
type Metadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	URL         string `json:"url,omitempty"`
	SiteName    string `json:"siteName,omitempty"`
	Type        string `json:"type,omitempty"`
	Favicon     string `json:"favicon,omitempty"`
}

// Fetcher retrieves metadata for an already validated absolute URL. Errors
// should be *Error; anything else is classified by Service.
type Fetcher interface {
	Fetch(ctx context.Context, target *url.URL) (*Metadata, error)
}

// Service validates the URL, applies the timeout and normalizes errors.
// It does not retry.
type Service struct {
	fetcher Fetcher
	timeout time.Duration
	logger  *slog.Logger
}

func NewService(fetcher Fetcher, timeout time.Duration, logger *slog.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{fetcher: fetcher, timeout: timeout, logger: logger}
}

// Fetch returns the metadata for rawURL. Malformed or non-http(s) URLs fail
// with ErrorTypeInvalidURL before any network call. Every error is *Error.
func (s *Service) Fetch(ctx context.Context, rawURL string) (*Metadata, error) {
	target, err := ParseTarget(rawURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	md, err := s.fetcher.Fetch(ctx, target)
	if err != nil {
		pe := classifyTransport(ctx, err)
		s.logger.Warn("link preview failed",
			slog.String("host", target.Host),
			slog.String("type", string(pe.Type)),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return nil, pe
	}
	if md.URL == "" {
		md.URL = target.String()
	}
	return md, nil
}

// ParseTarget accepts only absolute http and https URLs.
func ParseTarget(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, newInvalidURLError("URL is required", nil)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, newInvalidURLError("Invalid URL format", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, newInvalidURLError("URL must start with http:// or https://", nil)
	}
	if u.Host == "" {
		return nil, newInvalidURLError("URL must include a host", nil)
	}
	return u, nil
}
