package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// EndpointFetcher asks a third-party metadata endpoint, passing the target
// as the "url" query parameter. The endpoint answers with Metadata JSON, or
// a non-200 status with an optional {"error": "..."} body.
type EndpointFetcher struct {
	endpoint string
	client   *http.Client
}

func NewEndpointFetcher(endpoint string, client *http.Client) *EndpointFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &EndpointFetcher{endpoint: endpoint, client: client}
}

func (f *EndpointFetcher) Fetch(ctx context.Context, target *url.URL) (*Metadata, error) {
	reqURL, err := url.Parse(f.endpoint)
	if err != nil {
		return nil, fmt.Errorf("preview: parsing endpoint: %w", err)
	}
	q := reqURL.Query()
	q.Set("url", target.String())
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("preview: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classifyTransport(ctx, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newUpstreamError(upstreamMessage(resp.StatusCode, body))
	}

	var md Metadata
	if err := json.Unmarshal(body, &md); err != nil {
		return nil, newInvalidResponseError("decoding metadata", err)
	}
	return &md, nil
}

// upstreamMessage prefers the endpoint's own "error" field and falls back
// to "HTTP <code>: <status text>".
func upstreamMessage(status int, body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
}
