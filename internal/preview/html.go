package preview

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// maxBodyBytes caps how much of a page or endpoint response is read.
const maxBodyBytes = 2 << 20

const userAgent = "TreeBioPreview/1.0 (+link preview)"

// HTMLFetcher downloads the page itself and reads <title>, Open Graph and
// Twitter card <meta> tags and the icon <link>. Parsing stops at </head>.
type HTMLFetcher struct {
	client *http.Client
}

// NewHTMLFetcher uses client as given. A nil client means
// NewPublicClient(DefaultTimeout), which refuses non-public addresses.
func NewHTMLFetcher(client *http.Client) *HTMLFetcher {
	if client == nil {
		client = NewPublicClient(DefaultTimeout)
	}
	return &HTMLFetcher{client: client}
}

func (f *HTMLFetcher) Fetch(ctx context.Context, target *url.URL) (*Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("preview: building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newUpstreamError(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, _ := mime.ParseMediaType(ct)
		if mediaType != "text/html" && mediaType != "application/xhtml+xml" {
			return nil, newInvalidResponseError(fmt.Sprintf("expected an HTML page, got %s", mediaType), nil)
		}
	}

	// resp.Request.URL is the final URL after redirects.
	md, err := parseHead(io.LimitReader(resp.Body, maxBodyBytes), resp.Request.URL)
	if err != nil {
		return nil, classifyTransport(ctx, err)
	}
	return md, nil
}

// parseHead tokenizes the document head. base resolves relative image and
// icon URLs.
func parseHead(r io.Reader, base *url.URL) (*Metadata, error) {
	var (
		md        Metadata
		title     string
		metaDesc  string
		twitterIm string
		inTitle   bool
	)

	z := html.NewTokenizer(r)
loop:
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, err
			}
			break loop

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Title:
				inTitle = true
			case atom.Meta:
				key := strings.ToLower(attr(tok, "property"))
				if key == "" {
					key = strings.ToLower(attr(tok, "name"))
				}
				content := strings.TrimSpace(attr(tok, "content"))
				switch key {
				case "og:title":
					md.Title = content
				case "og:description":
					md.Description = content
				case "og:image", "og:image:url":
					if md.Image == "" {
						md.Image = content
					}
				case "og:url":
					md.URL = content
				case "og:site_name":
					md.SiteName = content
				case "og:type":
					md.Type = content
				case "description":
					metaDesc = content
				case "twitter:image", "twitter:image:src":
					twitterIm = content
				}
			case atom.Link:
				if md.Favicon == "" && isIconRel(attr(tok, "rel")) {
					md.Favicon = attr(tok, "href")
				}
			case atom.Body:
				break loop
			}

		case html.TextToken:
			if inTitle {
				title += string(z.Text())
			}

		case html.EndTagToken:
			switch z.Token().DataAtom {
			case atom.Title:
				inTitle = false
			case atom.Head:
				break loop
			}
		}
	}

	if md.Title == "" {
		md.Title = strings.Join(strings.Fields(title), " ")
	}
	if md.Description == "" {
		md.Description = metaDesc
	}
	if md.Image == "" {
		md.Image = twitterIm
	}
	if md.SiteName == "" {
		md.SiteName = base.Hostname()
	}
	if md.Favicon == "" {
		md.Favicon = "/favicon.ico"
	}
	md.Image = resolve(base, md.Image)
	md.Favicon = resolve(base, md.Favicon)
	md.URL = resolve(base, md.URL)
	return &md, nil
}

func attr(tok html.Token, name string) string {
	for _, a := range tok.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

func isIconRel(rel string) bool {
	for _, r := range strings.Fields(strings.ToLower(rel)) {
		if r == "icon" || r == "apple-touch-icon" {
			return true
		}
	}
	return false
}

// resolve makes ref absolute against base. Empty or unparsable refs come
// back unchanged.
func resolve(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
