package preview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!doctype html>
<html>
<head>
  <title>
    Ada's   Blog
  </title>
  <meta name="description" content="Notes on engines">
  <meta property="og:title" content="Ada Lovelace">
  <meta property="og:image" content="/img/cover.png">
  <meta property="og:type" content="article">
  <link rel="shortcut icon" href="/static/fav.png">
</head>
<body><meta property="og:title" content="ignored"></body>
</html>`

func TestParseHead(t *testing.T) {
	base := mustParse(t, "https://ada.dev/posts/1")
	md, err := parseHead(strings.NewReader(samplePage), base)
	require.NoError(t, err)

	assert.Equal(t, "Ada Lovelace", md.Title)
	assert.Equal(t, "Notes on engines", md.Description)
	assert.Equal(t, "https://ada.dev/img/cover.png", md.Image)
	assert.Equal(t, "article", md.Type)
	assert.Equal(t, "ada.dev", md.SiteName)
	assert.Equal(t, "https://ada.dev/static/fav.png", md.Favicon)
}

func TestParseHead_Fallbacks(t *testing.T) {
	page := `<html><head><title>Plain   page</title>
<meta name="twitter:image" content="https://cdn.example.com/t.png"></head></html>`
	md, err := parseHead(strings.NewReader(page), mustParse(t, "http://example.com/x"))
	require.NoError(t, err)

	assert.Equal(t, "Plain page", md.Title)
	assert.Equal(t, "https://cdn.example.com/t.png", md.Image)
	assert.Equal(t, "http://example.com/favicon.ico", md.Favicon)
	assert.Empty(t, md.Description)
}

func TestHTMLFetcher(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/posts/1", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/posts/1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.UserAgent())
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(samplePage))
	})
	mux.HandleFunc("/data.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	f := NewHTMLFetcher(srv.Client())

	t.Run("follows redirects and resolves against final URL", func(t *testing.T) {
		md, err := f.Fetch(context.Background(), mustParse(t, srv.URL+"/old"))
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", md.Title)
		assert.Equal(t, srv.URL+"/img/cover.png", md.Image)
	})

	t.Run("non-html content", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), mustParse(t, srv.URL+"/data.json"))
		assert.True(t, IsType(err, ErrorTypeInvalidResponse), "got %v", err)
	})

	t.Run("upstream status", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), mustParse(t, srv.URL+"/gone"))
		var pe *Error
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, ErrorTypeUpstream, pe.Type)
		assert.Equal(t, "HTTP 410: Gone", pe.Message)
	})
}
