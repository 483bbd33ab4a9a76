// Package handler contains the HTTP handlers: server-rendered pages and
// the JSON API.
//
// Handlers parse the request, call a service and write the response. They
// hold no business logic; the service layer validates and authorises.
package handler

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/treebio/internal/apperror"
	"github.com/sakif/treebio/internal/auth"
	"github.com/sakif/treebio/internal/model"
	"github.com/sakif/treebio/internal/qrcode"
	"github.com/sakif/treebio/internal/service"
	"github.com/sakif/treebio/internal/share"
)

// pageNames are the templates parsed alongside base.html. Each file defines
// {{define "content"}}, so every page gets its own template set.
var pageNames = []string{"home", "signup", "profile", "admin", "my-tree", "qr"}

// PageHandler renders the HTML pages.
type PageHandler struct {
	templates map[string]*template.Template
	users     userLookup
	profiles  *service.ProfileService
	analytics *service.AnalyticsService
	qr        *qrcode.Builder
	baseURL   string
	logger    *slog.Logger
}

// PageDeps groups what the pages need besides templates.
type PageDeps struct {
	Users     userLookup
	Profiles  *service.ProfileService
	Analytics *service.AnalyticsService
	QR        *qrcode.Builder
	BaseURL   string
}

// NewPageHandler parses every page template once at startup.
func NewPageHandler(templateDir string, deps PageDeps, logger *slog.Logger) (*PageHandler, error) {
	templates := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFiles(
			filepath.Join(templateDir, "base.html"),
			filepath.Join(templateDir, name+".html"),
		)
		if err != nil {
			return nil, fmt.Errorf("handler: parsing %s template: %w", name, err)
		}
		templates[name] = tmpl
	}

	return &PageHandler{
		templates: templates,
		users:     deps.Users,
		profiles:  deps.Profiles,
		analytics: deps.Analytics,
		qr:        deps.QR,
		baseURL:   deps.BaseURL,
		logger:    logger,
	}, nil
}

var templateFuncs = template.FuncMap{
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"initial": func(s string) string {
		s = strings.TrimSpace(s)
		if s == "" {
			return "?"
		}
		return strings.ToUpper(s[:1])
	},
	"year": func() int { return time.Now().Year() },
}

// pageData is the single data shape every template receives. Pages use the
// fields they need.
type pageData struct {
	Title       string
	User        *model.User
	ProfileURL  string
	Profile     *model.PublicProfile
	Summary     *model.Summary
	DailyVisits []model.DailyCount
	Platforms   []model.Platform
	QRImageURL  string
	Share       []share.Target
	Flash       string
}

// HandleHome is the landing page. Signed-in users without a username see
// the claim form; users with one get a link to the dashboard.
//
// HTTP: GET /
func (h *PageHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "TreeBio - One link for everything"}
	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		user, err := h.users.CurrentUser(r.Context(), userID)
		if err == nil {
			data.User = user
			if user.HasUsername() {
				data.ProfileURL = share.ProfileURL(h.baseURL, *user.Username)
			}
		} else if !errors.Is(err, apperror.ErrNotFound) {
			h.logger.Warn("home: loading user failed", slog.String("error", err.Error()))
		}
	}
	if r.URL.Query().Get("auth") == "denied" {
		data.Flash = "Sign-in was cancelled."
	}
	h.render(w, "home", data)
}

// HTTP: GET /sign-up
func (h *PageHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "Sign up - TreeBio"}
	if r.URL.Query().Get("auth") == "denied" {
		data.Flash = "GitHub sign-in was cancelled. Please try again."
	}
	h.render(w, "signup", data)
}

// HandleDashboard shows totals and the daily visit chart.
//
// HTTP: GET /admin (page auth)
func (h *PageHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := h.adminUser(w, r)
	if !ok {
		return
	}

	summary, err := h.analytics.Summary(r.Context(), user.ID)
	if err != nil {
		h.serverError(w, "dashboard: loading summary failed", err)
		return
	}
	daily, err := h.analytics.DailyVisits(r.Context(), user.ID, service.DefaultAnalyticsDays)
	if err != nil {
		h.serverError(w, "dashboard: loading visits failed", err)
		return
	}
	profile, err := h.profiles.Profile(r.Context(), user.ID)
	if err != nil {
		h.serverError(w, "dashboard: loading links failed", err)
		return
	}

	h.render(w, "admin", pageData{
		Title:       "Dashboard - TreeBio",
		User:        user,
		ProfileURL:  share.ProfileURL(h.baseURL, *user.Username),
		Profile:     profile,
		Summary:     summary,
		DailyVisits: daily,
	})
}

// HandleMyTree is the link and profile editor. Edits go through the JSON
// API.
//
// HTTP: GET /admin/my-tree (page auth)
func (h *PageHandler) HandleMyTree(w http.ResponseWriter, r *http.Request) {
	user, ok := h.adminUser(w, r)
	if !ok {
		return
	}

	profile, err := h.profiles.Profile(r.Context(), user.ID)
	if err != nil {
		h.serverError(w, "my-tree: loading profile failed", err)
		return
	}

	profileURL := share.ProfileURL(h.baseURL, *user.Username)
	h.render(w, "my-tree", pageData{
		Title:      "My Tree - TreeBio",
		User:       user,
		ProfileURL: profileURL,
		Profile:    profile,
		Platforms:  model.Platforms,
		Share:      share.Targets(profileURL),
	})
}

// HandleQRTool renders the QR generator preloaded with the profile URL.
//
// HTTP: GET /admin/tools/qr-code (page auth)
func (h *PageHandler) HandleQRTool(w http.ResponseWriter, r *http.Request) {
	user, ok := h.adminUser(w, r)
	if !ok {
		return
	}

	profileURL := share.ProfileURL(h.baseURL, *user.Username)
	imageURL, err := h.qr.URL(qrcode.Options{Data: profileURL})
	if err != nil {
		h.serverError(w, "qr tool: building QR URL failed", err)
		return
	}

	h.render(w, "qr", pageData{
		Title:      "QR Code - TreeBio",
		User:       user,
		ProfileURL: profileURL,
		QRImageURL: imageURL,
		Share:      share.Targets(profileURL),
	})
}

// HandleProfile renders a public profile. Unknown usernames go back to the
// landing page. A visit is recorded only after the page rendered, and the
// write never delays or fails the response.
//
// HTTP: GET /{username}
func (h *PageHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	profile, err := h.profiles.PublicProfile(r.Context(), username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		h.serverError(w, "profile: loading failed", err)
		return
	}

	ok := h.render(w, "profile", pageData{
		Title:      profile.User.DisplayName() + " - TreeBio",
		Profile:    profile,
		ProfileURL: share.ProfileURL(h.baseURL, username),
	})
	if !ok {
		return
	}

	h.analytics.RecordVisitAsync(r.Context(), profile.User.ID, service.VisitInfo{
		Referrer:  r.Referer(),
		UserAgent: r.UserAgent(),
		IP:        clientIP(r),
	})
}

// clientIP is RemoteAddr without the port. chi's RealIP middleware has
// already replaced it with X-Forwarded-For / X-Real-IP when present.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// adminUser loads the signed-in user for an admin page. Users who have not
// claimed a username are sent to the landing page to do so.
func (h *PageHandler) adminUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	userID, _ := auth.UserIDFromContext(r.Context())
	user, err := h.users.CurrentUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) || errors.Is(err, apperror.ErrUnauthorized) {
			http.Redirect(w, r, "/sign-up", http.StatusSeeOther)
			return nil, false
		}
		h.serverError(w, "admin: loading user failed", err)
		return nil, false
	}
	if !user.HasUsername() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return nil, false
	}
	return user, true
}

// render executes the page into a buffer first so a template error becomes
// a clean 500 instead of a half-written page.
func (h *PageHandler) render(w http.ResponseWriter, name string, data pageData) bool {
	tmpl, ok := h.templates[name]
	if !ok {
		h.serverError(w, "unknown template", fmt.Errorf("template %q not parsed", name))
		return false
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		h.serverError(w, "failed to render template", err, slog.String("template", name))
		return false
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
	return true
}

func (h *PageHandler) serverError(w http.ResponseWriter, msg string, err error, attrs ...any) {
	h.logger.Error(msg, append(attrs, slog.String("error", err.Error()))...)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
