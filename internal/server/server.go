// Package server is the composition root: it opens the store, builds the
// services and handlers, mounts the routes and runs the HTTP server.
//
//	config.Config → repository.Store (sqlite | postgres)
//	             → services → handlers → chi routes
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/treebio/internal/auth"
	"github.com/sakif/treebio/internal/config"
	"github.com/sakif/treebio/internal/handler"
	"github.com/sakif/treebio/internal/middleware"
	"github.com/sakif/treebio/internal/preview"
	"github.com/sakif/treebio/internal/qrcode"
	"github.com/sakif/treebio/internal/repository"
	"github.com/sakif/treebio/internal/repository/postgres"
	sqliteRepo "github.com/sakif/treebio/internal/repository/sqlite"
	"github.com/sakif/treebio/internal/service"
)

const (
	shutdownTimeout = 30 * time.Second
	// longer than a single visit write's own timeout
	visitDrainTimeout = 10 * time.Second
)

// Server owns the store and the analytics writer; both are drained and
// closed on shutdown.
type Server struct {
	router    *chi.Mux
	config    *config.Config
	logger    *slog.Logger
	store     repository.Store
	analytics *service.AnalyticsService
	client    *http.Client
}

// New opens the configured store and wires every route.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	s, err := newWithStore(cfg, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return s, nil
}

// openStore picks PostgreSQL when a database URL is configured and SQLite
// otherwise.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Store, error) {
	if cfg.Database.URL != "" {
		db, err := postgres.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("server: opening postgres: %w", err)
		}
		logger.Info("using postgres store")
		return db, nil
	}

	if cfg.Database.Path != ":memory:" {
		dir := filepath.Dir(cfg.Database.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("server: creating database directory %s: %w", dir, err)
		}
	}
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("server: opening sqlite: %w", err)
	}
	logger.Info("using sqlite store", slog.String("path", cfg.Database.Path))
	return db, nil
}

func newWithStore(cfg *config.Config, store repository.Store, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		logger:    logger,
		store:     store,
		analytics: service.NewAnalyticsService(store, cfg.Analytics.VisitorHashKey, logger),
		client:    &http.Client{Timeout: 30 * time.Second},
	}
	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("server: setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes mounts middleware and routes.
//
//	GET  /                      landing page (optional auth)
//	GET  /sign-up               sign-up page
//	GET  /auth/github/login     start OAuth
//	GET  /auth/github/callback  finish OAuth
//	POST /auth/logout           clear session
//	GET  /admin/...             dashboard, editor, QR tool (page auth)
//	GET  /go/{id}               count click, redirect
//	     /api/...               JSON API (CORS; most routes need auth)
//	GET  /{username}            public profile
//
// chi matches static segments before {username}, so /admin and friends
// always win over a profile lookup.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	tokens, err := s.tokenService()
	if err != nil {
		return err
	}

	identity := service.NewIdentityService(s.store, tokens, s.logger)
	profiles := service.NewProfileService(s.store, s.store, s.store, s.logger)
	links := service.NewLinkService(s.store, s.logger)
	socials := service.NewSocialLinkService(s.store, s.logger)
	qr := qrcode.NewBuilder(s.config.QR.Endpoint, s.client)

	// the scraper dials user-supplied hosts, so it gets the guarded client
	var fetcher preview.Fetcher = preview.NewHTMLFetcher(preview.NewPublicClient(s.config.PreviewTimeout()))
	if s.config.Preview.Endpoint != "" {
		fetcher = preview.NewEndpointFetcher(s.config.Preview.Endpoint, s.client)
	}
	previews := preview.NewService(fetcher, s.config.PreviewTimeout(), s.logger)

	pages, err := handler.NewPageHandler(s.config.Server.TemplateDir, handler.PageDeps{
		Users:     identity,
		Profiles:  profiles,
		Analytics: s.analytics,
		QR:        qr,
		BaseURL:   s.config.Server.BaseURL,
	}, s.logger)
	if err != nil {
		return err
	}

	profileHandler := handler.NewProfileHandler(profiles, s.logger)
	linkHandler := handler.NewLinkHandler(links, s.logger)
	socialHandler := handler.NewSocialLinkHandler(socials, s.logger)
	analyticsHandler := handler.NewAnalyticsHandler(s.analytics, s.logger)
	previewHandler := handler.NewPreviewHandler(previews)
	qrHandler := handler.NewQRHandler(qr, identity, s.config.Server.BaseURL, s.logger)
	shareHandler := handler.NewShareHandler(identity, s.config.Server.BaseURL, s.logger)

	var provider handler.IdentityProvider
	if s.config.AuthEnabled() {
		provider = auth.NewGitHubProvider(
			s.config.Auth.GitHubClientID,
			s.config.Auth.GitHubClientSecret,
			s.config.Auth.GitHubCallbackURL,
		)
	}
	authHandler := handler.NewAuthHandler(provider, identity, s.config.Auth.SecureCookies, s.logger)

	// === Health and static files ===
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}` + "\n"))
	})
	fileServer := http.FileServer(http.Dir(s.config.Server.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	// === Pages ===
	s.router.With(auth.OptionalAuth(tokens)).Get("/", pages.HandleHome)
	s.router.Get("/sign-up", pages.HandleSignUp)
	s.router.Get("/go/{id}", linkHandler.HandleRedirect)

	s.router.Route("/auth", func(r chi.Router) {
		if provider != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		} else {
			s.logger.Warn("GitHub OAuth not configured, sign-in is disabled")
			r.Get("/github/*", func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "sign-in is not configured", http.StatusServiceUnavailable)
			})
		}
		r.Post("/logout", authHandler.HandleLogout)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequirePage(tokens, "/sign-up"))
		r.Get("/admin", pages.HandleDashboard)
		r.Get("/admin/my-tree", pages.HandleMyTree)
		r.Get("/admin/tools/qr-code", pages.HandleQRTool)
	})

	// === API ===
	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.CORS(s.config.Server.CORSOrigins))

		r.Get("/username/check", profileHandler.HandleCheckUsername)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/me", authHandler.HandleMe)
			r.Post("/username/claim", profileHandler.HandleClaimUsername)
			r.Get("/profile", profileHandler.HandleGetProfile)
			r.Put("/profile", profileHandler.HandleUpdateProfile)

			r.Get("/links", linkHandler.HandleList)
			r.Post("/links", linkHandler.HandleCreate)
			r.Put("/links/{id}", linkHandler.HandleUpdate)
			r.Delete("/links/{id}", linkHandler.HandleDelete)

			r.Get("/social-links", socialHandler.HandleList)
			r.Post("/social-links", socialHandler.HandleCreate)
			r.Put("/social-links/{id}", socialHandler.HandleUpdate)
			r.Delete("/social-links/{id}", socialHandler.HandleDelete)

			r.Get("/analytics/visits", analyticsHandler.HandleVisits)
			r.Get("/analytics/summary", analyticsHandler.HandleSummary)

			r.Get("/og-data", previewHandler.HandlePreview)
			r.Get("/qr", qrHandler.HandleQR)
			r.Get("/qr/download", qrHandler.HandleDownload)
			r.Get("/share", shareHandler.HandleShare)
		})
	})

	// last, so every static route above takes precedence
	s.router.Get("/{username}", pages.HandleProfile)

	return nil
}

// tokenService uses the configured secret. Without one, sessions are signed
// with a random per-process key and do not survive a restart.
func (s *Server) tokenService() (*auth.TokenService, error) {
	secret := s.config.Auth.JWTSecret
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("server: generating session key: %w", err)
		}
		secret = hex.EncodeToString(buf)
		s.logger.Warn("JWT_SECRET not set, using an ephemeral session key")
	}
	tokens, err := auth.NewTokenService(secret, s.config.SessionTTL())
	if err != nil {
		return nil, fmt.Errorf("server: creating token service: %w", err)
	}
	return tokens, nil
}

// Start serves HTTP until SIGINT or SIGTERM.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves HTTP until ctx is cancelled, then shuts down in order:
//  1. stop accepting connections and let in-flight requests finish (30s)
//  2. wait for pending profile-visit writes, even if step 1 timed out
//  3. close the store
func (s *Server) Run(ctx context.Context) error {
	defer func() {
		if err := s.store.Close(); err != nil {
			s.logger.Error("closing store failed", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second, // room for the 15s preview fetch
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", s.config.Server.BaseURL),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	return s.shutdown(srv, shutdownTimeout)
}

// shutdown stops srv, then waits for pending visit writes whether or not
// the HTTP shutdown finished in time. The store is closed by the caller
// afterwards.
func (s *Server) shutdown(srv *http.Server, timeout time.Duration) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	shutdownErr := srv.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		s.logger.Error("HTTP shutdown incomplete", slog.String("error", shutdownErr.Error()))
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), visitDrainTimeout)
	defer cancelDrain()
	if err := s.analytics.Wait(drainCtx); err != nil {
		s.logger.Warn("pending visit writes abandoned", slog.String("error", err.Error()))
	}

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}
	s.logger.Info("server stopped gracefully")
	return nil
}
