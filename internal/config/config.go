// Package config loads server settings: built-in defaults, then an optional
// TOML file, then environment variables. Later sources win.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// EnvConfigPath names the variable consulted when no -config flag is given.
const EnvConfigPath = "TREEBIO_CONFIG"

type Config struct {
	Server struct {
		Port        int      `toml:"port"`
		BaseURL     string   `toml:"base_url"` // public origin used in share and QR links
		TemplateDir string   `toml:"template_dir"`
		StaticDir   string   `toml:"static_dir"`
		CORSOrigins []string `toml:"cors_origins"`
	} `toml:"server"`

	Database struct {
		Path string `toml:"path"` // SQLite file, used when URL is empty
		URL  string `toml:"url"`  // PostgreSQL connection string
	} `toml:"database"`

	Auth struct {
		JWTSecret          string `toml:"jwt_secret"`
		SessionHours       int    `toml:"session_hours"`
		GitHubClientID     string `toml:"github_client_id"`
		GitHubClientSecret string `toml:"github_client_secret"`
		GitHubCallbackURL  string `toml:"github_callback_url"`
		SecureCookies      bool   `toml:"secure_cookies"`
	} `toml:"auth"`

	Preview struct {
		Endpoint       string `toml:"endpoint"` // empty means the built-in HTML scraper
		TimeoutSeconds int    `toml:"timeout_seconds"`
	} `toml:"preview"`

	QR struct {
		Endpoint string `toml:"endpoint"`
	} `toml:"qr"`

	Analytics struct {
		VisitorHashKey string `toml:"visitor_hash_key"`
	} `toml:"analytics"`

	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"` // "text" or "json"
	} `toml:"log"`
}

// Default returns a config that runs locally with no file and no environment.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Server.BaseURL = "http://localhost:8080"
	cfg.Server.TemplateDir = "web/templates"
	cfg.Server.StaticDir = "web/static"
	cfg.Database.Path = "data/treebio.db"
	cfg.Auth.SessionHours = 24 * 7
	cfg.Preview.TimeoutSeconds = 15
	cfg.QR.Endpoint = "https://api.qrserver.com/v1/create-qr-code/"
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	return cfg
}

// Load builds the effective configuration. path may be empty, in which case
// TREEBIO_CONFIG is consulted; a missing file is only an error when a path
// was given explicitly.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path, _ = lookup(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			// Unmarshalling onto the defaults leaves absent keys untouched.
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parsing %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if cfg.Auth.GitHubCallbackURL == "" {
		cfg.Auth.GitHubCallbackURL = strings.TrimRight(cfg.Server.BaseURL, "/") + "/auth/github/callback"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"DB_PATH":              &c.Database.Path,
		"DATABASE_URL":         &c.Database.URL,
		"JWT_SECRET":           &c.Auth.JWTSecret,
		"GITHUB_CLIENT_ID":     &c.Auth.GitHubClientID,
		"GITHUB_CLIENT_SECRET": &c.Auth.GitHubClientSecret,
		"GITHUB_CALLBACK_URL":  &c.Auth.GitHubCallbackURL,
		"BASE_URL":             &c.Server.BaseURL,
		"PREVIEW_ENDPOINT":     &c.Preview.Endpoint,
		"QR_ENDPOINT":          &c.QR.Endpoint,
		"LOG_LEVEL":            &c.Log.Level,
		"VISITOR_HASH_KEY":     &c.Analytics.VisitorHashKey,
	}
	for name, dst := range str {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		c.Server.CORSOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.Server.CORSOrigins = append(c.Server.CORSOrigins, origin)
			}
		}
	}
	return nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Server.Port)
	}
	if u, err := url.Parse(c.Server.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: base_url %q must be an absolute URL", c.Server.BaseURL)
	}
	if c.Database.Path == "" && c.Database.URL == "" {
		return errors.New("config: one of database.path or database.url is required")
	}
	if c.Auth.SessionHours <= 0 {
		return fmt.Errorf("config: session_hours must be positive, got %d", c.Auth.SessionHours)
	}
	if c.Preview.TimeoutSeconds <= 0 {
		return fmt.Errorf("config: preview timeout must be positive, got %d", c.Preview.TimeoutSeconds)
	}
	if c.QR.Endpoint == "" {
		return errors.New("config: qr.endpoint is required")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("config: log format %q must be text or json", c.Log.Format)
	}
	return nil
}

// AuthEnabled reports whether enough is configured to sign users in.
func (c *Config) AuthEnabled() bool {
	return c.Auth.JWTSecret != "" && c.Auth.GitHubClientID != "" && c.Auth.GitHubClientSecret != ""
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Auth.SessionHours) * time.Hour
}

func (c *Config) PreviewTimeout() time.Duration {
	return time.Duration(c.Preview.TimeoutSeconds) * time.Second
}

// NewLogger builds the slog logger described by the log section.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: invalid log level %q", s)
	}
	return level, nil
}
