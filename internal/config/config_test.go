package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "treebio.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load("", envFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data/treebio.db", cfg.Database.Path)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL())
	assert.Equal(t, 15*time.Second, cfg.PreviewTimeout())
	assert.Equal(t, "http://localhost:8080/auth/github/callback", cfg.Auth.GitHubCallbackURL)
	assert.False(t, cfg.AuthEnabled())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 9090
base_url = "https://bio.example.com"

[preview]
timeout_seconds = 5

[log]
format = "json"
`)
	cfg, err := load(path, envFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.PreviewTimeout())
	assert.Equal(t, "json", cfg.Log.Format)
	// keys absent from the file keep their defaults
	assert.Equal(t, "data/treebio.db", cfg.Database.Path)
	assert.Equal(t, "https://bio.example.com/auth/github/callback", cfg.Auth.GitHubCallbackURL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "[server]\nport = 9090\n")
	cfg, err := load(path, envFrom(map[string]string{
		"PORT":                 "7000",
		"JWT_SECRET":           "s3cret",
		"GITHUB_CLIENT_ID":     "id",
		"GITHUB_CLIENT_SECRET": "secret",
		"CORS_ORIGINS":         "https://a.dev, https://b.dev,",
		"LOG_LEVEL":            "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.True(t, cfg.AuthEnabled())
	assert.Equal(t, []string{"https://a.dev", "https://b.dev"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	path := writeConfig(t, "[qr]\nendpoint = \"https://qr.example.com/\"\n")
	cfg, err := load("", envFrom(map[string]string{EnvConfigPath: path}))
	require.NoError(t, err)
	assert.Equal(t, "https://qr.example.com/", cfg.QR.Endpoint)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
		env  map[string]string
	}{
		{
			name: "explicit path missing",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.toml") },
		},
		{
			name: "malformed toml",
			path: func(t *testing.T) string { return writeConfig(t, "[server\nport = ") },
		},
		{
			name: "non-numeric PORT",
			path: func(*testing.T) string { return "" },
			env:  map[string]string{"PORT": "eighty"},
		},
		{
			name: "port out of range",
			path: func(t *testing.T) string { return writeConfig(t, "[server]\nport = 70000\n") },
		},
		{
			name: "unknown log level",
			path: func(*testing.T) string { return "" },
			env:  map[string]string{"LOG_LEVEL": "chatty"},
		},
		{
			name: "relative base url",
			path: func(*testing.T) string { return "" },
			env:  map[string]string{"BASE_URL": "/relative"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(tt.path(t), envFrom(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFileFromEnvIsIgnored(t *testing.T) {
	_, err := load("", envFrom(map[string]string{EnvConfigPath: "/does/not/exist.toml"}))
	assert.NoError(t, err)
}

func TestNewLogger_Level(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "warn"
	logger := cfg.NewLogger(os.Stderr)
	assert.False(t, logger.Enabled(t.Context(), slog.LevelInfo))
	assert.True(t, logger.Enabled(t.Context(), slog.LevelWarn))
}
