// Command server runs the TreeBio web application.
//
// Configuration comes from built-in defaults, then an optional TOML file
// (-config or TREEBIO_CONFIG), then environment variables such as PORT,
// DB_PATH, DATABASE_URL, JWT_SECRET and GITHUB_CLIENT_ID. See
// internal/config for the full list.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/sakif/treebio/internal/config"
	"github.com/sakif/treebio/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM and a graceful shutdown
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
