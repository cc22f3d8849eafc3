// Package main is the entry point for NotAPI, a small public API gateway
// that serves morse, romans, spamwatch and lyrics lookups over
// GET /api/{name}, audits every successful call to a Telegram channel, and
// hosts the operator bot's webhook.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/notapi/notapi/internal/config"
	"github.com/notapi/notapi/internal/observability"
	"github.com/notapi/notapi/internal/server"
)

// version is set at build time via ldflags: -ldflags "-X main.version=v1.0.0".
var version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("notapi %s\n", version)
		return
	}

	// Load configuration from YAML file + environment variable overrides.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, levelVar := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("starting notapi", "version", version, "mode", cfg.Mode)

	// Root context with signal handling for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, logger, version)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	// Config file watcher for hot-reload: blocklists, TLS certificates and
	// log verbosity apply in place.
	watcher := config.NewWatcher(config.ConfigFilePath(), func(newCfg *config.Config) {
		levelVar.Set(observability.LevelFromConfig(newCfg.Logging.Level))
		if reloadErr := srv.Reload(newCfg); reloadErr != nil {
			logger.Error("config reload failed", "error", reloadErr)
		}
	}, logger)
	go func() {
		if watchErr := watcher.Start(ctx); watchErr != nil {
			logger.Error("config watcher error", "error", watchErr)
		}
	}()
	defer watcher.Stop()

	if err := srv.Run(ctx); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("notapi shut down gracefully")
}
