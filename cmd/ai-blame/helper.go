package main

import (
	"context"
	"fmt"
	"os"

	"aiblame/internal/config"
	"aiblame/internal/gitrepo"
	"aiblame/internal/logging"
)

// newLogger creates a logger with the specified format. Logs go to stderr
// either way; json format keeps hook output machine-parseable.
func newLogger(format string) *logging.Logger {
	logFormat := logging.HumanFormat
	if format == "json" {
		logFormat = logging.JSONFormat
	}
	return logging.NewLogger(logging.Config{
		Format: logFormat,
		Level:  logging.InfoLevel,
	})
}

// loggerFromConfig builds a logger from the repository's configured format
// and level. Hook-invoked commands use it so a repo can silence or
// verbose-up capture and post-commit without touching hook scripts.
func loggerFromConfig(cfg *config.Config) *logging.Logger {
	return logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  logging.ParseLevel(cfg.Logging.Level),
	})
}

// mustGetwd returns the working directory or exits on error.
func mustGetwd() string {
	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return dir
}

// mustDiscover locates the enclosing repository and loads its config,
// exiting when run outside a repository.
func mustDiscover(ctx context.Context, logger *logging.Logger) (*gitrepo.Repo, *config.Config) {
	repo, err := gitrepo.Discover(ctx, mustGetwd(), nil, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(repo.GitDir())
	if err != nil {
		logger.Warn("Failed to load config, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		cfg = config.DefaultConfig()
	}

	// Rediscover with the loaded config so git timeouts honor it.
	repo, err = gitrepo.Discover(ctx, repo.Root(), cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return repo, cfg
}

// shortRev truncates a user-supplied revision argument for display.
func shortRev(rev string) string {
	return gitrepo.ShortSHA(rev)
}
