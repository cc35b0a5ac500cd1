package main

import (
	"context"
	"fmt"

	"github.com/jonathan/pathway-tracker/internal/config"
	"github.com/jonathan/pathway-tracker/internal/db"
	"github.com/jonathan/pathway-tracker/internal/fetch"
	"github.com/jonathan/pathway-tracker/internal/messaging"
	"github.com/jonathan/pathway-tracker/internal/observability"
	"github.com/jonathan/pathway-tracker/internal/permissions"
	"github.com/jonathan/pathway-tracker/internal/store"
	"github.com/jonathan/pathway-tracker/internal/store/memory"
	"github.com/jonathan/pathway-tracker/internal/tracker"
	"go.uber.org/zap"
)

// cliPrincipal is the identity CLI commands act as.
var cliPrincipal = permissions.Principal{Role: permissions.RoleSuperAdmin}

// app bundles what every command needs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  store.Store
}

// setup loads configuration, builds the logger and opens the store. When
// requireDB is set an in-memory store is refused.
func setup(ctx context.Context, requireDB bool) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Verbose = true
	}
	logger, err := observability.NewLogger(cfg.Verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	if cfg.DatabaseURL == "" {
		if requireDB {
			return nil, fmt.Errorf("DATABASE_URL environment variable is required")
		}
		logger.Warn("DATABASE_URL not set; using in-memory store, data is lost on exit")
		return &app{cfg: cfg, logger: logger, store: memory.New()}, nil
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &app{cfg: cfg, logger: logger, store: database}, nil
}

func (a *app) close() {
	a.store.Close()
	_ = a.logger.Sync()
}

// seed returns the configured seed file or the embedded default.
func (a *app) seed() (*config.Seed, error) {
	if a.cfg.SeedFile != "" {
		return config.LoadSeed(a.cfg.SeedFile)
	}
	return config.DefaultSeed()
}

// service builds the tracker over the app's store.
func (a *app) service(opts ...tracker.Option) *tracker.Service {
	base := []tracker.Option{
		tracker.WithLogger(a.logger),
		tracker.WithSender(&messaging.LogSender{Logger: a.logger, Delay: a.cfg.SendDelay}),
		tracker.WithFetchOptions(&fetch.Options{Timeout: a.cfg.FetchTimeout, UserAgent: fetch.DefaultUserAgent}),
	}
	return tracker.New(a.store, append(base, opts...)...)
}
