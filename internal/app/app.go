// Package app initializes and holds long-lived application services,
// acting as a dependency injection container.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/faarchive/journaliser/internal/api"
	"github.com/faarchive/journaliser/internal/classify"
	"github.com/faarchive/journaliser/internal/config"
	"github.com/faarchive/journaliser/internal/engine"
	"github.com/faarchive/journaliser/internal/fetch"
	"github.com/faarchive/journaliser/internal/journal"
	"github.com/faarchive/journaliser/internal/logging"
	"github.com/faarchive/journaliser/internal/metrics"
	"github.com/faarchive/journaliser/internal/ratelimit"
	"github.com/faarchive/journaliser/internal/store/artifact"
	"github.com/faarchive/journaliser/internal/store/postgres"
)

// App holds the shared, long-lived services for the archiver. It is
// initialized once at startup and passed to the commands that need it.
type App struct {
	Config   config.Config
	Logger   *zap.Logger
	Observer *metrics.Observer
	Cache    *artifact.Cache
	Store    *postgres.Store
	Engine   *engine.Engine
	Server   *api.Server
}

// New builds every service from configuration, failing fast when a
// critical dependency cannot be initialized.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	observer := metrics.NewObserver()

	cache, err := artifact.New(artifact.Config{BaseDir: cfg.Artifacts.Dir})
	if err != nil {
		return nil, fmt.Errorf("open artifact cache: %w", err)
	}

	store, err := postgres.NewStore(ctx, postgres.StoreConfig{
		DSN:      cfg.Store.DSN,
		MaxConns: int32(cfg.Store.MaxOpenConns),
		MinConns: int32(cfg.Store.MinIdleConns),
	})
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}

	fetcher, err := fetch.New(fetch.Config{
		BaseURL:    cfg.Site.BaseURL,
		UserAgent:  cfg.Site.UserAgent,
		Timeout:    cfg.Site.Timeout(),
		RetryDelay: cfg.Crawl.RetryDelay(),
		Limiter: ratelimit.New(ratelimit.Config{
			RPS:   cfg.Site.RequestsPerSecond,
			Burst: cfg.Site.RequestBurst,
		}),
	}, logger.Named("fetch"), observer)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("build fetcher: %w", err)
	}

	var creds *journal.Credentials
	if cfg.Site.CookieA != "" {
		creds = &journal.Credentials{CookieA: cfg.Site.CookieA, CookieB: cfg.Site.CookieB}
	}

	eng, err := engine.New(
		fetcher,
		cache,
		store,
		classify.New(cfg.Site.BaseURL),
		creds,
		observer,
		nil,
		engine.Config{
			StartID:                 cfg.Crawl.StartID,
			BatchSize:               cfg.Crawl.BatchSize,
			BatchDelay:              cfg.Crawl.BatchDelay(),
			EmptyBatchBackoff:       cfg.Crawl.EmptyBatchBackoff(),
			RetryDelay:              cfg.Crawl.RetryDelay(),
			Floor:                   cfg.Crawl.Floor,
			Ceiling:                 cfg.Crawl.Ceiling,
			PeakRegisteredThreshold: cfg.Crawl.PeakRegisteredThreshold,
			PeakBackoff:             cfg.Crawl.PeakBackoff(),
		},
		logger.Named("engine"),
	)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("build engine: %w", err)
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		Observer: observer,
		Cache:    cache,
		Store:    store,
		Engine:   eng,
		Server:   api.NewServer(store, cache, observer, logger.Named("api")),
	}, nil
}

// Close releases pooled resources.
func (a *App) Close() {
	if a.Store != nil {
		a.Store.Close()
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}
