package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ingredientscout/backend/config"
	"github.com/ingredientscout/backend/internal/domain"
	"github.com/ingredientscout/backend/internal/infrastructure/cache"
	"github.com/ingredientscout/backend/internal/infrastructure/kroger"
	"github.com/ingredientscout/backend/internal/infrastructure/logger"
	"github.com/ingredientscout/backend/internal/infrastructure/metrics"
	"github.com/ingredientscout/backend/internal/infrastructure/mongodb"
	"github.com/ingredientscout/backend/internal/infrastructure/spoonacular"
	"github.com/ingredientscout/backend/internal/infrastructure/store"
	"github.com/ingredientscout/backend/internal/usecase"
)

const (
	cacheCleanupInterval = 5 * time.Minute
	indexTimeout         = 10 * time.Second
)

// app is the fully wired object graph shared by serve and scrape
type app struct {
	cfg      *config.Config
	log      *logger.ZapAdapter
	registry *prometheus.Registry
	store    *store.ConnectionManager[*mongodb.Client]
	scraper  *usecase.ScrapeService
	closers  []func(context.Context) error
}

// newApp builds every component from configuration. stream, when set, receives a copy of every log line.
func newApp(ctx context.Context, cfg *config.Config, stream io.Writer) (*app, error) {
	log, err := logger.New(logger.Options{
		Level:       cfg.Log.Level,
		ServiceName: "ingredientscout",
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	a := &app{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewPrometheus(a.registry)

	credentials, err := a.credentialStore()
	if err != nil {
		return nil, err
	}

	tokens := kroger.NewTokenCache(kroger.TokenCacheConfig{
		TokenURL:     cfg.Kroger.TokenURL,
		ClientID:     cfg.Kroger.ClientID,
		ClientSecret: cfg.Kroger.ClientSecret,
		Scope:        cfg.Kroger.Scope,
		Timeout:      cfg.Kroger.RequestTimeout,
	}, credentials, log, m)

	catalog := kroger.NewClient(kroger.ClientConfig{
		BaseURL:    cfg.Kroger.BaseURL,
		LocationID: cfg.Kroger.LocationID,
		PageSize:   cfg.Kroger.PageSize,
		MaxOffset:  cfg.Kroger.MaxOffset,
		Timeout:    cfg.Kroger.RequestTimeout,
		RateLimit:  cfg.Kroger.RateLimit,
		Burst:      cfg.Kroger.Burst,
	}, tokens, log)

	rotator, err := spoonacular.NewKeyRotator(cfg.Spoonacular.APIKeys, cfg.Spoonacular.RotationBackoff, log, m)
	if err != nil {
		_ = a.close(ctx)
		return nil, fmt.Errorf("failed to build key rotator: %w", err)
	}
	recipes := spoonacular.NewClient(spoonacular.ClientConfig{
		BaseURL:     cfg.Spoonacular.BaseURL,
		RecipeCount: cfg.Spoonacular.RecipeCount,
		Timeout:     cfg.Spoonacular.RequestTimeout,
	}, rotator, log)

	a.store = store.NewConnectionManager(mongodb.Dialer(mongodb.Config{
		URL:                    cfg.Mongo.URL,
		Database:               cfg.Mongo.Database,
		ServerSelectionTimeout: cfg.Mongo.ServerSelectionTimeout,
	}), log, m)
	a.closers = append(a.closers, a.store.Close)

	repo := mongodb.NewProductRepository(a.store, cfg.Mongo.Collection, log)
	a.ensureIndexes(ctx, repo)

	a.scraper = usecase.NewScrapeService(usecase.ScrapeDependencies{
		Recipes:    recipes,
		Catalog:    catalog,
		Repository: repo,
		Tokens:     tokens,
		Store:      a.store,
		Logger:     log,
		Metrics:    m,
	}, usecase.ScrapeServiceConfig{
		SourceID:    cfg.Scrape.SourceID,
		LocationID:  cfg.Kroger.LocationID,
		Concurrency: cfg.Scrape.Concurrency,
	})

	return a, nil
}

// credentialStore picks where the catalog token is shared
func (a *app) credentialStore() (domain.CredentialStore, error) {
	switch a.cfg.Cache.Type {
	case "redis":
		rc, err := cache.NewRedisCache(a.cfg.Cache.RedisURL, a.cfg.Cache.KeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to build redis credential store: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return rc.Close() })
		a.log.Info(context.Background(), "using redis credential store")
		return rc, nil
	default:
		mc := cache.NewMemoryCache(cacheCleanupInterval)
		a.closers = append(a.closers, func(context.Context) error {
			mc.Close()
			return nil
		})
		a.log.Info(context.Background(), "using in-memory credential store")
		return mc, nil
	}
}

// ensureIndexes is best effort: an unreachable store at startup is retried lazily by the connection manager
func (a *app) ensureIndexes(ctx context.Context, repo *mongodb.ProductRepository) {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	if err := repo.EnsureIndexes(ctx); err != nil {
		a.log.Warn(ctx, "could not ensure product indexes, continuing", "error", err)
	}
}

// close releases resources in reverse order of acquisition
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	_ = a.log.Sync()
	return errors.Join(errs...)
}
