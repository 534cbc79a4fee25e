package usecase

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ingredientscout/backend/internal/domain"
	"github.com/ingredientscout/backend/internal/infrastructure/metrics"
)

// DefaultConcurrency caps how many ingredient lookups run at once
const DefaultConcurrency = 16

// ScrapeServiceConfig holds configuration for the scrape service
type ScrapeServiceConfig struct {
	// SourceID is stamped on every stored product, e.g. "spoonacular"
	SourceID string
	// LocationID scopes catalog searches to one store; empty uses the catalog client default
	LocationID  string
	Concurrency int
}

// ScrapeDependencies are the collaborators of the scrape service. Tokens and Store are
// optional preflight checks for the shared infrastructure.
type ScrapeDependencies struct {
	Recipes    domain.RecipeSource
	Catalog    domain.CatalogClient
	Repository domain.ProductRepository
	Tokens     domain.TokenSource
	Store      domain.HealthChecker
	Logger     domain.Logger
	Metrics    domain.Metrics
}

// ScrapeService pulls an ingredient batch and looks every ingredient up in the catalog
// concurrently, persisting what it finds. A failing ingredient never affects its siblings.
type ScrapeService struct {
	deps        ScrapeDependencies
	logger      domain.Logger
	metrics     domain.Metrics
	sourceID    string
	locationID  string
	concurrency int

	running atomic.Bool
	mu      sync.RWMutex
	lastRun *domain.RunResult

	now func() time.Time
}

// NewScrapeService creates a new scrape service with dependencies
func NewScrapeService(deps ScrapeDependencies, config ScrapeServiceConfig) *ScrapeService {
	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.Noop{}
	}

	return &ScrapeService{
		deps:        deps,
		logger:      deps.Logger.With("component", "scrape_service"),
		metrics:     m,
		sourceID:    config.SourceID,
		locationID:  config.LocationID,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Run executes one scrape. An empty ingredient batch is not an error and yields zero counts.
// Errors are returned only when the run could not start: the recipe API failed, or the
// catalog credentials or document store are unavailable to everyone.
func (s *ScrapeService) Run(ctx context.Context) (*domain.RunResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, domain.ErrRunInProgress
	}
	defer s.running.Store(false)

	result := &domain.RunResult{
		RunID:     uuid.NewString(),
		StartedAt: s.now(),
	}
	ctx = domain.WithRunID(ctx, result.RunID)
	s.logger.Info(ctx, "starting scraping process", "source_id", s.sourceID)

	batch, err := s.deps.Recipes.FetchIngredientBatch(ctx)
	if err != nil && !errors.Is(err, domain.ErrEmptyResult) {
		s.logger.Error(ctx, "failed to fetch ingredients", "error", err)
		return nil, fmt.Errorf("fetch ingredients: %w", err)
	}
	if batch.Len() == 0 {
		s.logger.Info(ctx, "no ingredients found, stopping process")
		s.finish(result)
		return result, nil
	}

	if err := s.preflight(ctx); err != nil {
		return nil, err
	}

	result.Ingredients = batch.Len()
	s.processIngredients(ctx, batch, result)
	s.finish(result)

	s.logger.Info(ctx, "scraping process finished",
		"ingredients", result.Ingredients,
		"items_processed", result.ItemsProcessed,
		"items_failed", result.ItemsFailed,
		"products_saved", result.ProductsSaved,
		"duration", result.Duration())
	return result, nil
}

// preflight checks the resources every ingredient task shares
func (s *ScrapeService) preflight(ctx context.Context) error {
	if s.deps.Tokens != nil {
		if _, err := s.deps.Tokens.Token(ctx); err != nil {
			s.logger.Error(ctx, "catalog credentials unavailable", "error", err)
			return fmt.Errorf("catalog credentials unavailable: %w", err)
		}
	}
	if s.deps.Store != nil {
		if err := s.deps.Store.Ping(ctx); err != nil {
			s.logger.Error(ctx, "document store unavailable", "error", err)
			return fmt.Errorf("document store unavailable: %w", err)
		}
	}
	return nil
}

// processIngredients fans out one task per ingredient and waits for all of them.
// Tasks never return errors to the group, so no task can cancel another.
func (s *ScrapeService) processIngredients(ctx context.Context, batch domain.IngredientBatch, result *domain.RunResult) {
	var processed, failed, saved atomic.Int64

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for _, name := range batch.Names() {
		g.Go(func() error {
			n, err := s.scrapeIngredient(ctx, name)
			if err != nil {
				failed.Add(1)
				s.metrics.IngredientFailed()
				return nil
			}
			processed.Add(1)
			saved.Add(int64(n))
			s.metrics.IngredientProcessed()
			s.metrics.ProductsSaved(n)
			return nil
		})
	}
	_ = g.Wait()

	result.ItemsProcessed = int(processed.Load())
	result.ItemsFailed = int(failed.Load())
	result.ProductsSaved = int(saved.Load())
}

// scrapeIngredient fetches and persists the products of one ingredient.
// Errors are logged here with the ingredient attached; panics are turned into errors.
func (s *ScrapeService) scrapeIngredient(ctx context.Context, name string) (saved int, err error) {
	ctx = domain.WithIngredient(ctx, name)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			s.logger.Error(ctx, "panic recovered in ingredient task",
				"panic_info", fmt.Sprintf("%v", r),
				"stacktrace", string(debug.Stack()))
		}
	}()

	s.logger.Debug(ctx, "fetching ingredient from catalog")
	products, err := s.deps.Catalog.FetchAll(ctx, name, s.locationID)
	if err != nil {
		s.logger.Error(ctx, "error processing ingredient", "stage", "fetch", "error", err)
		return 0, err
	}

	if len(products) == 0 {
		s.logger.Warn(ctx, "no products found, skipping")
		return 0, nil
	}

	n, err := s.deps.Repository.SaveIngredients(ctx, products, name, s.sourceID)
	if err != nil {
		s.logger.Error(ctx, "error saving ingredient", "stage", "persist", "products", len(products), "error", err)
		return 0, err
	}

	s.logger.Info(ctx, "saved products for ingredient", "count", n)
	return n, nil
}

func (s *ScrapeService) finish(result *domain.RunResult) {
	result.FinishedAt = s.now()
	s.metrics.RunCompleted(result.Duration())

	snapshot := *result
	s.mu.Lock()
	s.lastRun = &snapshot
	s.mu.Unlock()
}

// LastRun returns the result of the most recent completed run
func (s *ScrapeService) LastRun() (*domain.RunResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastRun == nil {
		return nil, false
	}
	snapshot := *s.lastRun
	return &snapshot, true
}

// Running reports whether a run is in progress
func (s *ScrapeService) Running() bool {
	return s.running.Load()
}
