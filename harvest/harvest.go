// Package harvest runs recipe extraction in bulk: over directories of saved
// HTML, over pending pages in the page store and periodically over the
// feeds of configured sites.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/pevans/recipefed/extractor"
	"github.com/pevans/recipefed/pages"
	"github.com/pevans/recipefed/recipe"
	"github.com/pevans/recipefed/scraper"
	"go.uber.org/zap"
)

// ErrUnknownSite is returned when a site ID has no registry entry.
var ErrUnknownSite = errors.New("unknown site")

// Fetcher downloads and parses a page. *extractor.Fetcher implements it.
type Fetcher interface {
	FetchDocument(ctx context.Context, url string) (*goquery.Document, error)
}

// Config holds configuration for the harvest service.
type Config struct {
	// Maximum number of pages or files processed in parallel
	Concurrency int
	// Timeout per page fetch
	FetchTimeout time.Duration
	// Interval between discover+harvest cycles in Run
	PollInterval time.Duration
	// Number of transient failures before a page is marked failed
	FailureThreshold int
	// Maximum pending pages taken per HarvestPending call
	BatchSize int
}

// DefaultConfig returns the default harvest configuration.
func DefaultConfig() *Config {
	return &Config{
		Concurrency:      4,
		FetchTimeout:     30 * time.Second,
		PollInterval:     1 * time.Hour,
		FailureThreshold: 3,
		BatchSize:        100,
	}
}

// Summary counts the outcome of a batch run.
type Summary struct {
	Processed int         `json:"processed"`
	Extracted int         `json:"extracted"`
	NotRecipe int         `json:"not_recipe"`
	Failed    int         `json:"failed"`
	Errors    []ItemError `json:"errors,omitempty"`

	mu sync.Mutex
}

// ItemError records why one file or page failed.
type ItemError struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

func (s *Summary) record(source string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Processed++
	switch {
	case err == nil:
		s.Extracted++
	case errors.Is(err, extractor.ErrNotRecipe):
		s.NotRecipe++
	default:
		s.Failed++
		s.Errors = append(s.Errors, ItemError{Source: source, Error: err.Error()})
	}
}

// Service extracts recipes in bulk and stores them.
type Service struct {
	pages    *pages.PageStore
	recipes  *recipe.Store
	registry *scraper.Registry
	fetcher  Fetcher
	config   *Config
	logger   *zap.Logger

	feedParser *gofeed.Parser
	semaphore  chan struct{}
	stopChan   chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// NewService creates a harvest service. pageStore may be nil when only
// directories are processed; fetcher may be nil when nothing is fetched.
func NewService(
	pageStore *pages.PageStore,
	recipeStore *recipe.Store,
	registry *scraper.Registry,
	fetcher Fetcher,
	config *Config,
	logger *zap.Logger,
) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	parser := gofeed.NewParser()
	parser.UserAgent = extractor.UserAgent

	return &Service{
		pages:      pageStore,
		recipes:    recipeStore,
		registry:   registry,
		fetcher:    fetcher,
		config:     config,
		logger:     logger,
		feedParser: parser,
		semaphore:  make(chan struct{}, config.Concurrency),
		stopChan:   make(chan struct{}),
	}
}

// Run discovers and harvests pages until Stop is called or ctx is
// cancelled. The first cycle starts immediately.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("harvest service starting",
		zap.Duration("interval", s.config.PollInterval),
		zap.Int("concurrency", s.config.Concurrency),
	)

	s.cycle(ctx)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("harvest service stopping (context cancelled)")
			s.wg.Wait()
			return ctx.Err()
		case <-s.stopChan:
			s.logger.Info("harvest service stopping")
			s.wg.Wait()
			return nil
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

// Stop signals Run to return once in-progress work completes.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *Service) cycle(ctx context.Context) {
	if n, err := s.DiscoverAll(ctx); err != nil {
		s.logger.Error("feed discovery failed", zap.Error(err))
	} else if n > 0 {
		s.logger.Info("discovered pages", zap.Int("count", n))
	}

	summary, err := s.HarvestPending(ctx)
	if err != nil {
		s.logger.Error("harvest failed", zap.Error(err))
		return
	}
	if summary.Processed > 0 {
		s.logger.Info("harvested pages",
			zap.Int("extracted", summary.Extracted),
			zap.Int("not_recipe", summary.NotRecipe),
			zap.Int("failed", summary.Failed),
		)
	}
}

// siteFor picks the configuration for a page: by site ID, then by URL, then
// the generic JSON-LD-only config.
func (s *Service) siteFor(siteID, url string) scraper.SiteConfig {
	if s.registry != nil {
		if site, ok := s.registry.Get(siteID); ok {
			return *site
		}
		if site, ok := s.registry.ForURL(url); ok {
			return *site
		}
	}
	return scraper.Generic()
}

// acquire blocks until a worker slot is free or ctx is done.
func (s *Service) acquire(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case s.semaphore <- struct{}{}:
		return true
	}
}

func (s *Service) release() {
	<-s.semaphore
}

// saveRecipe stores r, replacing the recipe previously extracted from the
// same URL so re-runs do not pile up duplicates.
func (s *Service) saveRecipe(r *recipe.Recipe) error {
	existing, err := s.recipes.FindByURL(r.URL)
	if err != nil {
		return fmt.Errorf("failed to look up recipe: %w", err)
	}
	if existing != nil {
		r.ID = existing.ID
		if err := s.recipes.Update(*r); err != nil {
			return fmt.Errorf("failed to update recipe: %w", err)
		}
		return nil
	}
	if err := s.recipes.Add(*r); err != nil {
		return fmt.Errorf("failed to save recipe: %w", err)
	}
	return nil
}
