package harvest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pevans/recipefed/extractor"
	"github.com/pevans/recipefed/pages"
	"go.uber.org/zap"
)

// ErrNoPageStore is returned by operations that need a page store when the
// service was built without one.
var ErrNoPageStore = errors.New("no page store configured")

// ErrNoFetcher is returned by operations that fetch pages when the service
// was built without a fetcher.
var ErrNoFetcher = errors.New("no fetcher configured")

// HarvestPending fetches and extracts up to BatchSize pages in the pending
// state, oldest first. Pages that can never succeed (404, 410, not a
// recipe) leave the pending state at once; transient failures are retried
// on later runs until FailureThreshold is reached.
func (s *Service) HarvestPending(ctx context.Context) (*Summary, error) {
	if s.pages == nil {
		return nil, ErrNoPageStore
	}
	if s.fetcher == nil {
		return nil, ErrNoFetcher
	}

	status := pages.StatusPending
	pending, err := s.pages.ListPages(pages.PageFilter{Status: &status, Limit: s.config.BatchSize})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending pages: %w", err)
	}

	summary := &Summary{}
	if len(pending) == 0 {
		return summary, nil
	}

	s.logger.Info("harvesting pending pages", zap.Int("count", len(pending)))

	var wg sync.WaitGroup
	for _, page := range pending {
		if !s.acquire(ctx) {
			break
		}
		wg.Add(1)
		s.wg.Add(1)
		go func(p pages.Page) {
			defer s.wg.Done()
			defer wg.Done()
			defer s.release()

			summary.record(p.URL, s.harvestPage(ctx, p))
		}(page)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// HarvestURL fetches and extracts a single page right away, registering it
// in the page store first when it is new.
func (s *Service) HarvestURL(ctx context.Context, url string) (*pages.Page, error) {
	if s.pages == nil {
		return nil, ErrNoPageStore
	}
	if s.fetcher == nil {
		return nil, ErrNoFetcher
	}

	page, err := s.pages.GetPageByURL(url)
	if errors.Is(err, pages.ErrPageNotFound) {
		page, err = s.pages.CreatePage(s.siteFor("", url).ID, url, nil)
	}
	if err != nil {
		return nil, err
	}

	harvestErr := s.harvestPage(ctx, *page)

	updated, err := s.pages.GetPage(page.PageID)
	if err != nil {
		return nil, err
	}
	return updated, harvestErr
}

// harvestPage fetches, extracts and stores one page and records the outcome
// on it.
func (s *Service) harvestPage(ctx context.Context, page pages.Page) error {
	start := time.Now()
	site := s.siteFor(page.SiteID, page.URL)

	fetchCtx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()

	doc, err := s.fetcher.FetchDocument(fetchCtx, page.URL)
	if err != nil {
		s.handleFailure(page, err)
		return err
	}

	r, err := extractor.Extract(doc, site, page.URL)
	if err != nil {
		s.handleFailure(page, err)
		return err
	}

	if err := s.saveRecipe(r); err != nil {
		s.handleFailure(page, err)
		return err
	}

	now := time.Now()
	status := pages.StatusExtracted
	zero := 0
	update := pages.PageUpdate{
		Status:         &status,
		RecipeID:       &r.ID,
		ErrorCount:     &zero,
		ClearLastError: true,
		ExtractedAt:    &now,
	}
	if err := s.pages.UpdatePage(page.PageID, update); err != nil {
		s.logger.Error("failed to update page", zap.String("url", page.URL), zap.Error(err))
	}

	duration := time.Since(start)
	fields := []zap.Field{
		zap.String("url", page.URL),
		zap.String("dish", r.DishName),
		zap.Int("ingredients", len(r.Ingredients)),
		zap.Duration("took", duration),
	}
	if duration > 30*time.Second {
		s.logger.Warn("slow extraction", fields...)
	} else {
		s.logger.Info("extracted recipe", fields...)
	}
	return nil
}

// handleFailure records err on the page and moves it out of the pending
// state when retrying cannot help or the failure threshold is reached.
func (s *Service) handleFailure(page pages.Page, failure error) {
	now := time.Now()
	msg := failure.Error()
	if err := s.pages.RecordError(page.PageID, msg, now); err != nil {
		s.logger.Warn("failed to record page error", zap.String("url", page.URL), zap.Error(err))
	}

	errorCount := page.ErrorCount + 1
	update := pages.PageUpdate{
		ErrorCount: &errorCount,
		LastError:  &msg,
	}

	var status string
	switch {
	case errors.Is(failure, extractor.ErrNotRecipe):
		status = pages.StatusNotRecipe
		s.logger.Info("page is not a recipe", zap.String("url", page.URL))
	case extractor.IsPermanent(failure):
		status = pages.StatusFailed
		s.logger.Error("page failed permanently", zap.String("url", page.URL), zap.Error(failure))
	case errorCount >= s.config.FailureThreshold:
		status = pages.StatusFailed
		s.logger.Error("page failed too often",
			zap.String("url", page.URL),
			zap.Int("errors", errorCount),
			zap.Error(failure),
		)
	default:
		s.logger.Warn("page fetch failed, will retry",
			zap.String("url", page.URL),
			zap.Int("errors", errorCount),
			zap.Error(failure),
		)
	}
	if status != "" {
		update.Status = &status
	}

	if err := s.pages.UpdatePage(page.PageID, update); err != nil {
		s.logger.Error("failed to update page", zap.String("url", page.URL), zap.Error(err))
	}
}
