package harvest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/recipefed/extractor"
	"github.com/pevans/recipefed/pages"
	"github.com/pevans/recipefed/recipe"
	"github.com/pevans/recipefed/scraper"
	"go.uber.org/zap"
)

// ProcessDirectory extracts a recipe from every .html or .htm file below
// dir using the configuration of siteID, and saves the results to the
// recipe store. An empty siteID picks the site from each page's canonical
// URL. Failures of single files are counted in the summary, not returned.
func (s *Service) ProcessDirectory(ctx context.Context, dir, siteID string) (*Summary, error) {
	var fixed *scraper.SiteConfig
	if siteID != "" {
		if s.registry == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSite, siteID)
		}
		site, ok := s.registry.Get(siteID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSite, siteID)
		}
		fixed = site
	}

	files, err := htmlFiles(dir)
	if err != nil {
		return nil, err
	}

	s.logger.Info("processing directory", zap.String("dir", dir), zap.Int("files", len(files)))

	summary := &Summary{}
	var wg sync.WaitGroup
	for _, path := range files {
		if !s.acquire(ctx) {
			break
		}
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			defer s.release()

			err := s.processFile(path, fixed)
			if err != nil && !errors.Is(err, extractor.ErrNotRecipe) {
				s.logger.Warn("failed to process file", zap.String("path", path), zap.Error(err))
			}
			summary.record(path, err)
		}(path)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// processFile extracts and stores one saved page, recording it in the page
// store when there is one.
func (s *Service) processFile(path string, fixed *scraper.SiteConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}

	pageURL := canonicalURL(doc)
	if pageURL == "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		pageURL = "file://" + filepath.ToSlash(abs)
	}

	var site scraper.SiteConfig
	if fixed != nil {
		site = *fixed
	} else {
		site = s.siteFor("", pageURL)
	}

	r, extractErr := extractor.Extract(doc, site, pageURL)
	if extractErr == nil {
		if err := s.saveRecipe(r); err != nil {
			return err
		}
	}

	if s.pages != nil {
		s.trackFile(site.ID, pageURL, path, r, extractErr)
	}
	return extractErr
}

// trackFile mirrors a processed file into the page store.
func (s *Service) trackFile(siteID, pageURL, path string, r *recipe.Recipe, extractErr error) {
	page, err := s.pages.GetPageByURL(pageURL)
	if errors.Is(err, pages.ErrPageNotFound) {
		page, err = s.pages.CreatePage(siteID, pageURL, &path)
	}
	if err != nil {
		s.logger.Warn("failed to track page", zap.String("url", pageURL), zap.Error(err))
		return
	}

	update := pages.PageUpdate{HTMLPath: &path}
	status := pages.StatusExtracted
	switch {
	case extractErr == nil:
		now := time.Now()
		update.RecipeID = &r.ID
		update.ExtractedAt = &now
		update.ClearLastError = true
	case errors.Is(extractErr, extractor.ErrNotRecipe):
		status = pages.StatusNotRecipe
	default:
		status = pages.StatusFailed
		msg := extractErr.Error()
		update.LastError = &msg
	}
	update.Status = &status

	if err := s.pages.UpdatePage(page.PageID, update); err != nil {
		s.logger.Warn("failed to update page", zap.String("url", pageURL), zap.Error(err))
	}
}

// canonicalURL reads the page's own URL from its canonical link or og:url.
func canonicalURL(doc *goquery.Document) string {
	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		if href = strings.TrimSpace(href); strings.HasPrefix(href, "http") {
			return href
		}
	}
	if content, ok := doc.Find(`meta[property="og:url"]`).First().Attr("content"); ok {
		if content = strings.TrimSpace(content); strings.HasPrefix(content, "http") {
			return content
		}
	}
	return ""
}

// htmlFiles lists HTML files below dir in lexical order.
func htmlFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".html", ".htm":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Strings(files)
	return files, nil
}
