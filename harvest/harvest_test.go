package harvest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/pevans/recipefed/extractor"
	"github.com/pevans/recipefed/pages"
	"github.com/pevans/recipefed/recipe"
	"github.com/pevans/recipefed/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const recipePage = `<html><head>
<link rel="canonical" href="https://example.com/recipes/pancakes">
<script type="application/ld+json">{"@type":"Recipe","name":"Pancakes","recipeIngredient":["2 eggs","1 cup milk"]}</script>
</head><body></body></html>`

const aboutPage = `<html><head><title>About</title></head><body><p>About us</p></body></html>`

// fakeFetcher serves pages from memory; unknown URLs are 404s.
type fakeFetcher struct {
	pages map[string]string
	errs  map[string]error
}

func (f *fakeFetcher) FetchDocument(_ context.Context, url string) (*goquery.Document, error) {
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	body, ok := f.pages[url]
	if !ok {
		return nil, &extractor.HTTPError{URL: url, StatusCode: http.StatusNotFound, Status: "404 Not Found"}
	}
	return goquery.NewDocumentFromReader(strings.NewReader(body))
}

type testEnv struct {
	service *Service
	pages   *pages.PageStore
	recipes *recipe.Store
}

func newTestEnv(t *testing.T, fetcher Fetcher, config *Config) *testEnv {
	t.Helper()
	tempDir := t.TempDir()

	pageStore, err := pages.NewPageStore(filepath.Join(tempDir, "pages.db"))
	require.NoError(t, err)
	t.Cleanup(func() { pageStore.Close() })

	recipeStore, err := recipe.NewStore(filepath.Join(tempDir, "recipes"))
	require.NoError(t, err)

	registry, err := scraper.DefaultRegistry()
	require.NoError(t, err)

	return &testEnv{
		service: NewService(pageStore, recipeStore, registry, fetcher, config, zap.NewNop()),
		pages:   pageStore,
		recipes: recipeStore,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// TestDefaultConfig verifies default harvest settings
func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, 4, config.Concurrency)
	assert.Equal(t, 30*time.Second, config.FetchTimeout)
	assert.Equal(t, time.Hour, config.PollInterval)
	assert.Equal(t, 3, config.FailureThreshold)
	assert.Equal(t, 100, config.BatchSize)
}

// TestProcessDirectory verifies saved pages are extracted, stored and
// tracked
func TestProcessDirectory(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "pancakes.html"), recipePage)
	writeFile(t, filepath.Join(dir, "nested", "about.htm"), aboutPage)
	writeFile(t, filepath.Join(dir, "notes.txt"), "not html")

	summary, err := env.service.ProcessDirectory(context.Background(), dir, "")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Extracted)
	assert.Equal(t, 1, summary.NotRecipe)
	assert.Equal(t, 0, summary.Failed)

	result, err := env.recipes.List()
	require.NoError(t, err)
	require.Len(t, result.Recipes, 1)
	r := result.Recipes[0]
	assert.Equal(t, "Pancakes", r.DishName)
	assert.Equal(t, "https://example.com/recipes/pancakes", r.URL)
	assert.Len(t, r.Ingredients, 2)

	page, err := env.pages.GetPageByURL("https://example.com/recipes/pancakes")
	require.NoError(t, err)
	assert.Equal(t, pages.StatusExtracted, page.Status)
	require.NotNil(t, page.RecipeID)
	assert.Equal(t, r.ID, *page.RecipeID)
	require.NotNil(t, page.HTMLPath)
	assert.Equal(t, filepath.Join(dir, "pancakes.html"), *page.HTMLPath)

	counts, err := env.pages.CountByStatus()
	require.NoError(t, err)
	assert.Equal(t, 1, counts[pages.StatusNotRecipe])

	// A second run replaces the recipe instead of adding another.
	_, err = env.service.ProcessDirectory(context.Background(), dir, "")
	require.NoError(t, err)
	result, err = env.recipes.List()
	require.NoError(t, err)
	require.Len(t, result.Recipes, 1)
	assert.Equal(t, r.ID, result.Recipes[0].ID)
}

// TestProcessDirectory_Site verifies a named site's selectors are used
func TestProcessDirectory_Site(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "kuchen.html"), `<html><body>
<h1>Apfelkuchen</h1>
<table class="ingredients">
  <tr><td class="td-left">2 EL</td><td class="td-right">Zucker</td></tr>
</table></body></html>`)

	summary, err := env.service.ProcessDirectory(context.Background(), dir, "chefkoch_de")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Extracted)

	result, err := env.recipes.List()
	require.NoError(t, err)
	require.Len(t, result.Recipes, 1)
	assert.Equal(t, "chefkoch_de", result.Recipes[0].SiteID)
	require.Len(t, result.Recipes[0].Ingredients, 1)
	assert.Equal(t, "tbsp", result.Recipes[0].Ingredients[0].Unit)
}

// TestProcessDirectory_Errors verifies unknown sites and missing
// directories are rejected
func TestProcessDirectory_Errors(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	_, err := env.service.ProcessDirectory(context.Background(), t.TempDir(), "nope")
	assert.ErrorIs(t, err, ErrUnknownSite)

	_, err = env.service.ProcessDirectory(context.Background(), filepath.Join(t.TempDir(), "missing"), "")
	assert.Error(t, err)
}

// TestHarvestPending verifies each outcome moves pages to the right state
func TestHarvestPending(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[string]string{
			"https://example.com/recipes/pancakes": recipePage,
			"https://example.com/about":            aboutPage,
		},
		errs: map[string]error{
			"https://example.com/flaky": errors.New("connection reset by peer"),
			"https://example.com/gone": &extractor.HTTPError{
				URL: "https://example.com/gone", StatusCode: http.StatusGone, Status: "410 Gone",
			},
		},
	}
	config := DefaultConfig()
	config.FailureThreshold = 2
	env := newTestEnv(t, fetcher, config)

	urls := []string{
		"https://example.com/recipes/pancakes",
		"https://example.com/about",
		"https://example.com/flaky",
		"https://example.com/gone",
	}
	for _, u := range urls {
		_, err := env.pages.CreatePage("generic", u, nil)
		require.NoError(t, err)
	}

	summary, err := env.service.HarvestPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Processed)
	assert.Equal(t, 1, summary.Extracted)
	assert.Equal(t, 1, summary.NotRecipe)
	assert.Equal(t, 2, summary.Failed)

	status := func(u string) *pages.Page {
		page, err := env.pages.GetPageByURL(u)
		require.NoError(t, err)
		return page
	}

	page := status("https://example.com/recipes/pancakes")
	assert.Equal(t, pages.StatusExtracted, page.Status)
	assert.NotNil(t, page.ExtractedAt)
	assert.Equal(t, 0, page.ErrorCount)

	assert.Equal(t, pages.StatusNotRecipe, status("https://example.com/about").Status)

	page = status("https://example.com/gone")
	assert.Equal(t, pages.StatusFailed, page.Status, "410 is permanent")
	require.NotNil(t, page.LastError)
	assert.Contains(t, *page.LastError, "410")

	page = status("https://example.com/flaky")
	assert.Equal(t, pages.StatusPending, page.Status, "transient errors are retried")
	assert.Equal(t, 1, page.ErrorCount)

	errs, err := env.pages.ListErrors(page.PageID, 10)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error, "connection reset")

	// The second failure reaches the threshold.
	summary, err = env.service.HarvestPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)

	page = status("https://example.com/flaky")
	assert.Equal(t, pages.StatusFailed, page.Status)
	assert.Equal(t, 2, page.ErrorCount)
}

// TestHarvestPending_Requirements verifies missing dependencies are reported
func TestHarvestPending_Requirements(t *testing.T) {
	recipeStore, err := recipe.NewStore(t.TempDir())
	require.NoError(t, err)

	service := NewService(nil, recipeStore, nil, &fakeFetcher{}, nil, nil)
	_, err = service.HarvestPending(context.Background())
	assert.ErrorIs(t, err, ErrNoPageStore)

	env := newTestEnv(t, nil, nil)
	_, err = env.service.HarvestPending(context.Background())
	assert.ErrorIs(t, err, ErrNoFetcher)
}

// TestHarvestURL verifies a single URL is registered and extracted
func TestHarvestURL(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example.com/recipes/pancakes": recipePage,
	}}
	env := newTestEnv(t, fetcher, nil)

	page, err := env.service.HarvestURL(context.Background(), "https://example.com/recipes/pancakes")
	require.NoError(t, err)
	assert.Equal(t, pages.StatusExtracted, page.Status)
	assert.Equal(t, "generic", page.SiteID)
	require.NotNil(t, page.RecipeID)

	r, err := env.recipes.Get(*page.RecipeID)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "Pancakes", r.DishName)

	page, err = env.service.HarvestURL(context.Background(), "https://example.com/missing")
	assert.True(t, extractor.IsPermanent(err))
	require.NotNil(t, page)
	assert.Equal(t, pages.StatusFailed, page.Status)
}

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Recipes</title>
<link>%[1]s</link>
<item><title>Pancakes</title><link>%[1]s/recipes/pancakes</link></item>
<item><title>Waffles</title><link>%[1]s/recipes/waffles</link></item>
<item><title>Pancakes again</title><link>%[1]s/recipes/pancakes</link></item>
</channel></rss>`

// TestDiscoverFeed verifies feed links become pending pages once
func TestDiscoverFeed(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, testFeed, server.URL)
	}))
	defer server.Close()

	env := newTestEnv(t, nil, nil)
	site := scraper.SiteConfig{ID: "local", Domain: "127.0.0.1", FeedURL: server.URL + "/feed"}

	n, err := env.service.DiscoverFeed(context.Background(), site)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = env.service.DiscoverFeed(context.Background(), site)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "known links are skipped")

	status := pages.StatusPending
	pending, err := env.pages.ListPages(pages.PageFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "local", pending[0].SiteID)
	assert.Equal(t, server.URL+"/recipes/pancakes", pending[0].URL)
}

// TestDiscoverFeed_Errors verifies sites without feeds and broken feeds
func TestDiscoverFeed_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>not a feed</html>")
	}))
	defer server.Close()

	env := newTestEnv(t, nil, nil)

	_, err := env.service.DiscoverFeed(context.Background(), scraper.SiteConfig{ID: "nofeed", Domain: "x.example"})
	assert.ErrorIs(t, err, ErrNoFeed)

	_, err = env.service.DiscoverFeed(context.Background(), scraper.SiteConfig{
		ID: "broken", Domain: "127.0.0.1", FeedURL: server.URL,
	})
	assert.Error(t, err)
}

// TestFeedLinks verifies empty and duplicate links are dropped
func TestFeedLinks(t *testing.T) {
	feed := &gofeed.Feed{Items: []*gofeed.Item{
		{Link: "https://a.example/1"},
		{Links: []string{"https://a.example/2"}},
		{Link: " https://a.example/1 "},
		{},
	}}

	assert.Equal(t, []string{"https://a.example/1", "https://a.example/2"}, feedLinks(feed))
}

// TestRun_Stop verifies Run returns after Stop
func TestRun_Stop(t *testing.T) {
	env := newTestEnv(t, &fakeFetcher{}, nil)
	env.service.registry = scraper.NewRegistry()

	done := make(chan error, 1)
	go func() { done <- env.service.Run(context.Background()) }()

	env.service.Stop()
	env.service.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

// TestRun_ContextCancelled verifies Run returns the context error
func TestRun_ContextCancelled(t *testing.T) {
	env := newTestEnv(t, &fakeFetcher{}, nil)
	env.service.registry = scraper.NewRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := env.service.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
