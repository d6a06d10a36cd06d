package pages

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: create a test page store
func createTestPageStore(t *testing.T) *PageStore {
	dbPath := filepath.Join(t.TempDir(), "pages.db")
	store, err := NewPageStore(dbPath)
	require.NoError(t, err, "should create page store")
	t.Cleanup(func() { store.Close() })
	return store
}

func strPtr(s string) *string {
	return &s
}

// TestNewPageStore_ExistingDatabase verifies reopening keeps stored pages
func TestNewPageStore_ExistingDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pages.db")

	store, err := NewPageStore(dbPath)
	require.NoError(t, err)
	_, err = store.CreatePage("example", "https://example.com/a", nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewPageStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	pages, err := store.ListPages(PageFilter{})
	require.NoError(t, err)
	assert.Len(t, pages, 1)
}

// TestCreatePage verifies new pages start pending
func TestCreatePage(t *testing.T) {
	store := createTestPageStore(t)

	page, err := store.CreatePage("example", "https://example.com/a", strPtr("/tmp/a.html"))
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, page.PageID)
	assert.Equal(t, StatusPending, page.Status)
	assert.Equal(t, 0, page.ErrorCount)
	require.NotNil(t, page.HTMLPath)
	assert.Equal(t, "/tmp/a.html", *page.HTMLPath)
	assert.Nil(t, page.RecipeID)
}

// TestCreatePage_DuplicateURL verifies URLs are unique
func TestCreatePage_DuplicateURL(t *testing.T) {
	store := createTestPageStore(t)

	_, err := store.CreatePage("example", "https://example.com/a", nil)
	require.NoError(t, err)

	_, err = store.CreatePage("other", "https://example.com/a", nil)
	assert.ErrorIs(t, err, ErrDuplicateURL)
}

// TestGetPage_PreservesAllFields verifies a round trip through the database
func TestGetPage_PreservesAllFields(t *testing.T) {
	store := createTestPageStore(t)

	page, err := store.CreatePage("example", "https://example.com/a", nil)
	require.NoError(t, err)

	recipeID := uuid.New()
	extractedAt := time.Now().Add(-time.Minute)
	require.NoError(t, store.UpdatePage(page.PageID, PageUpdate{
		Status:      strPtr(StatusExtracted),
		HTMLPath:    strPtr("/data/a.html"),
		RecipeID:    &recipeID,
		ExtractedAt: &extractedAt,
	}))

	got, err := store.GetPage(page.PageID)
	require.NoError(t, err)
	assert.Equal(t, "example", got.SiteID)
	assert.Equal(t, StatusExtracted, got.Status)
	require.NotNil(t, got.RecipeID)
	assert.Equal(t, recipeID, *got.RecipeID)
	require.NotNil(t, got.HTMLPath)
	assert.Equal(t, "/data/a.html", *got.HTMLPath)
	require.NotNil(t, got.ExtractedAt)
	assert.True(t, extractedAt.Truncate(0).Equal(*got.ExtractedAt))
	assert.True(t, got.UpdatedAt.After(got.CreatedAt) || got.UpdatedAt.Equal(got.CreatedAt))
}

// TestGetPage_NotFound verifies missing pages return the sentinel
func TestGetPage_NotFound(t *testing.T) {
	store := createTestPageStore(t)

	_, err := store.GetPage(uuid.New())
	assert.ErrorIs(t, err, ErrPageNotFound)

	_, err = store.GetPageByURL("https://example.com/missing")
	assert.ErrorIs(t, err, ErrPageNotFound)
}

// TestGetPageByURL verifies lookup by URL
func TestGetPageByURL(t *testing.T) {
	store := createTestPageStore(t)

	page, err := store.CreatePage("example", "https://example.com/a", nil)
	require.NoError(t, err)

	got, err := store.GetPageByURL("https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, page.PageID, got.PageID)
}

// TestListPages_Filters verifies status and site filters and ordering
func TestListPages_Filters(t *testing.T) {
	store := createTestPageStore(t)

	a, err := store.CreatePage("one", "https://one.example/a", nil)
	require.NoError(t, err)
	b, err := store.CreatePage("one", "https://one.example/b", nil)
	require.NoError(t, err)
	_, err = store.CreatePage("two", "https://two.example/c", nil)
	require.NoError(t, err)

	require.NoError(t, store.UpdatePage(b.PageID, PageUpdate{Status: strPtr(StatusFailed)}))

	pending, err := store.ListPages(PageFilter{Status: strPtr(StatusPending)})
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, a.PageID, pending[0].PageID, "oldest page first")

	one, err := store.ListPages(PageFilter{SiteID: strPtr("one")})
	require.NoError(t, err)
	assert.Len(t, one, 2)

	limited, err := store.ListPages(PageFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, b.PageID, limited[0].PageID)

	offset, err := store.ListPages(PageFilter{Offset: 2})
	require.NoError(t, err)
	assert.Len(t, offset, 1)

	_, err = store.ListPages(PageFilter{Status: strPtr("bogus")})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

// TestUpdatePage_Errors verifies error bookkeeping fields
func TestUpdatePage_Errors(t *testing.T) {
	store := createTestPageStore(t)

	page, err := store.CreatePage("example", "https://example.com/a", nil)
	require.NoError(t, err)

	count := 2
	require.NoError(t, store.UpdatePage(page.PageID, PageUpdate{
		ErrorCount: &count,
		LastError:  strPtr("timeout"),
	}))

	got, err := store.GetPage(page.PageID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ErrorCount)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "timeout", *got.LastError)

	require.NoError(t, store.UpdatePage(page.PageID, PageUpdate{ClearLastError: true}))
	got, err = store.GetPage(page.PageID)
	require.NoError(t, err)
	assert.Nil(t, got.LastError)
}

// TestUpdatePage_Invalid verifies bad statuses and unknown pages are
// rejected
func TestUpdatePage_Invalid(t *testing.T) {
	store := createTestPageStore(t)

	page, err := store.CreatePage("example", "https://example.com/a", nil)
	require.NoError(t, err)

	err = store.UpdatePage(page.PageID, PageUpdate{Status: strPtr("done")})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	err = store.UpdatePage(uuid.New(), PageUpdate{Status: strPtr(StatusFailed)})
	assert.ErrorIs(t, err, ErrPageNotFound)
}

// TestDeletePage verifies pages and their error history are removed
func TestDeletePage(t *testing.T) {
	store := createTestPageStore(t)

	page, err := store.CreatePage("example", "https://example.com/a", nil)
	require.NoError(t, err)
	require.NoError(t, store.RecordError(page.PageID, "boom", time.Now()))

	require.NoError(t, store.DeletePage(page.PageID))

	_, err = store.GetPage(page.PageID)
	assert.ErrorIs(t, err, ErrPageNotFound)

	errs, err := store.ListErrors(page.PageID, 10)
	require.NoError(t, err)
	assert.Empty(t, errs)

	assert.ErrorIs(t, store.DeletePage(page.PageID), ErrPageNotFound)
}

// TestCountByStatus verifies every status is reported
func TestCountByStatus(t *testing.T) {
	store := createTestPageStore(t)

	_, err := store.CreatePage("example", "https://example.com/a", nil)
	require.NoError(t, err)
	b, err := store.CreatePage("example", "https://example.com/b", nil)
	require.NoError(t, err)
	require.NoError(t, store.UpdatePage(b.PageID, PageUpdate{Status: strPtr(StatusNotRecipe)}))

	counts, err := store.CountByStatus()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		StatusPending:   1,
		StatusExtracted: 0,
		StatusFailed:    0,
		StatusNotRecipe: 1,
	}, counts)
}

// TestListErrors_OrdersMostRecentFirst verifies descending chronological
// order and the limit
func TestListErrors_OrdersMostRecentFirst(t *testing.T) {
	store := createTestPageStore(t)

	page, err := store.CreatePage("example", "https://example.com/a", nil)
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, store.RecordError(page.PageID, "first error", now.Add(-2*time.Hour)))
	require.NoError(t, store.RecordError(page.PageID, "second error", now.Add(-time.Hour)))
	require.NoError(t, store.RecordError(page.PageID, "third error", now))

	errs, err := store.ListErrors(page.PageID, 10)
	require.NoError(t, err)
	require.Len(t, errs, 3)
	assert.Equal(t, "third error", errs[0].Error)
	assert.Equal(t, "first error", errs[2].Error)
	assert.Equal(t, page.PageID, errs[0].PageID)

	errs, err = store.ListErrors(page.PageID, 2)
	require.NoError(t, err)
	assert.Len(t, errs, 2)
}
