// Package pages tracks discovered recipe pages and their extraction status in
// SQLite.
package pages

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Page statuses
const (
	StatusPending   = "pending"
	StatusExtracted = "extracted"
	StatusFailed    = "failed"
	StatusNotRecipe = "not_recipe"
)

// Custom errors for page operations
var (
	ErrPageNotFound  = errors.New("page not found")
	ErrDuplicateURL  = errors.New("page with this URL already exists")
	ErrInvalidStatus = errors.New("status must be pending, extracted, failed, or not_recipe")
)

// ValidStatus reports whether status is one of the page statuses.
func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusExtracted, StatusFailed, StatusNotRecipe:
		return true
	}
	return false
}

// PageStore manages discovered pages using SQLite.
type PageStore struct {
	db *sql.DB
}

// Page is a recipe page known to the harvester.
type Page struct {
	PageID      uuid.UUID  `json:"page_id"`
	SiteID      string     `json:"site_id"`
	URL         string     `json:"url"`
	HTMLPath    *string    `json:"html_path,omitempty"`
	Status      string     `json:"status"`
	RecipeID    *uuid.UUID `json:"recipe_id,omitempty"`
	ErrorCount  int        `json:"error_count"`
	LastError   *string    `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ExtractedAt *time.Time `json:"extracted_at,omitempty"`
}

// PageUpdate represents fields that can be updated on a page.
type PageUpdate struct {
	Status         *string
	HTMLPath       *string
	RecipeID       *uuid.UUID
	ErrorCount     *int
	LastError      *string
	ClearLastError bool // Set to true to set last_error to NULL
	ExtractedAt    *time.Time
}

// PageFilter represents filtering options for listing pages.
type PageFilter struct {
	SiteID *string
	Status *string
	Limit  int
	Offset int
}

// PageError is one recorded extraction failure.
type PageError struct {
	PageID     uuid.UUID `json:"page_id"`
	Error      string    `json:"error"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewPageStore opens (or creates) the page database at dbPath.
func NewPageStore(dbPath string) (*PageStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; harvest workers share this connection.
	db.SetMaxOpenConns(1)

	store := &PageStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the pages and page_errors tables if they don't exist.
func (s *PageStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pages (
		page_id TEXT PRIMARY KEY,
		site_id TEXT NOT NULL,
		url TEXT NOT NULL UNIQUE,
		html_path TEXT,
		status TEXT NOT NULL,
		recipe_id TEXT,
		error_count INTEGER DEFAULT 0,
		last_error TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		extracted_at TEXT
	);
	CREATE INDEX IF NOT EXISTS pages_status ON pages (status);
	CREATE TABLE IF NOT EXISTS page_errors (
		page_id TEXT NOT NULL,
		error TEXT NOT NULL,
		occurred_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *PageStore) Close() error {
	return s.db.Close()
}

// CreatePage records a new pending page. htmlPath may be nil for pages that
// have not been downloaded yet.
func (s *PageStore) CreatePage(siteID, url string, htmlPath *string) (*Page, error) {
	now := time.Now()

	page := &Page{
		PageID:    uuid.New(),
		SiteID:    siteID,
		URL:       url,
		HTMLPath:  htmlPath,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
		INSERT INTO pages (
			page_id, site_id, url, html_path, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		page.PageID.String(),
		page.SiteID,
		page.URL,
		page.HTMLPath,
		page.Status,
		formatTime(&page.CreatedAt),
		formatTime(&page.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateURL
		}
		return nil, fmt.Errorf("failed to insert page: %w", err)
	}

	return page, nil
}

const selectPage = `
	SELECT page_id, site_id, url, html_path, status, recipe_id,
	       error_count, last_error, created_at, updated_at, extracted_at
	FROM pages
`

// GetPage retrieves a page by ID.
func (s *PageStore) GetPage(pageID uuid.UUID) (*Page, error) {
	row := s.db.QueryRow(selectPage+" WHERE page_id = ?", pageID.String())
	page, err := scanPage(row)
	if err == sql.ErrNoRows {
		return nil, ErrPageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query page: %w", err)
	}
	return page, nil
}

// GetPageByURL retrieves a page by its URL.
func (s *PageStore) GetPageByURL(url string) (*Page, error) {
	row := s.db.QueryRow(selectPage+" WHERE url = ?", url)
	page, err := scanPage(row)
	if err == sql.ErrNoRows {
		return nil, ErrPageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query page: %w", err)
	}
	return page, nil
}

// ListPages lists pages with optional filtering, oldest first so harvesting
// works through the backlog in discovery order.
func (s *PageStore) ListPages(filter PageFilter) ([]Page, error) {
	query := selectPage

	var whereClauses []string
	var args []any

	if filter.SiteID != nil {
		whereClauses = append(whereClauses, "site_id = ?")
		args = append(args, *filter.SiteID)
	}
	if filter.Status != nil {
		if !ValidStatus(*filter.Status) {
			return nil, ErrInvalidStatus
		}
		whereClauses = append(whereClauses, "status = ?")
		args = append(args, *filter.Status)
	}

	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}

	query += " ORDER BY created_at ASC, rowid ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	} else if filter.Offset > 0 {
		query += " LIMIT -1"
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, *page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pages: %w", err)
	}

	return pages, nil
}

// UpdatePage updates a page with the provided fields.
func (s *PageStore) UpdatePage(pageID uuid.UUID, update PageUpdate) error {
	setClauses := []string{"updated_at = ?"}
	now := time.Now()
	args := []any{formatTime(&now)}

	if update.Status != nil {
		if !ValidStatus(*update.Status) {
			return ErrInvalidStatus
		}
		setClauses = append(setClauses, "status = ?")
		args = append(args, *update.Status)
	}
	if update.HTMLPath != nil {
		setClauses = append(setClauses, "html_path = ?")
		args = append(args, *update.HTMLPath)
	}
	if update.RecipeID != nil {
		setClauses = append(setClauses, "recipe_id = ?")
		args = append(args, update.RecipeID.String())
	}
	if update.ErrorCount != nil {
		setClauses = append(setClauses, "error_count = ?")
		args = append(args, *update.ErrorCount)
	}
	if update.ClearLastError {
		setClauses = append(setClauses, "last_error = ?")
		args = append(args, nil)
	} else if update.LastError != nil {
		setClauses = append(setClauses, "last_error = ?")
		args = append(args, *update.LastError)
	}
	if update.ExtractedAt != nil {
		setClauses = append(setClauses, "extracted_at = ?")
		args = append(args, formatTime(update.ExtractedAt))
	}

	args = append(args, pageID.String())

	query := fmt.Sprintf("UPDATE pages SET %s WHERE page_id = ?",
		strings.Join(setClauses, ", "))

	result, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update page: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrPageNotFound
	}

	return nil
}

// DeletePage deletes a page and its error history.
func (s *PageStore) DeletePage(pageID uuid.UUID) error {
	result, err := s.db.Exec("DELETE FROM pages WHERE page_id = ?", pageID.String())
	if err != nil {
		return fmt.Errorf("failed to delete page: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrPageNotFound
	}

	if _, err := s.db.Exec("DELETE FROM page_errors WHERE page_id = ?", pageID.String()); err != nil {
		return fmt.Errorf("failed to delete page errors: %w", err)
	}

	return nil
}

// CountByStatus returns the number of pages in each status. Statuses with no
// pages are present with a zero count.
func (s *PageStore) CountByStatus() (map[string]int, error) {
	counts := map[string]int{
		StatusPending:   0,
		StatusExtracted: 0,
		StatusFailed:    0,
		StatusNotRecipe: 0,
	}

	rows, err := s.db.Query("SELECT status, COUNT(*) FROM pages GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count pages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate counts: %w", err)
	}

	return counts, nil
}

// RecordError appends an entry to a page's error history.
func (s *PageStore) RecordError(pageID uuid.UUID, message string, at time.Time) error {
	_, err := s.db.Exec(
		"INSERT INTO page_errors (page_id, error, occurred_at) VALUES (?, ?, ?)",
		pageID.String(), message, formatTime(&at),
	)
	if err != nil {
		return fmt.Errorf("failed to record page error: %w", err)
	}
	return nil
}

// ListErrors returns up to limit of a page's errors, most recent first.
func (s *PageStore) ListErrors(pageID uuid.UUID, limit int) ([]PageError, error) {
	rows, err := s.db.Query(
		"SELECT page_id, error, occurred_at FROM page_errors WHERE page_id = ? ORDER BY occurred_at DESC LIMIT ?",
		pageID.String(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query page errors: %w", err)
	}
	defer rows.Close()

	var out []PageError
	for rows.Next() {
		var idStr, message, occurredAt string
		if err := rows.Scan(&idStr, &message, &occurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan page error: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse page ID: %w", err)
		}
		out = append(out, PageError{PageID: id, Error: message, OccurredAt: parseTime(occurredAt)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate page errors: %w", err)
	}

	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanPage parses one row selected with selectPage.
func scanPage(row rowScanner) (*Page, error) {
	var pageIDStr, siteID, url, status, createdAtStr, updatedAtStr string
	var htmlPath, recipeIDStr, lastError, extractedAtStr sql.NullString
	var errorCount int

	if err := row.Scan(
		&pageIDStr, &siteID, &url, &htmlPath, &status, &recipeIDStr,
		&errorCount, &lastError, &createdAtStr, &updatedAtStr, &extractedAtStr,
	); err != nil {
		return nil, err
	}

	pageID, err := uuid.Parse(pageIDStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page ID: %w", err)
	}

	page := &Page{
		PageID:     pageID,
		SiteID:     siteID,
		URL:        url,
		Status:     status,
		ErrorCount: errorCount,
		CreatedAt:  parseTime(createdAtStr),
		UpdatedAt:  parseTime(updatedAtStr),
	}

	if htmlPath.Valid {
		page.HTMLPath = &htmlPath.String
	}
	if lastError.Valid {
		page.LastError = &lastError.String
	}
	if recipeIDStr.Valid {
		id, err := uuid.Parse(recipeIDStr.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse recipe ID: %w", err)
		}
		page.RecipeID = &id
	}
	if extractedAtStr.Valid {
		t := parseTime(extractedAtStr.String)
		page.ExtractedAt = &t
	}

	return page, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint") ||
		strings.Contains(err.Error(), "unique constraint")
}

// timeLayout keeps a fixed-width fraction so stored timestamps sort
// lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Helper functions for time formatting
func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	// Strip monotonic clock for consistent storage and comparisons
	return t.Truncate(0).UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t.Truncate(0)
}
