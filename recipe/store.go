package recipe

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
)

// ErrRecipeNotFound is returned by Update and Delete when no file exists for
// the recipe ID.
var ErrRecipeNotFound = errors.New("recipe not found")

// Store keeps one JSON file per recipe in a directory.
type Store struct {
	storageDir string
}

// ReadError describes a failure to read a single recipe file.
type ReadError struct {
	Filename string
	Err      error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

// ListResult contains the results of listing recipes, including any per-file
// errors that occurred during the operation.
type ListResult struct {
	Recipes []Recipe
	Errors  []ReadError
}

// NewStore creates a recipe store in the specified directory.
func NewStore(storageDir string) (*Store, error) {
	// 0700: owner-only access
	if err := os.MkdirAll(storageDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &Store{
		storageDir: storageDir,
	}, nil
}

func (s *Store) path(id uuid.UUID) string {
	return filepath.Join(s.storageDir, id.String()+".json")
}

// Add saves a recipe to the store, replacing any file with the same ID.
func (s *Store) Add(r Recipe) error {
	if r.ID == uuid.Nil {
		return fmt.Errorf("recipe has no ID")
	}
	return s.write(r)
}

func (s *Store) write(r Recipe) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal recipe: %w", err)
	}

	// 0600: owner-only read/write
	if err := os.WriteFile(s.path(r.ID), data, 0o600); err != nil {
		return fmt.Errorf("failed to write recipe: %w", err)
	}

	return nil
}

// List returns every recipe in the store, oldest extraction first. Corrupted
// files are collected in the result's Errors slice rather than failing the
// whole operation.
func (s *Store) List() (*ListResult, error) {
	entries, err := os.ReadDir(s.storageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	result := &ListResult{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.storageDir, entry.Name()))
		if err != nil {
			result.Errors = append(result.Errors, ReadError{Filename: entry.Name(), Err: err})
			continue
		}

		var r Recipe
		if err := json.Unmarshal(data, &r); err != nil {
			result.Errors = append(result.Errors, ReadError{Filename: entry.Name(), Err: err})
			continue
		}

		result.Recipes = append(result.Recipes, r)
	}

	sort.SliceStable(result.Recipes, func(i, j int) bool {
		return result.Recipes[i].ExtractedAt.Before(result.Recipes[j].ExtractedAt)
	})

	return result, nil
}

// Get retrieves a recipe by its ID. It returns nil, nil when the recipe does
// not exist.
func (s *Store) Get(id uuid.UUID) (*Recipe, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read recipe: %w", err)
	}

	var r Recipe
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipe: %w", err)
	}

	return &r, nil
}

// FindByURL returns the first recipe extracted from url, or nil when there is
// none.
func (s *Store) FindByURL(url string) (*Recipe, error) {
	result, err := s.List()
	if err != nil {
		return nil, err
	}

	for i := range result.Recipes {
		if result.Recipes[i].URL == url {
			return &result.Recipes[i], nil
		}
	}

	return nil, nil
}

// Update overwrites an existing recipe.
func (s *Store) Update(r Recipe) error {
	if _, err := os.Stat(s.path(r.ID)); os.IsNotExist(err) {
		return ErrRecipeNotFound
	}
	return s.write(r)
}

// Delete removes a recipe by its ID.
func (s *Store) Delete(id uuid.UUID) error {
	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrRecipeNotFound
		}
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	return nil
}
