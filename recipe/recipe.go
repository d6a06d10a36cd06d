// Package recipe defines the extracted recipe record and a directory-backed
// store for it.
package recipe

import (
	"time"

	"github.com/google/uuid"
	"github.com/pevans/recipefed/ingredient"
)

// Recipe is a single extracted recipe. Text fields are empty when the page
// did not provide them.
type Recipe struct {
	ID     uuid.UUID `json:"recipe_id"`
	SiteID string    `json:"site_id"`
	URL    string    `json:"url"`

	DishName      string                  `json:"dish_name"`
	Description   string                  `json:"description,omitempty"`
	Ingredients   []ingredient.Ingredient `json:"ingredients"`
	Instructions  string                  `json:"instructions,omitempty"`
	NutritionInfo string                  `json:"nutrition_info,omitempty"`
	Category      string                  `json:"category,omitempty"`
	PrepTime      string                  `json:"prep_time,omitempty"`
	CookTime      string                  `json:"cook_time,omitempty"`
	TotalTime     string                  `json:"total_time,omitempty"`
	Notes         string                  `json:"notes,omitempty"`
	Tags          []string                `json:"tags,omitempty"`
	ImageURLs     []string                `json:"image_urls,omitempty"`

	ExtractedAt time.Time `json:"extracted_at"`
}

// New creates a recipe with a fresh ID for the given page.
func New(siteID, url string) *Recipe {
	return &Recipe{
		ID:          uuid.New(),
		SiteID:      siteID,
		URL:         url,
		Ingredients: []ingredient.Ingredient{},
		ExtractedAt: time.Now().UTC(),
	}
}
