// Package scraper holds the per-site extraction configuration: which CSS
// selectors find each recipe field and which language the site writes its
// ingredient lines in.
package scraper

import (
	"errors"
	"fmt"
	"regexp"
)

// DefaultMaxImages caps the image URLs kept per recipe.
const DefaultMaxImages = 3

// ErrInvalidSite is returned for site configurations missing required
// fields.
var ErrInvalidSite = errors.New("invalid site config")

var siteIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// SiteConfig defines how to extract recipes from a specific website.
type SiteConfig struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Domain string `yaml:"domain" json:"domain"`

	// Locale selects the unit lexicon used on ingredient lines. Empty
	// means English.
	Locale string `yaml:"locale,omitempty" json:"locale,omitempty"`

	// FeedURL is an RSS or Atom feed listing new recipe pages.
	FeedURL string `yaml:"feed_url,omitempty" json:"feed_url,omitempty"`

	Selectors Selectors `yaml:"selectors" json:"selectors"`

	// TagStopwords are dropped from extracted tags (case-insensitive).
	TagStopwords []string `yaml:"tag_stopwords,omitempty" json:"tag_stopwords,omitempty"`

	MaxImages int `yaml:"max_images,omitempty" json:"max_images,omitempty"`
}

// Selectors are CSS selectors for each recipe field. Empty selectors fall
// back to JSON-LD and meta tags only.
type Selectors struct {
	DishName    string `yaml:"dish_name,omitempty" json:"dish_name,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Ingredients selects one element per ingredient line. When
	// IngredientName is set, name, amount and unit are read from those
	// child elements instead of parsing the whole line.
	Ingredients      string `yaml:"ingredients,omitempty" json:"ingredients,omitempty"`
	IngredientName   string `yaml:"ingredient_name,omitempty" json:"ingredient_name,omitempty"`
	IngredientAmount string `yaml:"ingredient_amount,omitempty" json:"ingredient_amount,omitempty"`
	IngredientUnit   string `yaml:"ingredient_unit,omitempty" json:"ingredient_unit,omitempty"`

	// Instructions selects one element per step.
	Instructions string `yaml:"instructions,omitempty" json:"instructions,omitempty"`

	Category  string `yaml:"category,omitempty" json:"category,omitempty"`
	Notes     string `yaml:"notes,omitempty" json:"notes,omitempty"`
	Tags      string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Images    string `yaml:"images,omitempty" json:"images,omitempty"`
	PrepTime  string `yaml:"prep_time,omitempty" json:"prep_time,omitempty"`
	CookTime  string `yaml:"cook_time,omitempty" json:"cook_time,omitempty"`
	TotalTime string `yaml:"total_time,omitempty" json:"total_time,omitempty"`
}

// Generic returns the configuration used for sites with no entry in the
// registry: JSON-LD and meta tags only.
func Generic() SiteConfig {
	return SiteConfig{
		ID:        "generic",
		Name:      "Generic",
		MaxImages: DefaultMaxImages,
	}
}

// Validate checks required fields and fills defaults.
func (c *SiteConfig) Validate() error {
	if !siteIDPattern.MatchString(c.ID) {
		return fmt.Errorf("%w: id %q must be lowercase letters, digits, '_' or '-'", ErrInvalidSite, c.ID)
	}
	if c.Domain == "" {
		return fmt.Errorf("%w: site %s has no domain", ErrInvalidSite, c.ID)
	}
	if c.Name == "" {
		c.Name = c.Domain
	}
	if c.MaxImages <= 0 {
		c.MaxImages = DefaultMaxImages
	}
	return nil
}
