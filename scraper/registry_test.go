package scraper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/andybalholm/cascadia"
	"github.com/pevans/recipefed/locale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultRegistry verifies the built-in sites load and validate
func TestDefaultRegistry(t *testing.T) {
	r, err := DefaultRegistry()
	require.NoError(t, err)

	sites := r.Sites()
	require.NotEmpty(t, sites)
	for i, site := range sites {
		if i > 0 {
			assert.Less(t, sites[i-1].ID, site.ID, "sites should be ordered by ID")
		}
		assert.NotEmpty(t, site.Domain, site.ID)
		assert.Equal(t, DefaultMaxImages, site.MaxImages, site.ID)
		if site.Locale != "" {
			assert.NotNil(t, locale.Lookup(site.Locale), "%s uses unknown locale %q", site.ID, site.Locale)
		}
	}
}

// TestDefaultRegistry_SelectorsCompile verifies every built-in selector is
// valid CSS
func TestDefaultRegistry_SelectorsCompile(t *testing.T) {
	r, err := DefaultRegistry()
	require.NoError(t, err)

	for _, site := range r.Sites() {
		s := site.Selectors
		for _, sel := range []string{
			s.DishName, s.Description, s.Ingredients, s.IngredientName,
			s.IngredientAmount, s.IngredientUnit, s.Instructions, s.Category,
			s.Notes, s.Tags, s.Images, s.PrepTime, s.CookTime, s.TotalTime,
		} {
			if sel == "" {
				continue
			}
			_, err := cascadia.Compile(sel)
			assert.NoError(t, err, "%s: %q", site.ID, sel)
		}
	}
}

// TestForURL verifies lookups by host, including www and subdomains
func TestForURL(t *testing.T) {
	r, err := DefaultRegistry()
	require.NoError(t, err)

	tests := map[string]string{
		"https://www.allrecipes.com/recipe/123/bread/": "allrecipes_com",
		"https://allrecipes.com/recipe/123/":           "allrecipes_com",
		"https://M.Chefkoch.DE/rezepte/1":              "chefkoch_de",
		"https://blog.giallozafferano.it/x/":           "blog_giallozafferano_it",
	}
	for u, want := range tests {
		site, ok := r.ForURL(u)
		require.True(t, ok, u)
		assert.Equal(t, want, site.ID, u)
	}

	_, ok := r.ForURL("https://unknown.example/recipe")
	assert.False(t, ok)
	_, ok = r.ForURL("not a url")
	assert.False(t, ok)
}

// TestAdd_Validation verifies required fields are enforced
func TestAdd_Validation(t *testing.T) {
	r := NewRegistry()

	assert.ErrorIs(t, r.Add(SiteConfig{ID: "", Domain: "example.com"}), ErrInvalidSite)
	assert.ErrorIs(t, r.Add(SiteConfig{ID: "Bad ID", Domain: "example.com"}), ErrInvalidSite)
	assert.ErrorIs(t, r.Add(SiteConfig{ID: "example"}), ErrInvalidSite)

	require.NoError(t, r.Add(SiteConfig{ID: "example", Domain: "example.com"}))
	site, ok := r.Get("example")
	require.True(t, ok)
	assert.Equal(t, "example.com", site.Name, "name should default to the domain")
}

// TestAdd_ReplacesDomain verifies replacing a site drops its old domain
func TestAdd_ReplacesDomain(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(SiteConfig{ID: "example", Domain: "old.example"}))
	require.NoError(t, r.Add(SiteConfig{ID: "example", Domain: "new.example"}))

	_, ok := r.ForURL("https://old.example/a")
	assert.False(t, ok)
	site, ok := r.ForURL("https://new.example/a")
	require.True(t, ok)
	assert.Equal(t, "example", site.ID)
	assert.Len(t, r.Sites(), 1)
}

// TestLoadRegistry_Overlay verifies a sites file adds and replaces sites
func TestLoadRegistry_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.yaml")
	content := `
sites:
  - id: chefkoch_de
    domain: chefkoch.de
    locale: de
    selectors:
      dish_name: h1.custom
  - id: myblog
    name: My Blog
    domain: myblog.example
    selectors:
      ingredients: li.ingredient
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	r, err := LoadRegistry(path)
	require.NoError(t, err)

	site, ok := r.Get("chefkoch_de")
	require.True(t, ok)
	assert.Equal(t, "h1.custom", site.Selectors.DishName)

	site, ok = r.ForURL("https://myblog.example/post")
	require.True(t, ok)
	assert.Equal(t, "My Blog", site.Name)

	_, ok = r.Get("allrecipes_com")
	assert.True(t, ok, "built-in sites should remain")
}

// TestLoadRegistry_MissingFile verifies a missing file falls back to the
// built-in sites
func TestLoadRegistry_MissingFile(t *testing.T) {
	r, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, r.Sites())
}

// TestLoadRegistry_Invalid verifies malformed files are rejected
func TestLoadRegistry_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sites: [{id: x"), 0o600))

	_, err := LoadRegistry(path)
	assert.Error(t, err)
}

// TestGeneric verifies the fallback site has defaults
func TestGeneric(t *testing.T) {
	g := Generic()
	assert.Equal(t, "generic", g.ID)
	assert.Equal(t, DefaultMaxImages, g.MaxImages)
	assert.Empty(t, g.Selectors.Ingredients)
}

// TestSuggest verifies close site IDs are offered for typos
func TestSuggest(t *testing.T) {
	r, err := DefaultRegistry()
	require.NoError(t, err)

	assert.Equal(t, "chefkoch_de", r.Suggest("chefkoch"))
	assert.Equal(t, "chefkoch_de", r.Suggest("Chefkoch_DE"))
	assert.Empty(t, r.Suggest("zzz"))
	assert.Empty(t, r.Suggest(""))
}
