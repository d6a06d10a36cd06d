package extractor

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/recipefed/ingredient"
	"github.com/pevans/recipefed/locale"
	"github.com/pevans/recipefed/recipe"
	"github.com/pevans/recipefed/scraper"
)

// ErrNotRecipe is returned for pages with neither a dish name nor any
// ingredients.
var ErrNotRecipe = errors.New("page does not contain a recipe")

// minTagLength drops tags shorter than this many characters.
const minTagLength = 3

var (
	numberedStep = regexp.MustCompile(`^\d+[.)]\s`)
	leadingNum   = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
)

// ExtractHTML parses r as HTML and extracts a recipe from it.
func ExtractHTML(r io.Reader, site scraper.SiteConfig, pageURL string) (*recipe.Recipe, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return Extract(doc, site, pageURL)
}

// Extract pulls a recipe out of doc. Each field is taken from the page's
// JSON-LD Recipe node when present, then from the site's selectors, then
// from meta tags. Ingredient lines are translated with the site's locale
// and normalized.
func Extract(doc *goquery.Document, site scraper.SiteConfig, pageURL string) (*recipe.Recipe, error) {
	ld := findRecipeLD(doc)
	sel := site.Selectors
	lx := locale.Lookup(site.Locale)

	r := recipe.New(site.ID, pageURL)

	// og:title is a fallback for the name only; on its own it does not make
	// a page a recipe.
	dishName := firstNonEmpty(ld.text("name"), selectText(doc, sel.DishName))
	r.DishName = firstNonEmpty(dishName, metaContent(doc, "og:title"))

	r.Description = firstNonEmpty(
		ld.text("description"),
		selectText(doc, sel.Description),
		metaContent(doc, "description"),
		metaContent(doc, "og:description"),
	)

	r.Ingredients = ingredient.NormalizeList(extractIngredients(doc, ld, sel, lx))

	if dishName == "" && len(r.Ingredients) == 0 {
		return nil, ErrNotRecipe
	}

	steps := ld.steps()
	if len(steps) == 0 {
		steps = selectAll(doc, sel.Instructions)
	}
	r.Instructions = numberSteps(steps)

	r.Category = firstNonEmpty(
		strings.Join(ld.list("recipeCategory", false), ", "),
		selectText(doc, sel.Category),
		metaContent(doc, "article:section"),
	)

	r.PrepTime = firstNonEmpty(formatDuration(ld.text("prepTime")), selectText(doc, sel.PrepTime))
	r.CookTime = firstNonEmpty(formatDuration(ld.text("cookTime")), selectText(doc, sel.CookTime))
	r.TotalTime = firstNonEmpty(formatDuration(ld.text("totalTime")), selectText(doc, sel.TotalTime))
	if r.TotalTime == "" {
		prep, okPrep := ParseISODuration(ld.text("prepTime"))
		cook, okCook := ParseISODuration(ld.text("cookTime"))
		if okPrep && okCook {
			r.TotalTime = FormatMinutes(prep + cook)
		}
	}

	r.Notes = strings.Join(selectAll(doc, sel.Notes), " ")
	r.NutritionInfo = nutrition(ld.object("nutrition"))

	var tags []string
	tags = append(tags, ld.list("keywords", true)...)
	tags = append(tags, ld.list("recipeCuisine", true)...)
	for _, t := range selectAll(doc, sel.Tags) {
		tags = append(tags, strings.Split(t, ",")...)
	}
	if len(tags) == 0 {
		tags = strings.Split(metaContent(doc, "keywords"), ",")
	}
	r.Tags = filterTags(tags, site.TagStopwords)

	var images []string
	images = append(images, ld.images()...)
	images = append(images, selectImages(doc, sel.Images)...)
	images = append(images, metaContent(doc, "og:image"), metaContent(doc, "twitter:image"))
	r.ImageURLs = absoluteURLs(images, pageURL, site.MaxImages)

	return r, nil
}

// extractIngredients collects raw ingredient records from JSON-LD lines,
// then from the site's ingredient selectors.
func extractIngredients(doc *goquery.Document, ld jsonLD, sel scraper.Selectors, lx *locale.Lexicon) []*ingredient.Raw {
	var raws []*ingredient.Raw

	if lines := ld.list("recipeIngredient", false); len(lines) > 0 {
		for _, line := range lines {
			if isSectionHeader(line) {
				continue
			}
			raw := lx.Prepare(line)
			raws = append(raws, &raw)
		}
		return raws
	}

	if sel.Ingredients == "" {
		return nil
	}

	doc.Find(sel.Ingredients).Each(func(_ int, s *goquery.Selection) {
		if sel.IngredientName == "" {
			line := CleanText(s.Text())
			if line == "" || isSectionHeader(line) {
				return
			}
			raw := lx.Prepare(line)
			raws = append(raws, &raw)
			return
		}

		name := childText(s, sel.IngredientName)
		amount := childText(s, sel.IngredientAmount)
		if name == "" || isSectionHeader(name) {
			return
		}

		var raw ingredient.Raw
		if sel.IngredientUnit == "" {
			// The amount cell carries the unit too, as in "2 EL".
			raw = lx.Prepare(strings.TrimSpace(amount + " " + name))
		} else {
			raw = ingredient.Raw{
				Name:   name,
				Amount: locale.CleanQuantityText(amount),
				Unit:   lx.TranslateUnit(childText(s, sel.IngredientUnit)),
			}
		}
		raws = append(raws, &raw)
	})
	return raws
}

func isSectionHeader(line string) bool {
	return strings.HasSuffix(strings.TrimSpace(line), ":")
}

// numberSteps joins steps into "1. First. 2. Second." form. Steps the site
// already numbered are kept as they are.
func numberSteps(steps []string) string {
	parts := make([]string, 0, len(steps))
	for i, step := range steps {
		if numberedStep.MatchString(step) {
			parts = append(parts, step)
			continue
		}
		parts = append(parts, fmt.Sprintf("%d. %s", i+1, step))
	}
	return strings.Join(parts, " ")
}

// nutrition renders calories with protein, fat and carbohydrates as
// "202 kcal; 2/11/27", or calories alone when the macros are missing.
func nutrition(n jsonLD) string {
	calories := leadingNumber(n.text("calories"))
	if calories == "" {
		return ""
	}
	out := calories + " kcal"

	protein := leadingNumber(n.text("proteinContent"))
	fat := leadingNumber(n.text("fatContent"))
	carbs := leadingNumber(n.text("carbohydrateContent"))
	if protein != "" && fat != "" && carbs != "" {
		out += fmt.Sprintf("; %s/%s/%s", protein, fat, carbs)
	}
	return out
}

func leadingNumber(s string) string {
	m := leadingNum.FindString(s)
	if m == "" {
		return ""
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
	if err != nil {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// filterTags lowercases tags and drops short ones, stopwords and
// duplicates. Order is preserved.
func filterTags(tags, stopwords []string) []string {
	stop := make(map[string]bool, len(stopwords))
	for _, w := range stopwords {
		stop[strings.ToLower(strings.TrimSpace(w))] = true
	}

	seen := make(map[string]bool)
	var out []string
	for _, tag := range tags {
		tag = strings.ToLower(CleanText(tag))
		if utf8.RuneCountInString(tag) < minTagLength || stop[tag] || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// absoluteURLs resolves image URLs against the page, dropping duplicates
// and anything that is not http(s), and keeps at most limit.
func absoluteURLs(raw []string, pageURL string, limit int) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = &url.URL{}
	}

	seen := make(map[string]bool)
	var out []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" || strings.HasPrefix(s, "data:") {
			continue
		}
		ref, err := url.Parse(s)
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			continue
		}
		u := abs.String()
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func selectText(doc *goquery.Document, selector string) string {
	if selector == "" {
		return ""
	}
	return CleanText(doc.Find(selector).First().Text())
}

func selectAll(doc *goquery.Document, selector string) []string {
	if selector == "" {
		return nil
	}
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if text := CleanText(s.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}

func selectImages(doc *goquery.Document, selector string) []string {
	if selector == "" {
		return nil
	}
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
			if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
				out = append(out, v)
				return
			}
		}
	})
	return out
}

func childText(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return CleanText(s.Find(selector).First().Text())
}

// metaContent reads a meta tag by property or name.
func metaContent(doc *goquery.Document, key string) string {
	for _, attr := range []string{"property", "name"} {
		if v, ok := doc.Find(fmt.Sprintf(`meta[%s=%q]`, attr, key)).First().Attr("content"); ok {
			if v = CleanText(v); v != "" {
				return v
			}
		}
	}
	return ""
}
