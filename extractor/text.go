// Package extractor fetches recipe pages and pulls recipe fields out of
// their HTML using JSON-LD, per-site CSS selectors and meta tags.
package extractor

import (
	"html"
	"strings"
)

// invisible characters some sites sprinkle through ingredient lists.
var invisible = strings.NewReplacer(
	"\u00ad", "",
	"\u200b", "",
	"\u200c", "",
	"\u200d", "",
	"\u2060", "",
	"\ufeff", "",
)

const checkboxGlyphs = "▢□✓✔▪▫●○■"

// CleanText trims s, collapses runs of whitespace to one space, decodes HTML
// entities left in the text and drops soft hyphens, zero-width characters
// and checkbox glyphs.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(s)
	s = invisible.Replace(s)
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(checkboxGlyphs, r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// firstNonEmpty returns the first value that is not blank.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
