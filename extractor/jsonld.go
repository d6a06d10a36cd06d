package extractor

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// jsonLD is a decoded schema.org node.
type jsonLD map[string]any

// findRecipeLD returns the first Recipe node in the page's JSON-LD scripts,
// or nil. Scripts that fail to decode are skipped.
func findRecipeLD(doc *goquery.Document) jsonLD {
	var found jsonLD
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var v any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &v); err != nil {
			return true
		}
		found = findRecipe(v)
		return found == nil
	})
	return found
}

func findRecipe(v any) jsonLD {
	switch node := v.(type) {
	case map[string]any:
		if isRecipeType(node["@type"]) {
			return node
		}
		if graph, ok := node["@graph"]; ok {
			if r := findRecipe(graph); r != nil {
				return r
			}
		}
		// Some sites wrap the recipe in a WebPage's mainEntity.
		if main, ok := node["mainEntity"]; ok {
			return findRecipe(main)
		}
	case []any:
		for _, item := range node {
			if r := findRecipe(item); r != nil {
				return r
			}
		}
	}
	return nil
}

func isRecipeType(t any) bool {
	switch v := t.(type) {
	case string:
		v = strings.TrimPrefix(v, "http://schema.org/")
		v = strings.TrimPrefix(v, "https://schema.org/")
		v = strings.TrimPrefix(v, "schema:")
		return strings.EqualFold(v, "Recipe")
	case []any:
		for _, item := range v {
			if isRecipeType(item) {
				return true
			}
		}
	}
	return false
}

// text returns a field as cleaned text. Objects yield their text, name or
// @value; lists yield their first non-empty element.
func (ld jsonLD) text(key string) string {
	if ld == nil {
		return ""
	}
	return ldText(ld[key])
}

func ldText(v any) string {
	switch t := v.(type) {
	case string:
		return CleanText(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any:
		for _, k := range []string{"text", "name", "@value"} {
			if s := ldText(t[k]); s != "" {
				return s
			}
		}
	case []any:
		for _, item := range t {
			if s := ldText(item); s != "" {
				return s
			}
		}
	}
	return ""
}

// list returns a field as a list of cleaned, non-empty strings. A plain
// string is split on commas when split is set.
func (ld jsonLD) list(key string, split bool) []string {
	if ld == nil {
		return nil
	}
	var out []string
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			parts := []string{t}
			if split {
				parts = strings.Split(t, ",")
			}
			for _, p := range parts {
				if s := CleanText(p); s != "" {
					out = append(out, s)
				}
			}
		case []any:
			for _, item := range t {
				walk(item)
			}
		case map[string]any:
			if s := ldText(t); s != "" {
				out = append(out, s)
			}
		}
	}
	walk(ld[key])
	return out
}

// images returns the image URLs of the image field, which may be a URL, an
// ImageObject or a list of either.
func (ld jsonLD) images() []string {
	if ld == nil {
		return nil
	}
	var out []string
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				out = append(out, s)
			}
		case []any:
			for _, item := range t {
				walk(item)
			}
		case map[string]any:
			if u, ok := t["url"]; ok {
				walk(u)
			} else if u, ok := t["contentUrl"]; ok {
				walk(u)
			}
		}
	}
	walk(ld["image"])
	return out
}

// steps flattens recipeInstructions: plain text split on newlines,
// HowToStep objects and HowToSection lists.
func (ld jsonLD) steps() []string {
	if ld == nil {
		return nil
	}
	var out []string
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			for _, line := range strings.Split(t, "\n") {
				if s := CleanText(line); s != "" {
					out = append(out, s)
				}
			}
		case []any:
			for _, item := range t {
				walk(item)
			}
		case map[string]any:
			if items, ok := t["itemListElement"]; ok {
				walk(items)
				return
			}
			if s := ldText(t["text"]); s != "" {
				out = append(out, s)
			} else if s := ldText(t["name"]); s != "" {
				out = append(out, s)
			}
		}
	}
	walk(ld["recipeInstructions"])
	return out
}

// object returns a nested object field.
func (ld jsonLD) object(key string) jsonLD {
	if ld == nil {
		return nil
	}
	if m, ok := ld[key].(map[string]any); ok {
		return m
	}
	return nil
}
