package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/pevans/recipefed/extractor"
	"github.com/pevans/recipefed/recipe"
	"github.com/pevans/recipefed/scraper"
)

func handleExtract(a *app, args []string) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	siteID := fs.String("site", "", "Site ID (default: detected from the URL)")
	pageURL := fs.String("url", "", "Page URL of a saved HTML file, used to resolve images")
	save := fs.Bool("save", false, "Save the recipe to the recipe store")
	format := fs.String("format", "text", "Output format: text, json")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: a URL or HTML file is required\n")
		fmt.Fprintf(os.Stderr, "Usage: recipefed extract [flags] <url-or-file>\n")
		os.Exit(1)
	}
	source := fs.Arg(0)
	isURL := strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
	if isURL && *pageURL == "" {
		*pageURL = source
	}

	site := resolveSite(a.siteRegistry(), *siteID, *pageURL)

	var (
		r   *recipe.Recipe
		err error
	)
	if isURL {
		ctx := context.Background()
		doc, fetchErr := a.fetcher(ctx).FetchDocument(ctx, source)
		if fetchErr != nil {
			fail("%v", fetchErr)
		}
		r, err = extractor.Extract(doc, site, *pageURL)
	} else {
		f, openErr := os.Open(source)
		if openErr != nil {
			fail("failed to open %s: %v", source, openErr)
		}
		r, err = extractor.ExtractHTML(f, site, *pageURL)
		f.Close()
	}
	if err != nil {
		fail("%v", err)
	}

	if *save {
		if err := a.recipeStore().Add(*r); err != nil {
			fail("failed to save recipe: %v", err)
		}
	}

	switch *format {
	case "json":
		printJSON(r)
	case "text":
		printRecipe(r)
		if *save {
			fmt.Printf("\n✓ Saved recipe: %s\n", r.ID.String())
		}
	default:
		fail("unknown format: %s", *format)
	}
}

// resolveSite picks the site by ID, then by URL, then the generic config.
func resolveSite(registry *scraper.Registry, siteID, pageURL string) scraper.SiteConfig {
	if siteID != "" {
		site, ok := registry.Get(siteID)
		if !ok {
			if hint := registry.Suggest(siteID); hint != "" {
				fail("unknown site: %s (did you mean %s?)", siteID, hint)
			}
			fail("unknown site: %s", siteID)
		}
		return *site
	}
	if site, ok := registry.ForURL(pageURL); ok {
		return *site
	}
	return scraper.Generic()
}
