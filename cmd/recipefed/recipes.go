package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/recipefed/recipe"
)

func handleRecipesCommand(a *app, args []string) {
	if len(args) < 1 {
		printRecipesUsage()
		os.Exit(1)
	}

	action, rest := args[0], args[1:]
	switch action {
	case "list":
		handleRecipesList(a, rest)
	case "show":
		handleRecipesShow(a, rest)
	case "delete":
		handleRecipesDelete(a, rest)
	case "help", "--help", "-h":
		printRecipesUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown recipes command: %s\n\n", action)
		printRecipesUsage()
		os.Exit(1)
	}
}

func printRecipesUsage() {
	fmt.Println("recipefed recipes - Manage extracted recipes")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  recipefed recipes <action> [arguments]")
	fmt.Println()
	fmt.Println("Actions:")
	fmt.Println("  list       List recipes, newest first")
	fmt.Println("  show       Show a recipe")
	fmt.Println("  delete     Delete a recipe")
	fmt.Println("  help       Show this help message")
}

func handleRecipesList(a *app, args []string) {
	fs := flag.NewFlagSet("recipes list", flag.ExitOnError)
	siteID := fs.String("site", "", "Filter by site ID")
	search := fs.String("search", "", "Filter by dish name or ingredient")
	since := fs.String("since", "", "Show recipes extracted since duration (e.g., 24h, 7d)")
	limit := fs.Int("limit", 20, "Maximum number of recipes to display")
	offset := fs.Int("offset", 0, "Number of recipes to skip")
	format := fs.String("format", "table", "Output format: table, json")
	fs.Parse(args)

	result, err := a.recipeStore().List()
	if err != nil {
		fail("failed to list recipes: %v", err)
	}

	// Report any partial failures after displaying results
	defer func() {
		if len(result.Errors) > 0 {
			fmt.Fprintf(os.Stderr, "\nWarning: %d recipe(s) could not be read:\n", len(result.Errors))
			for _, readErr := range result.Errors {
				fmt.Fprintf(os.Stderr, "  %s\n", readErr.Error())
			}
		}
	}()

	var cutoff time.Time
	if *since != "" {
		d, err := parseDuration(*since)
		if err != nil {
			fail("invalid duration format: %v", err)
		}
		cutoff = time.Now().Add(-d)
	}

	var filtered []recipe.Recipe
	for _, r := range result.Recipes {
		if *siteID != "" && r.SiteID != *siteID {
			continue
		}
		if !cutoff.IsZero() && r.ExtractedAt.Before(cutoff) {
			continue
		}
		if *search != "" && !matchesSearch(r, *search) {
			continue
		}
		filtered = append(filtered, r)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].ExtractedAt.After(filtered[j].ExtractedAt)
	})

	total := len(filtered)
	start := min(max(*offset, 0), total)
	end := total
	if *limit > 0 {
		end = min(start+*limit, total)
	}
	page := filtered[start:end]

	switch *format {
	case "json":
		printJSON(map[string]any{"recipes": page, "total": total})
	case "table":
		if total > 0 && len(page) > 0 {
			fmt.Printf("Showing %d-%d of %d recipes\n\n", start+1, end, total)
		}
		printRecipesTable(page)
	default:
		fail("unknown format: %s", *format)
	}
}

// matchesSearch reports whether the dish name or an ingredient name contains
// term, ignoring case.
func matchesSearch(r recipe.Recipe, term string) bool {
	term = strings.ToLower(term)
	if strings.Contains(strings.ToLower(r.DishName), term) {
		return true
	}
	for _, ing := range r.Ingredients {
		if strings.Contains(strings.ToLower(ing.Name), term) {
			return true
		}
	}
	return false
}

func parseRecipeID(args []string, usage string) uuid.UUID {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Error: recipe ID is required\n")
		fmt.Fprintf(os.Stderr, "Usage: %s\n", usage)
		os.Exit(1)
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		fail("invalid recipe ID: %v", err)
	}
	return id
}

func handleRecipesShow(a *app, args []string) {
	fs := flag.NewFlagSet("recipes show", flag.ExitOnError)
	format := fs.String("format", "text", "Output format: text, json")
	fs.Parse(args)

	id := parseRecipeID(fs.Args(), "recipefed recipes show [--format json] <recipe-id>")

	r, err := a.recipeStore().Get(id)
	if err != nil {
		fail("failed to get recipe: %v", err)
	}
	if r == nil {
		fail("recipe not found: %s", id.String())
	}

	if *format == "json" {
		printJSON(r)
		return
	}
	printRecipe(r)
}

func handleRecipesDelete(a *app, args []string) {
	id := parseRecipeID(args, "recipefed recipes delete <recipe-id>")

	if err := a.recipeStore().Delete(id); err != nil {
		fail("failed to delete recipe: %v", err)
	}

	fmt.Printf("✓ Deleted recipe: %s\n", id.String())
}
