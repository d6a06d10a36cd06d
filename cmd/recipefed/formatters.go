package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/pevans/recipefed/harvest"
	"github.com/pevans/recipefed/ingredient"
	"github.com/pevans/recipefed/pages"
	"github.com/pevans/recipefed/recipe"
)

// printJSON prints v as indented JSON.
func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fail("failed to marshal JSON: %v", err)
	}
	fmt.Println(string(data))
}

// printTable prints rows under a header, padding cells by display width so
// CJK and accented text lines up. Cells wider than maxWidth are truncated.
func printTable(header []string, rows [][]string, maxWidth int) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}

	cells := make([][]string, len(rows))
	for r, row := range rows {
		cells[r] = make([]string, len(header))
		for i := range header {
			if i >= len(row) {
				continue
			}
			cell := runewidth.Truncate(row[i], maxWidth, "...")
			cells[r][i] = cell
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	printRow := func(row []string) {
		var sb strings.Builder
		for i, cell := range row {
			if i == len(row)-1 {
				sb.WriteString(cell)
				break
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
			sb.WriteString("  ")
		}
		fmt.Println(strings.TrimRight(sb.String(), " "))
	}

	printRow(header)
	total := 0
	for _, w := range widths {
		total += w + 2
	}
	fmt.Println(strings.Repeat("-", max(total-2, 0)))
	for _, row := range cells {
		printRow(row)
	}
}

func formatAmount(amount *float64) string {
	if amount == nil {
		return ""
	}
	return strconv.FormatFloat(*amount, 'f', -1, 64)
}

// printIngredients prints ingredients as an aligned table.
func printIngredients(ings []ingredient.Ingredient) {
	if len(ings) == 0 {
		fmt.Println("No ingredients.")
		return
	}

	rows := make([][]string, 0, len(ings))
	for _, ing := range ings {
		rows = append(rows, []string{formatAmount(ing.Amount), ing.Unit, ing.Name})
	}
	printTable([]string{"AMOUNT", "UNIT", "NAME"}, rows, 60)
}

// printRecipe prints one recipe in full.
func printRecipe(r *recipe.Recipe) {
	fmt.Println(r.DishName)
	fmt.Println(strings.Repeat("=", max(runewidth.StringWidth(r.DishName), 3)))
	fmt.Printf("ID:   %s\n", r.ID.String())
	fmt.Printf("Site: %s\n", r.SiteID)
	if r.URL != "" {
		fmt.Printf("URL:  %s\n", r.URL)
	}

	for _, field := range []struct{ label, value string }{
		{"Category", r.Category},
		{"Prep time", r.PrepTime},
		{"Cook time", r.CookTime},
		{"Total time", r.TotalTime},
		{"Nutrition", r.NutritionInfo},
	} {
		if field.value != "" {
			fmt.Printf("%s: %s\n", field.label, field.value)
		}
	}
	if len(r.Tags) > 0 {
		fmt.Printf("Tags: %s\n", strings.Join(r.Tags, ", "))
	}

	if r.Description != "" {
		fmt.Println()
		fmt.Println(wrapText(r.Description, 80))
	}

	fmt.Println()
	printIngredients(r.Ingredients)

	if r.Instructions != "" {
		fmt.Println()
		fmt.Println(wrapText(r.Instructions, 80))
	}
	if r.Notes != "" {
		fmt.Println()
		fmt.Println("Notes:")
		fmt.Println(wrapText(r.Notes, 80))
	}
	for _, img := range r.ImageURLs {
		fmt.Printf("Image: %s\n", img)
	}
}

// printRecipesTable prints a recipe summary per row.
func printRecipesTable(recipes []recipe.Recipe) {
	if len(recipes) == 0 {
		fmt.Println("No recipes to display.")
		return
	}

	rows := make([][]string, 0, len(recipes))
	for _, r := range recipes {
		rows = append(rows, []string{
			r.ID.String(),
			r.SiteID,
			strconv.Itoa(len(r.Ingredients)),
			r.ExtractedAt.Format("2006-01-02 15:04"),
			r.DishName,
		})
	}
	printTable([]string{"ID", "SITE", "INGR", "EXTRACTED", "NAME"}, rows, 50)
}

// printPagesTable prints a page per row.
func printPagesTable(list []pages.Page) {
	if len(list) == 0 {
		fmt.Println("No pages to display.")
		return
	}

	rows := make([][]string, 0, len(list))
	for _, p := range list {
		rows = append(rows, []string{
			p.PageID.String(),
			p.Status,
			strconv.Itoa(p.ErrorCount),
			p.SiteID,
			p.URL,
		})
	}
	printTable([]string{"ID", "STATUS", "ERRORS", "SITE", "URL"}, rows, 70)
}

// printSummary prints the outcome of a batch run.
func printSummary(s *harvest.Summary) {
	fmt.Printf("Processed: %d  Extracted: %d  Not a recipe: %d  Failed: %d\n",
		s.Processed, s.Extracted, s.NotRecipe, s.Failed)
	for _, e := range s.Errors {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", e.Source, e.Error)
	}
}

// wrapText wraps text to a maximum line width, keeping existing line
// breaks.
func wrapText(text string, width int) string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}

		var line strings.Builder
		for _, word := range words {
			switch {
			case line.Len() == 0:
				line.WriteString(word)
			case runewidth.StringWidth(line.String())+1+runewidth.StringWidth(word) <= width:
				line.WriteString(" ")
				line.WriteString(word)
			default:
				out = append(out, line.String())
				line.Reset()
				line.WriteString(word)
			}
		}
		out = append(out, line.String())
	}
	return strings.Join(out, "\n")
}
