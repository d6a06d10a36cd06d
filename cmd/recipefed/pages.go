package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/pevans/recipefed/pages"
)

func handlePagesCommand(a *app, args []string) {
	if len(args) < 1 {
		printPagesUsage()
		os.Exit(1)
	}

	action, rest := args[0], args[1:]
	switch action {
	case "list":
		handlePagesList(a, rest)
	case "add":
		handlePagesAdd(a, rest)
	case "show":
		handlePagesShow(a, rest)
	case "retry":
		handlePagesRetry(a, rest)
	case "delete":
		handlePagesDelete(a, rest)
	case "stats":
		handlePagesStats(a)
	case "help", "--help", "-h":
		printPagesUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown pages command: %s\n\n", action)
		printPagesUsage()
		os.Exit(1)
	}
}

func printPagesUsage() {
	fmt.Println("recipefed pages - Manage tracked pages")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  recipefed pages <action> [arguments]")
	fmt.Println()
	fmt.Println("Actions:")
	fmt.Println("  list       List pages")
	fmt.Println("  add        Queue a URL for harvesting")
	fmt.Println("  show       Show a page and its recent errors")
	fmt.Println("  retry      Put a page back in the pending queue")
	fmt.Println("  delete     Delete a page")
	fmt.Println("  stats      Count pages by status")
	fmt.Println("  help       Show this help message")
}

func handlePagesList(a *app, args []string) {
	fs := flag.NewFlagSet("pages list", flag.ExitOnError)
	status := fs.String("status", "", "Filter by status: pending, extracted, failed, not_recipe")
	siteID := fs.String("site", "", "Filter by site ID")
	limit := fs.Int("limit", 50, "Maximum number of pages to display")
	offset := fs.Int("offset", 0, "Number of pages to skip")
	format := fs.String("format", "table", "Output format: table, json")
	fs.Parse(args)

	filter := pages.PageFilter{Limit: *limit, Offset: *offset}
	if *status != "" {
		filter.Status = status
	}
	if *siteID != "" {
		filter.SiteID = siteID
	}

	list, err := a.pageStore().ListPages(filter)
	if err != nil {
		fail("failed to list pages: %v", err)
	}

	switch *format {
	case "json":
		if list == nil {
			list = []pages.Page{}
		}
		printJSON(list)
	case "table":
		printPagesTable(list)
	default:
		fail("unknown format: %s", *format)
	}
}

func handlePagesAdd(a *app, args []string) {
	fs := flag.NewFlagSet("pages add", flag.ExitOnError)
	url := fs.String("url", "", "Page URL")
	siteID := fs.String("site", "", "Site ID (default: detected from the URL)")
	fs.Parse(args)

	if *url == "" {
		fmt.Fprintf(os.Stderr, "Error: --url is required\n")
		fs.Usage()
		os.Exit(1)
	}

	site := resolveSite(a.siteRegistry(), *siteID, *url)
	page, err := a.pageStore().CreatePage(site.ID, *url, nil)
	if err != nil {
		fail("failed to add page: %v", err)
	}

	fmt.Printf("✓ Queued page: %s\n", page.PageID.String())
	fmt.Printf("  Site: %s\n", page.SiteID)
	fmt.Printf("  URL: %s\n", page.URL)
}

func parsePageID(args []string, usage string) uuid.UUID {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Error: page ID is required\n")
		fmt.Fprintf(os.Stderr, "Usage: %s\n", usage)
		os.Exit(1)
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		fail("invalid page ID: %v", err)
	}
	return id
}

func handlePagesShow(a *app, args []string) {
	id := parsePageID(args, "recipefed pages show <page-id>")
	store := a.pageStore()

	page, err := store.GetPage(id)
	if err != nil {
		fail("%v", err)
	}

	fmt.Printf("Page:    %s\n", page.PageID.String())
	fmt.Printf("Site:    %s\n", page.SiteID)
	fmt.Printf("URL:     %s\n", page.URL)
	fmt.Printf("Status:  %s\n", page.Status)
	fmt.Printf("Errors:  %d\n", page.ErrorCount)
	if page.HTMLPath != nil {
		fmt.Printf("File:    %s\n", *page.HTMLPath)
	}
	if page.RecipeID != nil {
		fmt.Printf("Recipe:  %s\n", page.RecipeID.String())
	}
	fmt.Printf("Created: %s\n", page.CreatedAt.Format("2006-01-02 15:04"))
	if page.ExtractedAt != nil {
		fmt.Printf("Extracted: %s\n", page.ExtractedAt.Format("2006-01-02 15:04"))
	}

	errs, err := store.ListErrors(id, 10)
	if err != nil {
		fail("failed to list errors: %v", err)
	}
	if len(errs) > 0 {
		fmt.Println()
		fmt.Println("Recent errors:")
		for _, e := range errs {
			fmt.Printf("  %s  %s\n", e.OccurredAt.Format("2006-01-02 15:04"), e.Error)
		}
	}
}

func handlePagesRetry(a *app, args []string) {
	id := parsePageID(args, "recipefed pages retry <page-id>")

	status := pages.StatusPending
	zero := 0
	err := a.pageStore().UpdatePage(id, pages.PageUpdate{
		Status:         &status,
		ErrorCount:     &zero,
		ClearLastError: true,
	})
	if err != nil {
		fail("failed to update page: %v", err)
	}

	fmt.Printf("✓ Page queued for retry: %s\n", id.String())
}

func handlePagesDelete(a *app, args []string) {
	id := parsePageID(args, "recipefed pages delete <page-id>")

	if err := a.pageStore().DeletePage(id); err != nil {
		fail("failed to delete page: %v", err)
	}

	fmt.Printf("✓ Deleted page: %s\n", id.String())
}

func handlePagesStats(a *app) {
	counts, err := a.pageStore().CountByStatus()
	if err != nil {
		fail("failed to count pages: %v", err)
	}

	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)

	rows := make([][]string, 0, len(statuses))
	for _, status := range statuses {
		rows = append(rows, []string{status, fmt.Sprint(counts[status])})
	}
	printTable([]string{"STATUS", "PAGES"}, rows, 20)
}
