package main

import (
	"fmt"
	"os"

	"github.com/pevans/recipefed/locale"
)

func handleSitesCommand(a *app, args []string) {
	action := "list"
	if len(args) > 0 {
		action = args[0]
	}

	switch action {
	case "list":
		handleSitesList(a)
	case "show":
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "Error: site ID is required\n")
			fmt.Fprintf(os.Stderr, "Usage: recipefed sites show <site-id>\n")
			os.Exit(1)
		}
		site, ok := a.siteRegistry().Get(args[1])
		if !ok {
			fail("unknown site: %s", args[1])
		}
		printJSON(site)
	case "locales":
		for _, lang := range locale.Languages() {
			fmt.Println(lang)
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown sites command: %s\n\n", action)
		fmt.Println("Usage: recipefed sites [list | show <site-id> | locales]")
		os.Exit(1)
	}
}

func handleSitesList(a *app) {
	sites := a.siteRegistry().Sites()
	if len(sites) == 0 {
		fmt.Println("No sites configured.")
		return
	}

	rows := make([][]string, 0, len(sites))
	for _, site := range sites {
		lang := site.Locale
		if lang == "" {
			lang = "en"
		}
		feed := "-"
		if site.FeedURL != "" {
			feed = "yes"
		}
		rows = append(rows, []string{site.ID, lang, feed, site.Domain, site.Name})
	}
	printTable([]string{"ID", "LOCALE", "FEED", "DOMAIN", "NAME"}, rows, 40)
}
