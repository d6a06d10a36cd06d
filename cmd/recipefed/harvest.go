package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pevans/recipefed/harvest"
)

func handleProcess(a *app, args []string) {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	siteID := fs.String("site", "", "Site ID for every file (default: detected per file)")
	track := fs.Bool("track", false, "Record each file in the page store")
	format := fs.String("format", "text", "Output format: text, json")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: a directory is required\n")
		fmt.Fprintf(os.Stderr, "Usage: recipefed process [flags] <dir>\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var svc *harvest.Service
	if *track {
		svc = harvest.NewService(a.pageStore(), a.recipeStore(), a.siteRegistry(), nil,
			a.cfg.Harvest.ServiceConfig(), a.logger)
	} else {
		svc = a.harvester(ctx, false)
	}

	summary, err := svc.ProcessDirectory(ctx, fs.Arg(0), *siteID)
	if err != nil {
		fail("%v", err)
	}
	reportSummary(summary, *format)
}

func handleHarvest(a *app, args []string) {
	fs := flag.NewFlagSet("harvest", flag.ExitOnError)
	pageURL := fs.String("url", "", "Harvest this URL now instead of the pending queue")
	format := fs.String("format", "text", "Output format: text, json")
	fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := a.harvester(ctx, true)

	if *pageURL != "" {
		page, err := svc.HarvestURL(ctx, *pageURL)
		if page != nil && *format == "json" {
			printJSON(page)
		} else if page != nil {
			fmt.Printf("%s  %s\n", page.Status, page.URL)
			if page.RecipeID != nil {
				fmt.Printf("  Recipe: %s\n", page.RecipeID.String())
			}
		}
		if err != nil {
			fail("%v", err)
		}
		return
	}

	summary, err := svc.HarvestPending(ctx)
	if summary != nil {
		reportSummary(summary, *format)
	}
	if err != nil {
		fail("%v", err)
	}
}

func handleDiscover(a *app, args []string) {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	siteID := fs.String("site", "", "Only discover from this site's feed")
	fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := a.harvester(ctx, true)

	if *siteID == "" {
		added, err := svc.DiscoverAll(ctx)
		if err != nil {
			fail("%v", err)
		}
		fmt.Printf("✓ Queued %d new page(s)\n", added)
		return
	}

	site, ok := a.siteRegistry().Get(*siteID)
	if !ok {
		fail("unknown site: %s", *siteID)
	}
	added, err := svc.DiscoverFeed(ctx, *site)
	if err != nil {
		fail("%v", err)
	}
	fmt.Printf("✓ Queued %d new page(s) from %s\n", added, site.Name)
}

func handleRun(a *app, args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	interval := fs.String("interval", "", "Time between cycles (default from config)")
	fs.Parse(args)

	if *interval != "" {
		d, err := parseDuration(*interval)
		if err != nil || d <= 0 {
			fail("invalid interval: %s", *interval)
		}
		a.cfg.Harvest.PollInterval = d
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := a.harvester(ctx, true)

	if err := svc.Run(ctx); err != nil && ctx.Err() == nil {
		fail("%v", err)
	}
	svc.Stop()
}

func reportSummary(summary *harvest.Summary, format string) {
	if format == "json" {
		printJSON(summary)
		return
	}
	printSummary(summary)
}
