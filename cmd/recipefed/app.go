package main

import (
	"context"
	"os"

	"github.com/pevans/recipefed/cache"
	"github.com/pevans/recipefed/config"
	"github.com/pevans/recipefed/extractor"
	"github.com/pevans/recipefed/harvest"
	"github.com/pevans/recipefed/logging"
	"github.com/pevans/recipefed/pages"
	"github.com/pevans/recipefed/recipe"
	"github.com/pevans/recipefed/scraper"
	"go.uber.org/zap"
)

// app holds the configuration and lazily opened stores shared by the
// subcommands.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	recipes  *recipe.Store
	pages    *pages.PageStore
	registry *scraper.Registry
	redis    *cache.Redis
}

func newApp(configPath string) *app {
	cfg, err := config.Load(configPath)
	if err != nil {
		fail("failed to load config: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level: cfg.Log.Level,
		Color: cfg.Log.Color,
		File:  cfg.Log.File,
	})
	if err != nil {
		fail("failed to create logger: %v", err)
	}

	return &app{cfg: cfg, logger: logger}
}

func (a *app) close() {
	if a.pages != nil {
		a.pages.Close()
		a.pages = nil
	}
	if a.redis != nil {
		a.redis.Close()
		a.redis = nil
	}
	_ = a.logger.Sync()
}

func (a *app) recipeStore() *recipe.Store {
	if a.recipes == nil {
		store, err := recipe.NewStore(a.cfg.Storage.RecipesDir)
		if err != nil {
			fail("failed to open recipe store: %v", err)
		}
		a.recipes = store
	}
	return a.recipes
}

func (a *app) pageStore() *pages.PageStore {
	if a.pages == nil {
		if err := os.MkdirAll(a.cfg.DataDir, 0o700); err != nil {
			fail("failed to create data directory: %v", err)
		}
		store, err := pages.NewPageStore(a.cfg.Storage.PagesDB)
		if err != nil {
			fail("failed to open page store: %v", err)
		}
		a.pages = store
	}
	return a.pages
}

func (a *app) siteRegistry() *scraper.Registry {
	if a.registry == nil {
		registry, err := scraper.LoadRegistry(a.cfg.SitesFile)
		if err != nil {
			fail("failed to load sites: %v", err)
		}
		a.registry = registry
	}
	return a.registry
}

// pageCache returns the configured cache, or nil when caching is off.
func (a *app) pageCache(ctx context.Context) cache.Cache {
	switch a.cfg.Cache.Type {
	case "redis":
		if a.redis == nil {
			r, err := cache.NewRedis(ctx, a.cfg.Cache.RedisAddr, a.cfg.Cache.TTL)
			if err != nil {
				a.logger.Warn("page cache disabled", zap.Error(err))
				return nil
			}
			a.redis = r
		}
		return a.redis
	case "memory":
		return cache.NewMemory(a.cfg.Cache.TTL)
	default:
		return nil
	}
}

func (a *app) fetcher(ctx context.Context) *extractor.Fetcher {
	return extractor.NewFetcher(a.cfg.Harvest.FetchTimeout, a.pageCache(ctx), a.logger)
}

// harvester builds a harvest service. Directory processing needs no page
// store or fetcher, so both are optional.
func (a *app) harvester(ctx context.Context, withPages bool) *harvest.Service {
	var (
		pageStore *pages.PageStore
		fetcher   harvest.Fetcher
	)
	if withPages {
		pageStore = a.pageStore()
		fetcher = a.fetcher(ctx)
	}
	return harvest.NewService(
		pageStore,
		a.recipeStore(),
		a.siteRegistry(),
		fetcher,
		a.cfg.Harvest.ServiceConfig(),
		a.logger,
	)
}
