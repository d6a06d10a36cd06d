package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/pevans/recipefed/api"
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

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("RECIPEFED_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Color: cfg.Log.Color, File: cfg.Log.File})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recipeStore, err := recipe.NewStore(cfg.Storage.RecipesDir)
	if err != nil {
		return fmt.Errorf("failed to open recipe store: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	pageStore, err := pages.NewPageStore(cfg.Storage.PagesDB)
	if err != nil {
		return fmt.Errorf("failed to open page store: %w", err)
	}
	defer pageStore.Close()

	registry, err := scraper.LoadRegistry(cfg.SitesFile)
	if err != nil {
		return fmt.Errorf("failed to load sites: %w", err)
	}

	var pageCache cache.Cache
	switch cfg.Cache.Type {
	case "redis":
		r, err := cache.NewRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.TTL)
		if err != nil {
			logger.Warn("page cache disabled", zap.Error(err))
			break
		}
		defer r.Close()
		pageCache = r
	case "memory":
		pageCache = cache.NewMemory(cfg.Cache.TTL)
	}

	fetcher := extractor.NewFetcher(cfg.Harvest.FetchTimeout, pageCache, logger)
	harvester := harvest.NewService(pageStore, recipeStore, registry, fetcher, cfg.Harvest.ServiceConfig(), logger)

	gin.SetMode(gin.ReleaseMode)
	server := api.NewServer(api.Options{
		Recipes:   recipeStore,
		Pages:     pageStore,
		Registry:  registry,
		Fetcher:   fetcher,
		Harvester: harvester,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           server.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	harvestDone := make(chan struct{})
	if cfg.API.Harvest {
		go func() {
			defer close(harvestDone)
			if err := harvester.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("harvest loop failed", zap.Error(err))
			}
		}()
	} else {
		close(harvestDone)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting API server",
			zap.String("addr", cfg.API.Addr),
			zap.Bool("harvest", cfg.API.Harvest),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			harvester.Stop()
			<-harvestDone
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down API server")
	harvester.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	<-harvestDone
	logger.Info("server exited")
	return nil
}
