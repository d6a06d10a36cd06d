// Package api serves ingredient normalization, recipe extraction and the
// stored recipes, sites and pages over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/pevans/recipefed/extractor"
	"github.com/pevans/recipefed/harvest"
	"github.com/pevans/recipefed/pages"
	"github.com/pevans/recipefed/recipe"
	"github.com/pevans/recipefed/scraper"
	"go.uber.org/zap"
)

const (
	// maxBodySize caps request bodies; posted HTML pages can be large.
	maxBodySize = 10 << 20

	defaultLimit = 50
	maxLimit     = 500
)

// Fetcher downloads and parses a page. *extractor.Fetcher implements it.
type Fetcher interface {
	FetchDocument(ctx context.Context, url string) (*goquery.Document, error)
}

// Server is the HTTP API server.
type Server struct {
	recipes   *recipe.Store
	pages     *pages.PageStore
	registry  *scraper.Registry
	fetcher   Fetcher
	harvester *harvest.Service
	logger    *zap.Logger
}

// Options holds the server's dependencies. Recipes and Registry are
// required; endpoints whose dependency is nil answer 503.
type Options struct {
	Recipes   *recipe.Store
	Pages     *pages.PageStore
	Registry  *scraper.Registry
	Fetcher   Fetcher
	Harvester *harvest.Service
	Logger    *zap.Logger
}

// NewServer creates a new API server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		recipes:   opts.Recipes,
		pages:     opts.Pages,
		registry:  opts.Registry,
		fetcher:   opts.Fetcher,
		harvester: opts.Harvester,
		logger:    logger,
	}
}

// SetupRouter configures the Gin router with all API routes.
func (s *Server) SetupRouter() *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(requestLogger(s.logger))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:   []string{"Content-Length", "X-Request-ID"},
		MaxAge:          12 * time.Hour,
	}))
	router.Use(bodySizeLimit(maxBodySize))

	api := router.Group("/api/v1")
	api.POST("/ingredients/normalize", s.HandleNormalize)
	api.POST("/extract", s.HandleExtract)

	api.GET("/recipes", s.HandleListRecipes)
	api.GET("/recipes/:id", s.HandleGetRecipe)
	api.DELETE("/recipes/:id", s.HandleDeleteRecipe)

	api.GET("/sites", s.HandleListSites)
	api.GET("/sites/:id", s.HandleGetSite)

	api.GET("/pages", s.HandleListPages)
	api.POST("/pages", s.HandleCreatePage)
	api.GET("/pages/stats", s.HandlePageStats)
	api.POST("/harvest", s.HandleHarvest)

	return router
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorResponse(code, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}

// handleError maps domain errors to HTTP responses.
func (s *Server) handleError(c *gin.Context, err error) {
	var httpErr *extractor.HTTPError
	switch {
	case errors.Is(err, recipe.ErrRecipeNotFound),
		errors.Is(err, pages.ErrPageNotFound),
		errors.Is(err, harvest.ErrUnknownSite):
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
	case errors.Is(err, pages.ErrDuplicateURL):
		c.JSON(http.StatusConflict, errorResponse("conflict", err.Error()))
	case errors.Is(err, pages.ErrInvalidStatus),
		errors.Is(err, extractor.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
	case errors.Is(err, extractor.ErrNotRecipe):
		c.JSON(http.StatusUnprocessableEntity, errorResponse("not_recipe", err.Error()))
	case errors.As(err, &httpErr):
		c.JSON(http.StatusBadGateway, errorResponse("fetch_error", err.Error()))
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, errorResponse("timeout", err.Error()))
	default:
		s.logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", requestid.Get(c)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to process request"))
	}
}

func unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, errorResponse("unavailable", what+" is not configured"))
}
