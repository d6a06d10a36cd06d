package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pevans/recipefed/extractor"
	"github.com/pevans/recipefed/ingredient"
	"github.com/pevans/recipefed/pages"
	"github.com/pevans/recipefed/recipe"
	"github.com/pevans/recipefed/scraper"
)

// ExtractRequest is the body of POST /api/v1/extract. With HTML set the
// page is extracted as given; otherwise URL is fetched.
type ExtractRequest struct {
	URL    string `json:"url"`
	SiteID string `json:"site_id,omitempty"`
	HTML   string `json:"html,omitempty"`
	Save   bool   `json:"save,omitempty"`
}

// ListRecipesResponse is the response for GET /api/v1/recipes.
type ListRecipesResponse struct {
	Recipes []recipe.Recipe `json:"recipes"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// ListSitesResponse is the response for GET /api/v1/sites.
type ListSitesResponse struct {
	Sites []scraper.SiteConfig `json:"sites"`
	Total int                  `json:"total"`
}

// ListPagesResponse is the response for GET /api/v1/pages.
type ListPagesResponse struct {
	Pages  []pages.Page `json:"pages"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// CreatePageRequest is the body of POST /api/v1/pages.
type CreatePageRequest struct {
	URL    string `json:"url" binding:"required"`
	SiteID string `json:"site_id,omitempty"`
}

// HandleNormalize handles POST /api/v1/ingredients/normalize. The body is
// one ingredient object or an array of them.
func (s *Server) HandleNormalize(c *gin.Context) {
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()

	var body any
	if err := dec.Decode(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid_json", "Request body must be JSON: "+err.Error()))
		return
	}

	switch v := body.(type) {
	case map[string]any:
		c.JSON(http.StatusOK, ingredient.NormalizeValue(v))
	case []any:
		c.JSON(http.StatusOK, ingredient.NormalizeValues(v))
	default:
		c.JSON(http.StatusBadRequest, errorResponse("validation_error",
			"Request body must be an ingredient object or an array of ingredients"))
	}
}

// HandleExtract handles POST /api/v1/extract.
func (s *Server) HandleExtract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
		return
	}
	req.URL = strings.TrimSpace(req.URL)

	site, ok := s.siteFor(req.SiteID, req.URL)
	if !ok {
		s.unknownSite(c, req.SiteID)
		return
	}

	var (
		r   *recipe.Recipe
		err error
	)
	switch {
	case req.HTML != "":
		r, err = extractor.ExtractHTML(strings.NewReader(req.HTML), site, req.URL)
	case req.URL == "":
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", "url or html is required"))
		return
	case s.fetcher == nil:
		unavailable(c, "page fetching")
		return
	default:
		doc, fetchErr := s.fetcher.FetchDocument(c.Request.Context(), req.URL)
		if fetchErr != nil {
			s.handleError(c, fetchErr)
			return
		}
		r, err = extractor.Extract(doc, site, req.URL)
	}
	if err != nil {
		s.handleError(c, err)
		return
	}

	if req.Save {
		if err := s.recipes.Add(*r); err != nil {
			s.handleError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, r)
}

// siteFor resolves the site for an extraction request. An unknown explicit
// site ID is an error; otherwise the URL's site or the generic config is
// used.
func (s *Server) siteFor(siteID, pageURL string) (scraper.SiteConfig, bool) {
	if s.registry == nil {
		return scraper.Generic(), siteID == ""
	}
	if siteID != "" {
		site, ok := s.registry.Get(siteID)
		if !ok {
			return scraper.SiteConfig{}, false
		}
		return *site, true
	}
	if site, ok := s.registry.ForURL(pageURL); ok {
		return *site, true
	}
	return scraper.Generic(), true
}

// HandleListRecipes handles GET /api/v1/recipes, newest first.
func (s *Server) HandleListRecipes(c *gin.Context) {
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	result, err := s.recipes.List()
	if err != nil {
		s.handleError(c, err)
		return
	}

	recipes := result.Recipes
	if siteID := c.Query("site_id"); siteID != "" {
		filtered := make([]recipe.Recipe, 0, len(recipes))
		for _, r := range recipes {
			if r.SiteID == siteID {
				filtered = append(filtered, r)
			}
		}
		recipes = filtered
	}
	sort.SliceStable(recipes, func(i, j int) bool {
		return recipes[i].ExtractedAt.After(recipes[j].ExtractedAt)
	})

	total := len(recipes)
	start := min(offset, total)
	end := min(start+limit, total)

	c.JSON(http.StatusOK, ListRecipesResponse{
		Recipes: append([]recipe.Recipe{}, recipes[start:end]...),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

// HandleGetRecipe handles GET /api/v1/recipes/{id}.
func (s *Server) HandleGetRecipe(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid recipe ID"))
		return
	}

	r, err := s.recipes.Get(id)
	if err != nil {
		s.handleError(c, err)
		return
	}
	if r == nil {
		s.handleError(c, recipe.ErrRecipeNotFound)
		return
	}

	c.JSON(http.StatusOK, r)
}

// HandleDeleteRecipe handles DELETE /api/v1/recipes/{id}.
func (s *Server) HandleDeleteRecipe(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid recipe ID"))
		return
	}

	if err := s.recipes.Delete(id); err != nil {
		s.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// HandleListSites handles GET /api/v1/sites.
func (s *Server) HandleListSites(c *gin.Context) {
	sites := []scraper.SiteConfig{}
	if s.registry != nil {
		sites = s.registry.Sites()
	}
	c.JSON(http.StatusOK, ListSitesResponse{Sites: sites, Total: len(sites)})
}

// HandleGetSite handles GET /api/v1/sites/{id}.
func (s *Server) HandleGetSite(c *gin.Context) {
	if s.registry != nil {
		if site, ok := s.registry.Get(c.Param("id")); ok {
			c.JSON(http.StatusOK, site)
			return
		}
	}
	s.unknownSite(c, c.Param("id"))
}

// unknownSite answers 404, naming the closest registered site when there is
// one.
func (s *Server) unknownSite(c *gin.Context, id string) {
	msg := "Unknown site: " + id
	if s.registry != nil {
		if hint := s.registry.Suggest(id); hint != "" {
			msg += " (did you mean " + hint + "?)"
		}
	}
	c.JSON(http.StatusNotFound, errorResponse("not_found", msg))
}

// HandleListPages handles GET /api/v1/pages.
func (s *Server) HandleListPages(c *gin.Context) {
	if s.pages == nil {
		unavailable(c, "page store")
		return
	}

	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	filter := pages.PageFilter{Limit: limit, Offset: offset}
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}
	if siteID := c.Query("site_id"); siteID != "" {
		filter.SiteID = &siteID
	}

	list, err := s.pages.ListPages(filter)
	if err != nil {
		s.handleError(c, err)
		return
	}
	if list == nil {
		list = []pages.Page{}
	}

	c.JSON(http.StatusOK, ListPagesResponse{
		Pages:  list,
		Total:  len(list),
		Limit:  limit,
		Offset: offset,
	})
}

// HandleCreatePage handles POST /api/v1/pages, queueing a URL for harvest.
func (s *Server) HandleCreatePage(c *gin.Context) {
	if s.pages == nil {
		unavailable(c, "page store")
		return
	}

	var req CreatePageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
		return
	}

	req.URL = strings.TrimSpace(req.URL)
	if u, err := url.Parse(req.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", "url must be an absolute http(s) URL"))
		return
	}

	site, ok := s.siteFor(req.SiteID, req.URL)
	if !ok {
		s.unknownSite(c, req.SiteID)
		return
	}

	page, err := s.pages.CreatePage(site.ID, req.URL, nil)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, page)
}

// HandlePageStats handles GET /api/v1/pages/stats.
func (s *Server) HandlePageStats(c *gin.Context) {
	if s.pages == nil {
		unavailable(c, "page store")
		return
	}

	counts, err := s.pages.CountByStatus()
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

// HandleHarvest handles POST /api/v1/harvest, harvesting pending pages
// synchronously.
func (s *Server) HandleHarvest(c *gin.Context) {
	if s.harvester == nil {
		unavailable(c, "harvesting")
		return
	}

	summary, err := s.harvester.HarvestPending(c.Request.Context())
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// pagination reads limit and offset, writing a 400 when either is invalid.
func pagination(c *gin.Context) (limit, offset int, ok bool) {
	limit = defaultLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, errorResponse("invalid_parameter", "limit must be a positive integer"))
			return 0, 0, false
		}
		limit = min(n, maxLimit)
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, errorResponse("invalid_parameter", "offset must be a non-negative integer"))
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}
