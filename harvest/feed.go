package harvest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/pevans/recipefed/pages"
	"github.com/pevans/recipefed/scraper"
	"go.uber.org/zap"
)

// ErrNoFeed is returned for sites without a feed URL.
var ErrNoFeed = errors.New("site has no feed")

// DiscoverFeed reads the site's RSS or Atom feed and registers every item
// link not yet in the page store as a pending page. It returns the number
// of new pages.
func (s *Service) DiscoverFeed(ctx context.Context, site scraper.SiteConfig) (int, error) {
	if s.pages == nil {
		return 0, ErrNoPageStore
	}
	if site.FeedURL == "" {
		return 0, fmt.Errorf("%w: %s", ErrNoFeed, site.ID)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()

	feed, err := s.feedParser.ParseURLWithContext(site.FeedURL, fetchCtx)
	if err != nil {
		return 0, fmt.Errorf("failed to parse feed: %w", err)
	}

	return s.registerLinks(site, feedLinks(feed))
}

// DiscoverAll runs DiscoverFeed for every registered site with a feed.
// Failing feeds are logged and skipped.
func (s *Service) DiscoverAll(ctx context.Context) (int, error) {
	if s.pages == nil {
		return 0, ErrNoPageStore
	}
	if s.registry == nil {
		return 0, nil
	}

	total := 0
	for _, site := range s.registry.Sites() {
		if site.FeedURL == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}

		n, err := s.DiscoverFeed(ctx, site)
		if err != nil {
			s.logger.Warn("failed to read feed",
				zap.String("site", site.ID),
				zap.String("feed", site.FeedURL),
				zap.Error(err),
			)
			continue
		}
		s.logger.Debug("read feed", zap.String("site", site.ID), zap.Int("new_pages", n))
		total += n
	}
	return total, nil
}

// feedLinks returns the item links of feed in feed order, without
// duplicates.
func feedLinks(feed *gofeed.Feed) []string {
	seen := make(map[string]bool)
	links := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" && len(item.Links) > 0 {
			link = strings.TrimSpace(item.Links[0])
		}
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true
		links = append(links, link)
	}
	return links
}

func (s *Service) registerLinks(site scraper.SiteConfig, links []string) (int, error) {
	created := 0
	for _, link := range links {
		_, err := s.pages.CreatePage(site.ID, link, nil)
		if errors.Is(err, pages.ErrDuplicateURL) {
			continue
		}
		if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
