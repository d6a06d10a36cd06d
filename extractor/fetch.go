package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/pevans/recipefed/cache"
	"go.uber.org/zap"
)

const (
	// UserAgent identifies recipefed to the sites it fetches.
	UserAgent = "recipefed/1.0 (+https://github.com/pevans/recipefed)"

	// DefaultTimeout bounds a single page fetch.
	DefaultTimeout = 10 * time.Second
)

// ErrInvalidURL is returned for URLs that cannot be fetched.
var ErrInvalidURL = errors.New("invalid url")

// HTTPError reports a non-200 response.
type HTTPError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error: %s fetching %s", e.Status, e.URL)
}

// Permanent reports whether retrying the request is pointless.
func (e *HTTPError) Permanent() bool {
	return e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusGone
}

// IsPermanent reports whether err means the page will never be fetched
// successfully: a 404 or 410 response or a malformed URL. Everything else
// (timeouts, 5xx, connection resets) is considered transient.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidURL) {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Permanent()
	}
	return false
}

// Fetcher downloads recipe pages. Successful responses are stored in the
// optional cache and served from it on later fetches.
type Fetcher struct {
	client *resty.Client
	cache  cache.Cache
	logger *zap.Logger
}

// NewFetcher creates a fetcher with the given timeout. A nil cache disables
// caching; a nil logger discards log output.
func NewFetcher(timeout time.Duration, c cache.Cache, logger *zap.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() >= http.StatusInternalServerError
		})

	return &Fetcher{client: client, cache: c, logger: logger}
}

// FetchHTML returns the body of the page at pageURL.
func (f *Fetcher) FetchHTML(ctx context.Context, pageURL string) ([]byte, error) {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, pageURL)
	}

	if f.cache != nil {
		body, err := f.cache.Get(ctx, pageURL)
		switch {
		case err == nil:
			f.logger.Debug("page served from cache", zap.String("url", pageURL))
			return body, nil
		case !errors.Is(err, cache.ErrMiss):
			f.logger.Warn("cache lookup failed", zap.String("url", pageURL), zap.Error(err))
		}
	}

	start := time.Now()
	resp, err := f.client.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &HTTPError{URL: pageURL, StatusCode: resp.StatusCode(), Status: resp.Status()}
	}

	body := resp.Body()
	f.logger.Debug("page fetched",
		zap.String("url", pageURL),
		zap.Int("bytes", len(body)),
		zap.Duration("took", time.Since(start)),
	)

	if f.cache != nil {
		if err := f.cache.Set(ctx, pageURL, body); err != nil {
			f.logger.Warn("cache store failed", zap.String("url", pageURL), zap.Error(err))
		}
	}
	return body, nil
}

// FetchDocument fetches pageURL and parses it as HTML.
func (f *Fetcher) FetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := f.FetchHTML(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}
