package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pevans/recipefed/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestFetchHTML verifies the body is returned and the user agent sent
func TestFetchHTML(t *testing.T) {
	var userAgent atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent.Store(r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><h1>Soup</h1></html>")
	}))
	defer server.Close()

	f := NewFetcher(time.Second, nil, zap.NewNop())
	body, err := f.FetchHTML(context.Background(), server.URL+"/soup")
	require.NoError(t, err)
	assert.Equal(t, "<html><h1>Soup</h1></html>", string(body))
	assert.Equal(t, UserAgent, userAgent.Load())
}

// TestFetchHTML_Cache verifies cached pages are not fetched again
func TestFetchHTML_Cache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "<html></html>")
	}))
	defer server.Close()

	c := cache.NewMemory(time.Hour)
	f := NewFetcher(time.Second, c, nil)

	for i := 0; i < 3; i++ {
		_, err := f.FetchHTML(context.Background(), server.URL)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 1, c.Len())
}

// TestFetchHTML_NotFound verifies 404 and 410 are permanent errors
func TestFetchHTML_NotFound(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusGone} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		f := NewFetcher(time.Second, cache.NewMemory(time.Hour), nil)
		_, err := f.FetchHTML(context.Background(), server.URL)
		server.Close()

		require.Error(t, err)
		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, status, httpErr.StatusCode)
		assert.True(t, IsPermanent(err), "status %d", status)
	}
}

// TestFetchHTML_ServerError verifies 5xx responses are transient
func TestFetchHTML_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := NewFetcher(time.Second, nil, nil)
	_, err := f.FetchHTML(context.Background(), server.URL)
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
}

// TestFetchHTML_InvalidURL verifies malformed URLs fail without a request
func TestFetchHTML_InvalidURL(t *testing.T) {
	f := NewFetcher(0, nil, nil)
	for _, u := range []string{"", "not a url", "ftp://example.com/x", "https://"} {
		_, err := f.FetchHTML(context.Background(), u)
		assert.ErrorIs(t, err, ErrInvalidURL, u)
		assert.True(t, IsPermanent(err), u)
	}
}

// TestIsPermanent verifies other errors are treated as transient
func TestIsPermanent(t *testing.T) {
	assert.False(t, IsPermanent(nil))
	assert.False(t, IsPermanent(errors.New("connection reset")))
	assert.True(t, IsPermanent(fmt.Errorf("wrapped: %w", &HTTPError{StatusCode: 404, Status: "404 Not Found"})))
	assert.False(t, IsPermanent(&HTTPError{StatusCode: 429, Status: "429 Too Many Requests"}))
}

// TestFetchDocument verifies fetched pages are parsed
func TestFetchDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><h1>Lentil stew</h1></body></html>")
	}))
	defer server.Close()

	doc, err := NewFetcher(time.Second, nil, nil).FetchDocument(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Lentil stew", doc.Find("h1").Text())
}
