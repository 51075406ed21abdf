// Package upstream builds the HTTP client used for calls to the upstream API.
package upstream

import (
	"net/http"
	"sync"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	"github.com/gregjones/httpcache"
)

// NewHTTPClient creates an http.Client with the following transport stack:
//  1. CacheTransport (ETag and Cache-Control aware caching, one cache per credential)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//
// Authentication is layered on top by the caller. The returned CacheTransport
// should be reset whenever the credential changes.
func NewHTTPClient(timeout time.Duration) (*http.Client, *CacheTransport) {
	return NewHTTPClientWithTransport(http.DefaultTransport, timeout)
}

// NewHTTPClientWithTransport builds the same stack over a custom base transport.
// This constructor is intended for testing.
func NewHTTPClientWithTransport(base http.RoundTripper, timeout time.Duration) (*http.Client, *CacheTransport) {
	cache := NewCacheTransport(base)

	client := github_ratelimit.NewClient(cache)
	client.Timeout = timeout
	return client, cache
}

// CacheTransport is an httpcache transport whose cache belongs to a single
// Authorization value. httpcache keys entries by URL alone, so a request
// carrying a different Authorization header (or none) starts an empty cache
// instead of reading responses fetched with another credential.
type CacheTransport struct {
	base http.RoundTripper

	mu     sync.Mutex
	owner  string
	cached *httpcache.Transport
}

// NewCacheTransport creates a CacheTransport over base.
func NewCacheTransport(base http.RoundTripper) *CacheTransport {
	return &CacheTransport{base: base}
}

// RoundTrip serves req through the cache owned by req's Authorization value.
func (t *CacheTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	auth := req.Header.Get("Authorization")

	t.mu.Lock()
	if t.cached == nil || t.owner != auth {
		t.cached = httpcache.NewTransport(httpcache.NewMemoryCache())
		t.cached.Transport = t.base
		t.owner = auth
	}
	cached := t.cached
	t.mu.Unlock()

	return cached.RoundTrip(req)
}

// Reset drops every cached response. Responses still in flight land in the
// discarded cache.
func (t *CacheTransport) Reset() {
	t.mu.Lock()
	t.cached = nil
	t.owner = ""
	t.mu.Unlock()
}
