package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const maxResponseBodySize = 1 << 20 // 1MB

// connection pooling limits to prevent resource exhaustion when many
// endpoints poll the same backend
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second
)

// RequestOptions describes a single request to [Client.Do].
type RequestOptions struct {
	// Method is the HTTP method. Empty defaults to GET.
	Method string

	// Body is the request body, sent as-is. JSON bodies should be
	// marshalled by the caller.
	Body []byte

	// Headers are additional headers set on the request. They are
	// applied after the defaults, so callers can override them.
	Headers map[string]string
}

// readOnly reports whether the request participates in caching and
// deduplication: method absent or GET, and SkipCache not set.
func (o RequestOptions) readOnly(cache CacheOptions) bool {
	if cache.SkipCache {
		return false
	}
	return o.Method == "" || o.Method == http.MethodGet
}

// Client is the HTTP client for the TrendScribe backend.
//
// Client wraps every outbound call with bearer-token injection, a
// TTL-based response cache, and in-flight deduplication of identical
// read-only requests. See the package documentation for the caching
// contract.
//
// A Client owns a background goroutine that sweeps expired cache
// entries; call [Client.Close] when the client is no longer needed.
// All methods are safe for concurrent use.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenStore
	onUnauthorized func()
	logger         *slog.Logger

	cache   *responseCache
	flights singleflight.Group

	sweepInterval time.Duration
	sweepStop     chan struct{}
	sweepDone     chan struct{}
	closeOnce     sync.Once
}

// ClientOption configures a [Client] during construction.
type ClientOption func(*clientConfig) error

// clientConfig holds mutable state during Client construction.
type clientConfig struct {
	httpClient     *http.Client
	tokens         TokenStore
	onUnauthorized func()
	logger         *slog.Logger
	sweepInterval  time.Duration
	now            func() time.Time
}

// WithTokenStore sets the [TokenStore] consulted on every request.
//
// Without a token store, requests are sent unauthenticated.
func WithTokenStore(tokens TokenStore) ClientOption {
	return func(cfg *clientConfig) error {
		if tokens == nil {
			return errors.New("token store cannot be nil")
		}
		cfg.tokens = tokens
		return nil
	}
}

// WithUnauthorizedHook registers a function invoked whenever the
// backend answers 401.
//
// The token store has already been cleared when the hook runs. The host
// application typically redirects to its login boundary here. The hook
// is called from the goroutine performing the request and must not
// block.
func WithUnauthorizedHook(hook func()) ClientOption {
	return func(cfg *clientConfig) error {
		cfg.onUnauthorized = hook
		return nil
	}
}

// WithHTTPClient replaces the underlying [http.Client].
//
// The default client uses pooled connections and no global timeout;
// lifecycle cancellation flows through request contexts instead.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(cfg *clientConfig) error {
		if hc == nil {
			return errors.New("http client cannot be nil")
		}
		cfg.httpClient = hc
		return nil
	}
}

// WithClientLogger sets the logger for cache sweep and auth events.
// Defaults to [slog.Default].
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(cfg *clientConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithSweepInterval overrides how often expired cache entries are
// swept. Defaults to 5 minutes.
func WithSweepInterval(d time.Duration) ClientOption {
	return func(cfg *clientConfig) error {
		if d <= 0 {
			return errors.New("sweep interval must be positive")
		}
		cfg.sweepInterval = d
		return nil
	}
}

// withNow overrides the clock. Test hook.
func withNow(now func() time.Time) ClientOption {
	return func(cfg *clientConfig) error {
		cfg.now = now
		return nil
	}
}

// NewClient creates a [Client] for the backend at baseURL.
//
// The base URL must include a scheme; endpoint paths passed to
// [Client.Do] are appended to it. The returned client starts its cache
// sweep goroutine immediately.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Scheme == "" {
		return nil, errors.New("base URL must have a scheme (http:// or https://)")
	}

	cfg := &clientConfig{
		sweepInterval: defaultSweepInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{
			// no default timeout - cancellation flows through request contexts
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     httpClient,
		tokens:         cfg.tokens,
		onUnauthorized: cfg.onUnauthorized,
		logger:         logger,
		cache:          newResponseCache(cfg.now),
		sweepInterval:  cfg.sweepInterval,
		sweepStop:      make(chan struct{}),
		sweepDone:      make(chan struct{}),
	}

	go c.sweepLoop()

	return c, nil
}

// Do executes a request against the backend and returns the raw
// response body.
//
// Read-only requests (GET without [CacheOptions.SkipCache]) follow the
// caching contract:
//
//  1. A fresh cache entry for the request's key is returned without a
//     network call.
//  2. If an identical request is already in flight, the caller joins it
//     and receives the same result.
//  3. Otherwise the request is issued; a successful response is cached
//     for the TTL. Failures are never cached.
//
// Mutating requests and SkipCache reads always hit the network and
// never touch the cache. Failures are returned as [*Error].
func (c *Client) Do(ctx context.Context, endpoint string, opts RequestOptions, cache CacheOptions) ([]byte, error) {
	if cache.TTL <= 0 {
		cache.TTL = DefaultTTL
	}

	if !opts.readOnly(cache) {
		return c.roundTrip(ctx, endpoint, opts)
	}

	key := cacheKey(opts.Method, endpoint, opts.Body)
	if data, ok := c.cache.get(key); ok {
		return data, nil
	}

	// singleflight collapses concurrent identical requests into one
	// network call; the key is forgotten when the flight settles, so a
	// later call is never deduplicated against a finished request
	v, err, _ := c.flights.Do(key, func() (any, error) {
		// re-check: a flight that settled between our cache miss and
		// this call may already have populated the entry
		if data, ok := c.cache.get(key); ok {
			return data, nil
		}

		data, err := c.roundTrip(ctx, endpoint, opts)
		if err != nil {
			return nil, err
		}
		c.cache.put(key, data, cache.TTL)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// roundTrip performs one network call, classifies failures, and handles
// the 401 boundary (clear tokens, invoke the unauthorized hook).
func (c *Client) roundTrip(ctx context.Context, endpoint string, opts RequestOptions) ([]byte, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(opts.Body) > 0 {
		body = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if len(opts.Body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransient, Endpoint: endpoint, cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, &Error{Kind: KindTransient, Endpoint: endpoint, cause: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if c.tokens != nil {
			c.tokens.Clear()
		}
		c.logger.Warn("authentication rejected, token cleared", "endpoint", endpoint)
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return nil, &Error{Kind: KindUnauthorized, StatusCode: resp.StatusCode, Status: resp.Status, Endpoint: endpoint}

	case resp.StatusCode == http.StatusForbidden:
		return nil, &Error{Kind: KindPermission, StatusCode: resp.StatusCode, Status: resp.Status, Endpoint: endpoint}

	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &Error{Kind: KindStatus, StatusCode: resp.StatusCode, Status: resp.Status, Endpoint: endpoint}
	}

	return data, nil
}

// Invalidate deletes every cache entry whose key contains pattern as a
// substring. An empty pattern clears the entire cache.
//
// Mutating operations call this to evict stale reads of the collections
// they changed, e.g. Invalidate("/api/v1/jobs") after creating a job.
func (c *Client) Invalidate(pattern string) {
	c.cache.invalidate(pattern)
}

// InvalidateAll clears the entire response cache.
func (c *Client) InvalidateAll() {
	c.cache.invalidate("")
}

// Close stops the cache sweep goroutine and releases idle connections.
// Safe to call multiple times.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.sweepStop)
		<-c.sweepDone
		if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
			transport.CloseIdleConnections()
		}
	})
}

// sweepLoop periodically drops expired cache entries.
func (c *Client) sweepLoop() {
	defer close(c.sweepDone)

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.sweepStop:
			return
		case <-ticker.C:
			if removed := c.cache.sweep(); removed > 0 {
				c.logger.Debug("cache sweep", "removed", removed, "remaining", c.cache.len())
			}
		}
	}
}

// GetJSON performs a cached read-only request and decodes the response
// body into T.
//
// This is the building block for the typed endpoint fetchers in the
// trendwatch package.
func GetJSON[T any](ctx context.Context, c *Client, endpoint string, cache CacheOptions) (T, error) {
	var out T

	data, err := c.Do(ctx, endpoint, RequestOptions{}, cache)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return out, nil
}
