// Package client provides the core OpenPhone HTTP client: credential
// injection, transport retries, response classification, and optional
// Redis-backed caching and rate-limit coordination.
package client

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/openphone-client/pkg/auth"
	"github.com/Sternrassler/openphone-client/pkg/cache"
	"github.com/Sternrassler/openphone-client/pkg/pagination"
	"github.com/Sternrassler/openphone-client/pkg/ratelimit"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Version is reported in the default User-Agent.
const Version = "0.1.0"

// DefaultBaseURL is the public OpenPhone API root.
const DefaultBaseURL = "https://api.openphone.com/v1"

// Client is the core OpenPhone client. It is safe for concurrent use.
type Client struct {
	baseURL   *url.URL
	apiKey    *auth.APIKey
	transport Transport
	retry     RetryPolicy

	cache       *cache.Manager
	rateLimiter *ratelimit.Tracker

	config Config
	logger zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the API, without trailing slash.
	BaseURL string

	// APIKey is sent verbatim in the Authorization header (REQUIRED).
	APIKey string

	UserAgent string

	// Timeout per HTTP round trip.
	Timeout time.Duration

	// Retry (network failures only)
	MaxRetries     int
	InitialBackoff time.Duration

	// Cache stores single-record GET responses. Nil disables caching.
	Cache    *cache.Manager
	CacheTTL time.Duration

	// RateLimiter shares 429 cooldowns between clients. Nil disables the gate.
	RateLimiter *ratelimit.Tracker

	// HTTPClient backs the default transport. Ignored when Transport is set.
	HTTPClient *http.Client

	// Transport replaces the resty-based transport (tests, custom stacks).
	Transport Transport

	Logger *zerolog.Logger
}

// DefaultConfig returns a configuration with the documented defaults.
func DefaultConfig(apiKey string) Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		APIKey:         apiKey,
		UserAgent:      "openphone-go/" + Version,
		Timeout:        30 * time.Second,
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		CacheTTL:       cache.DefaultTTL,
	}
}

// New creates a new OpenPhone client.
func New(cfg Config) (*Client, error) {
	apiKey, err := auth.NewAPIKey(cfg.APIKey)
	if err != nil {
		return nil, &Error{
			Kind:    KindAuthentication,
			Message: "API key is required",
			Err:     err,
		}
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: base url %q", ErrInvalidConfig, cfg.BaseURL)
	}

	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("%w: max_retries must be >= 0 (got %d)", ErrInvalidConfig, cfg.MaxRetries)
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 1 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "openphone-go/" + Version
	}

	var logger zerolog.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	} else {
		logger = log.With().Str("component", "openphone-client").Logger()
	}

	transport := cfg.Transport
	if transport == nil {
		transport = NewRestyTransport(cfg.HTTPClient, logger)
	}

	retry := DefaultRetryPolicy()
	retry.MaxRetries = cfg.MaxRetries
	retry.BaseDelay = cfg.InitialBackoff

	return &Client{
		baseURL:     base,
		apiKey:      apiKey,
		transport:   transport,
		retry:       retry,
		cache:       cfg.Cache,
		rateLimiter: cfg.RateLimiter,
		config:      cfg,
		logger:      logger,
	}, nil
}

// Do sends one logical request and returns the classified, parsed body.
//
// Pipeline: rate-limit gate, cache lookup (GET with a cache), transport
// with network retries, classification, 429 bookkeeping, cache store.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (map[string]any, error) {
	return c.do(ctx, method, path, query, body, method == http.MethodGet && c.cache != nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, useCache bool) (map[string]any, error) {
	endpoint := endpointLabel(path)
	logger := c.logger.With().
		Str("request_id", uuid.NewString()).
		Str("method", method).
		Str("endpoint", endpoint).
		Logger()

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: shared rate-limit cooldown
	if err := c.checkCooldown(ctx, &logger, endpoint); err != nil {
		return nil, err
	}

	// Step 2: cache
	var (
		cacheKey cache.CacheKey
		cached   *cache.CacheEntry
	)
	header := c.headers()
	if useCache {
		cacheKey = cache.CacheKey{
			Endpoint:    strings.Trim(path, "/"),
			QueryParams: query,
			Account:     c.apiKey.Fingerprint(),
		}
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil && !entry.IsExpired():
			logger.Debug().Msg("Serving response from cache")
			requestsTotal.WithLabelValues(endpoint, "cached").Inc()
			return ParseBody(entry.Data), nil
		case err == nil:
			cached = entry
			cache.AddConditionalHeaders(header, entry)
			logger.Debug().Str("etag", entry.ETag).Msg("Making conditional request")
		case !errors.Is(err, cache.ErrCacheMiss):
			logger.Warn().Err(err).Msg("Cache get error")
		}
	}

	// Step 3: transport with retry
	u, err := c.resolve(path)
	if err != nil {
		errorsTotal.WithLabelValues(string(KindBadRequest)).Inc()
		return nil, &Error{Kind: KindBadRequest, Message: "invalid request path", Err: err}
	}
	req := &Request{
		Method:  method,
		URL:     u,
		Query:   query,
		Header:  header,
		Body:    body,
		Timeout: c.config.Timeout,
	}

	logger.Debug().Msg("Executing OpenPhone request")
	policy := c.retry
	policy.Logger = &logger
	resp, err := policy.Do(ctx, func(ctx context.Context) (*Response, error) {
		return c.transport.Send(ctx, req)
	})
	if err != nil {
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		errorsTotal.WithLabelValues(string(KindOf(err))).Inc()
		return nil, err
	}
	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	// Step 4: revalidated cache entry
	if cached != nil && resp.StatusCode == http.StatusNotModified {
		cache.ConditionalRequests.Inc()
		logger.Debug().Msg("304 Not Modified - using cache")
		if err := c.cache.UpdateTTL(ctx, cacheKey, cache.RefreshExpiry(resp.Header, c.config.CacheTTL)); err != nil {
			logger.Warn().Err(err).Msg("Failed to update cache TTL")
		}
		return ParseBody(cached.Data), nil
	}

	// Step 5: classify
	result, err := Classify(resp.StatusCode, resp.Header, resp.Body)
	if err != nil {
		kind := KindOf(err)
		errorsTotal.WithLabelValues(string(kind)).Inc()
		logger.Warn().
			Int("status", resp.StatusCode).
			Str("error_kind", string(kind)).
			Msg("OpenPhone request error")

		if kind == KindRateLimited {
			c.recordRateLimit(ctx, &logger, err)
		}
		return nil, err
	}

	// Step 6: store
	if useCache && resp.StatusCode == http.StatusOK {
		if entry := cache.ResponseToEntry(resp.StatusCode, resp.Header, resp.Body, c.config.CacheTTL); entry != nil {
			if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
				logger.Warn().Err(err).Msg("Failed to cache response")
			} else {
				logger.Debug().Dur("ttl", entry.TTL()).Msg("Cached response")
			}
		}
	}

	// Step 7: a successful write invalidates the cached record
	if method != http.MethodGet && c.cache != nil {
		c.invalidate(ctx, &logger, path)
	}

	return result, nil
}

func (c *Client) invalidate(ctx context.Context, logger *zerolog.Logger, path string) {
	key := cache.CacheKey{
		Endpoint: strings.Trim(path, "/"),
		Account:  c.apiKey.Fingerprint(),
	}
	if err := c.cache.Delete(ctx, key); err != nil {
		logger.Warn().Err(err).Msg("Failed to invalidate cached response")
		return
	}
	logger.Debug().Msg("Invalidated cached response")
}

func (c *Client) checkCooldown(ctx context.Context, logger *zerolog.Logger, endpoint string) error {
	if c.rateLimiter == nil {
		return nil
	}
	allowed, remaining, err := c.rateLimiter.ShouldAllowRequest(ctx, c.apiKey.Fingerprint())
	if err != nil {
		logger.Warn().Err(err).Msg("Rate limit check failed, continuing")
		return nil
	}
	if allowed {
		return nil
	}

	secs := int(math.Ceil(remaining.Seconds()))
	logger.Warn().
		Dur("remaining", remaining).
		Msg("Request blocked by rate limit cooldown")
	requestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
	errorsTotal.WithLabelValues(string(KindRateLimited)).Inc()
	return &Error{
		Kind:       KindRateLimited,
		Message:    "Rate limit cooldown active",
		RetryAfter: &secs,
		Err:        ErrRateLimitCooldown,
	}
}

func (c *Client) recordRateLimit(ctx context.Context, logger *zerolog.Logger, err error) {
	if c.rateLimiter == nil {
		return
	}
	retryAfter, _ := RetryAfter(err)
	if _, rerr := c.rateLimiter.RecordRateLimit(ctx, c.apiKey.Fingerprint(), retryAfter); rerr != nil {
		logger.Warn().Err(rerr).Msg("Failed to record rate limit")
	}
}

// Raw sends a request and returns the response without classification.
// Network failures are still retried.
func (c *Client) Raw(ctx context.Context, method, path string, query url.Values, body any) (*Response, error) {
	u, err := c.resolve(path)
	if err != nil {
		return nil, &Error{Kind: KindBadRequest, Message: "invalid request path", Err: err}
	}
	req := &Request{
		Method:  method,
		URL:     u,
		Query:   query,
		Header:  c.headers(),
		Body:    body,
		Timeout: c.config.Timeout,
	}
	logger := c.logger.With().Str("request_id", uuid.NewString()).Logger()
	policy := c.retry
	policy.Logger = &logger
	return policy.Do(ctx, func(ctx context.Context) (*Response, error) {
		return c.transport.Send(ctx, req)
	})
}

// Get performs a GET request. Responses are cached when a cache is configured.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, path, query, nil)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, path, nil, body)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPut, path, nil, body)
}

// Patch performs a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPatch, path, nil, body)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (map[string]any, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// FetchPage implements pagination.PageFetcher. Pages are never cached.
func (c *Client) FetchPage(ctx context.Context, endpoint string, params url.Values) (map[string]any, error) {
	return c.do(ctx, http.MethodGet, endpoint, params, nil, false)
}

// List returns a lazy paginator over a collection endpoint.
func (c *Client) List(endpoint string, params url.Values) *pagination.Paginator {
	return pagination.New(c, endpoint, params)
}

// Fingerprint identifies the credential without exposing it.
func (c *Client) Fingerprint() string {
	return c.apiKey.Fingerprint()
}

// RateLimiter returns the configured tracker, or nil.
func (c *Client) RateLimiter() *ratelimit.Tracker {
	return c.rateLimiter
}

// GetCache returns the cache manager, or nil.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}

// SetSleeper replaces the retry backoff sleep (for testing).
func (c *Client) SetSleeper(s Sleeper) {
	c.retry.Sleep = s
}

func (c *Client) headers() http.Header {
	h := c.apiKey.Headers()
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set("User-Agent", c.config.UserAgent)
	return h
}

func (c *Client) resolve(path string) (string, error) {
	ref, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return "", err
	}
	if ref.IsAbs() || ref.Host != "" {
		return "", fmt.Errorf("path %q must be relative to the base url", path)
	}
	return c.baseURL.String() + "/" + ref.String(), nil
}

// endpointLabel reduces a path to its collection name to bound metric cardinality.
func endpointLabel(path string) string {
	path = strings.Trim(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "root"
	}
	return path
}
