// Package cache provides a Redis-backed response cache for the OpenPhone client.
//
// Only single-record GET responses are cached; list pages are never cached
// because page tokens are short-lived. Keys are scoped to the credential
// fingerprint so two API keys never see each other's data.
//
// Features:
//
//   - Freshness from Cache-Control max-age or Expires, with a configurable fallback TTL
//   - Cache-Control no-store is honoured
//   - Stale entries with an ETag or Last-Modified are kept for a grace window
//     and revalidated with If-None-Match / If-Modified-Since
//   - Deterministic cache keys (query values sorted)
//   - Prometheus metrics
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{Endpoint: "contacts/ct_1", Account: apiKey.Fingerprint()}
//	entry, err := manager.Get(ctx, key)
//	switch {
//	case errors.Is(err, cache.ErrCacheMiss):
//		// fetch from the API
//	case entry.IsExpired():
//		cache.AddConditionalHeaders(header, entry)
//		// a 304 means entry.Data is still valid
//	}
//
// # Storing Responses
//
//	if entry := cache.ResponseToEntry(resp.StatusCode, resp.Header, resp.Body, 5*time.Minute); entry != nil {
//		_ = manager.Set(ctx, key, entry)
//	}
//
// # Metrics
//
//   - openphone_cache_hits_total{layer="redis"}
//   - openphone_cache_misses_total
//   - openphone_cache_stale_total
//   - openphone_cache_writes_total
//   - openphone_cache_entry_bytes
//   - openphone_304_responses_total
//   - openphone_cache_errors_total{operation}
package cache
