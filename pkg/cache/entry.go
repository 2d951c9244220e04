// Package cache provides a Redis-backed response cache for single-record
// OpenPhone lookups with ETag revalidation.
package cache

import (
	"net/http"
	"time"
)

// CacheEntry represents a cached API response.
type CacheEntry struct {
	// Data is the raw response body.
	Data []byte `json:"data"`

	// ETag for conditional requests (If-None-Match).
	ETag string `json:"etag,omitempty"`

	// Expires is when the entry becomes stale.
	Expires time.Time `json:"expires"`

	// LastModified from the Last-Modified header, zero if absent.
	LastModified time.Time `json:"last_modified"`

	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers,omitempty"`
	CachedAt   time.Time   `json:"cached_at"`
}

// IsExpired returns true if the cache entry is stale.
func (e *CacheEntry) IsExpired() bool {
	return !time.Now().Before(e.Expires)
}

// TTL returns the time until expiration, or 0 if already expired.
func (e *CacheEntry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Revalidatable reports whether a stale entry can be refreshed with a
// conditional request instead of a full fetch.
func (e *CacheEntry) Revalidatable() bool {
	return e != nil && (e.ETag != "" || !e.LastModified.IsZero())
}
