package cache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTTL is the fallback TTL when the response carries no freshness info.
	DefaultTTL = 5 * time.Minute
)

// ResponseToEntry builds a CacheEntry from a response's status, headers and body.
// Freshness comes from Cache-Control max-age, then Expires, then defaultTTL
// (DefaultTTL when defaultTTL <= 0). It returns nil when the response must
// not be stored (Cache-Control no-store).
func ResponseToEntry(status int, header http.Header, body []byte, defaultTTL time.Duration) *CacheEntry {
	if header == nil {
		header = http.Header{}
	}
	if noStore(header) {
		return nil
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}

	now := time.Now()
	entry := &CacheEntry{
		Data:       append([]byte(nil), body...),
		ETag:       header.Get("ETag"),
		StatusCode: status,
		Headers:    header.Clone(),
		CachedAt:   now,
		Expires:    parseExpires(header, now, defaultTTL),
	}

	if lastModStr := header.Get("Last-Modified"); lastModStr != "" {
		if lastMod, err := http.ParseTime(lastModStr); err == nil {
			entry.LastModified = lastMod
		}
	}
	return entry
}

// RefreshExpiry computes a new expiry from the headers of a 304 response.
func RefreshExpiry(header http.Header, defaultTTL time.Duration) time.Time {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return parseExpires(header, time.Now(), defaultTTL)
}

func parseExpires(headers http.Header, now time.Time, defaultTTL time.Duration) time.Time {
	if maxAge, ok := maxAge(headers); ok {
		return now.Add(maxAge)
	}

	expiresStr := headers.Get("Expires")
	if expiresStr == "" {
		return now.Add(defaultTTL)
	}
	expires, err := http.ParseTime(expiresStr)
	if err != nil {
		return now.Add(defaultTTL)
	}
	if expires.Before(now) {
		return now
	}
	return expires
}

func cacheControl(headers http.Header) []string {
	var directives []string
	for _, v := range headers.Values("Cache-Control") {
		for _, d := range strings.Split(v, ",") {
			if d = strings.TrimSpace(strings.ToLower(d)); d != "" {
				directives = append(directives, d)
			}
		}
	}
	return directives
}

func noStore(headers http.Header) bool {
	for _, d := range cacheControl(headers) {
		if d == "no-store" {
			return true
		}
	}
	return false
}

func maxAge(headers http.Header) (time.Duration, bool) {
	for _, d := range cacheControl(headers) {
		if v, ok := strings.CutPrefix(d, "max-age="); ok {
			secs, err := strconv.Atoi(v)
			if err != nil || secs < 0 {
				return 0, false
			}
			return time.Duration(secs) * time.Second, true
		}
	}
	return 0, false
}

// ShouldMakeConditionalRequest reports whether entry can be revalidated
// with If-None-Match or If-Modified-Since.
func ShouldMakeConditionalRequest(entry *CacheEntry) bool {
	return entry.Revalidatable()
}

// AddConditionalHeaders sets If-None-Match (preferred) or If-Modified-Since on h.
func AddConditionalHeaders(h http.Header, entry *CacheEntry) {
	if entry == nil || h == nil {
		return
	}
	if entry.ETag != "" {
		h.Set("If-None-Match", entry.ETag)
	} else if !entry.LastModified.IsZero() {
		h.Set("If-Modified-Since", entry.LastModified.UTC().Format(http.TimeFormat))
	}
}
