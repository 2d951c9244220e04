// Package ratelimit tracks OpenPhone 429 cooldowns per credential so that
// every client sharing a Redis instance backs off together.
package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RedisKeyPrefix namespaces the per-account state hashes.
const RedisKeyPrefix = "openphone:ratelimit:"

// Hash fields of the per-account state.
const (
	fieldCooldownUntil = "cooldown_until"
	fieldRetryAfter    = "retry_after"
	fieldLastUpdate    = "last_update"
	fieldHits          = "hits"
)

const (
	// DefaultCooldown applies when a 429 carries no usable Retry-After.
	DefaultCooldown = 1 * time.Second

	// MaxCooldown caps any single cooldown.
	MaxCooldown = 10 * time.Minute

	// stateRetention keeps the hit counter around after the cooldown ends.
	stateRetention = 1 * time.Hour
)

// RateLimitState is the 429 state of one account.
type RateLimitState struct {
	Account string `json:"account"`

	// CooldownUntil is when requests may resume. Zero if never limited.
	CooldownUntil time.Time `json:"cooldown_until"`

	// RetryAfter is the delay announced by the last 429.
	RetryAfter time.Duration `json:"retry_after"`

	LastUpdate time.Time `json:"last_update"`

	// Hits counts 429 responses seen within the retention window.
	Hits int64 `json:"hits"`
}

// RedisKey returns the hash key holding the state for account.
func RedisKey(account string) string {
	if account == "" {
		account = "anon"
	}
	return RedisKeyPrefix + account
}

// InCooldown reports whether requests should still be held back.
func (s *RateLimitState) InCooldown() bool {
	return time.Now().Before(s.CooldownUntil)
}

// Remaining returns the time left in the cooldown, or 0.
func (s *RateLimitState) Remaining() time.Duration {
	d := time.Until(s.CooldownUntil)
	if d < 0 {
		return 0
	}
	return d
}

// ParseRetryAfter reads the Retry-After header as delta-seconds or an HTTP date.
func ParseRetryAfter(h http.Header) (time.Duration, bool) {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0, false
	}
	if isDigits(v) {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(v); err == nil {
		d := time.Until(at)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
