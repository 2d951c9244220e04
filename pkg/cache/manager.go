package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// DefaultStaleWindow is how long an expired entry stays in Redis so it can
// be revalidated with If-None-Match.
const DefaultStaleWindow = 10 * time.Minute

// Manager handles caching operations with Redis backend.
type Manager struct {
	redis *redis.Client

	// StaleWindow extends the Redis TTL past Expires for revalidatable entries.
	StaleWindow time.Duration
}

// NewManager creates a new cache manager with Redis backend.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{
		redis:       redisClient,
		StaleWindow: DefaultStaleWindow,
	}
}

// Get retrieves a cache entry by key.
//
// Fresh entries are returned as-is. Stale entries are returned only when they
// carry a validator; the caller must check IsExpired and revalidate.
// Stale entries without a validator are removed and reported as ErrCacheMiss.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	cacheKey := key.String()

	data, err := m.redis.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		if !entry.Revalidatable() {
			_ = m.Delete(ctx, key)
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheStale.Inc()
		return &entry, nil
	}

	CacheHits.WithLabelValues("redis").Inc()
	return &entry, nil
}

// Set stores a cache entry. The Redis TTL is the time until Expires, plus the
// stale window when the entry can be revalidated.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if entry.Revalidatable() {
		ttl += m.StaleWindow
	}
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheWrites.Inc()
	CacheEntryBytes.Observe(float64(len(data)))
	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// UpdateTTL moves the expiry of an existing entry, typically after a
// 304 Not Modified response.
func (m *Manager) UpdateTTL(ctx context.Context, key CacheKey, newExpires time.Time) error {
	entry, err := m.Get(ctx, key)
	if err != nil {
		return err
	}
	entry.Expires = newExpires
	return m.Set(ctx, key, entry)
}

// Purge removes every entry cached for the given account and returns the
// number of keys deleted.
func (m *Manager) Purge(ctx context.Context, account string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	pattern := AccountPattern(account)
	for {
		keys, next, err := m.redis.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			CacheErrors.WithLabelValues("purge").Inc()
			return deleted, fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			n, err := m.redis.Del(ctx, keys...).Result()
			if err != nil {
				CacheErrors.WithLabelValues("purge").Inc()
				return deleted, fmt.Errorf("redis del: %w", err)
			}
			deleted += int(n)
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}
