package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "openphone_rate_limit_hits_total",
		Help: "Total number of 429 responses recorded",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "openphone_rate_limit_blocks_total",
		Help: "Total number of requests refused locally during a cooldown",
	})

	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "openphone_rate_limit_wait_seconds",
		Help:    "Time spent waiting for a cooldown to end",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})
)

// Tracker records 429 cooldowns in Redis and gates requests on them.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger

	// DefaultCooldown is used when a 429 has no Retry-After.
	DefaultCooldown time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// NewTracker creates a new rate limit tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Tracker{
		redis:           redisClient,
		logger:          logger.With().Str("component", "ratelimit").Logger(),
		DefaultCooldown: DefaultCooldown,
		sleep:           sleepContext,
	}
}

// GetState retrieves the rate limit state of account from Redis.
// An account that was never limited yields a zero state.
func (t *Tracker) GetState(ctx context.Context, account string) (*RateLimitState, error) {
	fields, err := t.redis.HGetAll(ctx, RedisKey(account)).Result()
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}

	state := &RateLimitState{Account: account}
	if len(fields) == 0 {
		return state, nil
	}

	if v, ok := fields[fieldCooldownUntil]; ok {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", fieldCooldownUntil, err)
		}
		state.CooldownUntil = time.UnixMilli(ms)
	}
	if v, ok := fields[fieldRetryAfter]; ok {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", fieldRetryAfter, err)
		}
		state.RetryAfter = time.Duration(ms) * time.Millisecond
	}
	if v, ok := fields[fieldLastUpdate]; ok {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", fieldLastUpdate, err)
		}
		state.LastUpdate = time.UnixMilli(ms)
	}
	if v, ok := fields[fieldHits]; ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", fieldHits, err)
		}
		state.Hits = n
	}
	return state, nil
}

// RecordRateLimit stores a cooldown for account after a 429.
// A non-positive retryAfter falls back to DefaultCooldown. An existing
// cooldown that ends later is never shortened.
func (t *Tracker) RecordRateLimit(ctx context.Context, account string, retryAfter time.Duration) (*RateLimitState, error) {
	if retryAfter <= 0 {
		retryAfter = t.DefaultCooldown
	}
	if retryAfter > MaxCooldown {
		retryAfter = MaxCooldown
	}

	current, err := t.GetState(ctx, account)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	until := now.Add(retryAfter)
	if current.CooldownUntil.After(until) {
		until = current.CooldownUntil
	}

	key := RedisKey(account)
	pipe := t.redis.TxPipeline()
	pipe.HSet(ctx, key,
		fieldCooldownUntil, until.UnixMilli(),
		fieldRetryAfter, retryAfter.Milliseconds(),
		fieldLastUpdate, now.UnixMilli(),
	)
	hits := pipe.HIncrBy(ctx, key, fieldHits, 1)
	pipe.Expire(ctx, key, time.Until(until)+stateRetention)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("store rate limit state in redis: %w", err)
	}

	rateLimitHitsTotal.Inc()

	state := &RateLimitState{
		Account:       account,
		CooldownUntil: until,
		RetryAfter:    retryAfter,
		LastUpdate:    now,
		Hits:          hits.Val(),
	}

	t.logger.Warn().
		Str("account", account).
		Dur("retry_after", retryAfter).
		Time("cooldown_until", until).
		Int64("hits", state.Hits).
		Msg("Rate limited by OpenPhone API - cooldown recorded")

	return state, nil
}

// CooldownRemaining returns how long account must still wait, or 0.
func (t *Tracker) CooldownRemaining(ctx context.Context, account string) (time.Duration, error) {
	state, err := t.GetState(ctx, account)
	if err != nil {
		return 0, err
	}
	return state.Remaining(), nil
}

// ShouldAllowRequest reports whether a request for account may be sent now.
// When it may not, the remaining cooldown is returned.
func (t *Tracker) ShouldAllowRequest(ctx context.Context, account string) (bool, time.Duration, error) {
	remaining, err := t.CooldownRemaining(ctx, account)
	if err != nil {
		return false, 0, err
	}
	if remaining > 0 {
		rateLimitBlocksTotal.Inc()
		t.logger.Debug().
			Str("account", account).
			Dur("remaining", remaining).
			Msg("Request held back by rate limit cooldown")
		return false, remaining, nil
	}
	return true, 0, nil
}

// Wait blocks until the cooldown for account has ended or ctx is done.
func (t *Tracker) Wait(ctx context.Context, account string) error {
	start := time.Now()
	defer func() { rateLimitWaitSeconds.Observe(time.Since(start).Seconds()) }()

	for {
		remaining, err := t.CooldownRemaining(ctx, account)
		if err != nil {
			return err
		}
		if remaining <= 0 {
			return nil
		}
		t.logger.Info().
			Str("account", account).
			Dur("remaining", remaining).
			Msg("Waiting for rate limit cooldown")
		if err := t.sleep(ctx, remaining); err != nil {
			return err
		}
	}
}

// Reset clears any recorded state for account.
func (t *Tracker) Reset(ctx context.Context, account string) error {
	if err := t.redis.Del(ctx, RedisKey(account)).Err(); err != nil {
		return fmt.Errorf("reset rate limit state: %w", err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
