//go:build integration

package ratelimit

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}
	return client, cleanup
}

func TestTracker_Integration_SharedCooldown(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	first := NewTracker(redisClient, logger)
	second := NewTracker(redisClient, logger)
	ctx := context.Background()

	if _, err := first.RecordRateLimit(ctx, "acct", 15*time.Second); err != nil {
		t.Fatalf("RecordRateLimit() error = %v", err)
	}

	allowed, wait, err := second.ShouldAllowRequest(ctx, "acct")
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if allowed {
		t.Error("second tracker did not see the cooldown")
	}
	if wait < 10*time.Second {
		t.Errorf("wait = %v, want about 15s", wait)
	}
}

func TestTracker_Integration_ConcurrentHits(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	tracker := NewTracker(redisClient, zerolog.Nop())
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tracker.RecordRateLimit(ctx, "acct", time.Second); err != nil {
				t.Errorf("RecordRateLimit() error = %v", err)
			}
		}()
	}
	wg.Wait()

	state, err := tracker.GetState(ctx, "acct")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Hits != n {
		t.Errorf("Hits = %d, want %d", state.Hits, n)
	}
}

func TestTracker_Integration_StateExpires(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	tracker := NewTracker(redisClient, zerolog.Nop())
	ctx := context.Background()

	if _, err := tracker.RecordRateLimit(ctx, "acct", time.Second); err != nil {
		t.Fatalf("RecordRateLimit() error = %v", err)
	}

	ttl, err := redisClient.TTL(ctx, RedisKey("acct")).Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= stateRetention-time.Minute || ttl > stateRetention+2*time.Second {
		t.Errorf("TTL = %v, want about %v", ttl, stateRetention)
	}
}
