package cache

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis connects to a local Redis on DB 15 and skips the test when
// none is reachable. tests/integration covers the same paths with a container.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	// Ping to check connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	// Flush test DB before each test
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewManager(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	manager := NewManager(client)
	if manager == nil {
		t.Fatal("NewManager returned nil")
	}
	if manager.redis != client {
		t.Error("Manager redis client not set correctly")
	}
	if manager.StaleWindow != DefaultStaleWindow {
		t.Errorf("StaleWindow = %v, want %v", manager.StaleWindow, DefaultStaleWindow)
	}
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil)
}

func TestManager_SetAndGet(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := CacheKey{Endpoint: "contacts/ct_1", Account: "acct"}
	entry := &CacheEntry{
		Data:       []byte(`{"data":{"id":"ct_1"}}`),
		ETag:       `"abc123"`,
		Expires:    time.Now().Add(5 * time.Minute),
		StatusCode: 200,
		Headers:    http.Header{"Content-Type": []string{"application/json"}},
		CachedAt:   time.Now(),
	}

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	retrieved, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(retrieved.Data) != string(entry.Data) {
		t.Errorf("Data mismatch: got %s, want %s", retrieved.Data, entry.Data)
	}
	if retrieved.ETag != entry.ETag {
		t.Errorf("ETag mismatch: got %s, want %s", retrieved.ETag, entry.ETag)
	}
	if retrieved.IsExpired() {
		t.Error("fresh entry reported as expired")
	}

	other := CacheKey{Endpoint: "contacts/ct_1", Account: "someone-else"}
	if _, err := manager.Get(ctx, other); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("entry leaked across accounts: %v", err)
	}
}

func TestManager_Get_CacheMiss(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)

	_, err := manager.Get(context.Background(), CacheKey{Endpoint: "contacts/nope"})
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestManager_Get_ExpiredWithoutValidator(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()
	key := CacheKey{Endpoint: "contacts/ct_1"}

	entry := &CacheEntry{
		Data:    []byte(`{}`),
		Expires: time.Now().Add(-1 * time.Hour),
	}
	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss for expired entry, got %v", err)
	}
}

func TestManager_Get_StaleWithETag(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()
	key := CacheKey{Endpoint: "contacts/ct_1"}

	entry := &CacheEntry{
		Data:    []byte(`{}`),
		ETag:    `"v1"`,
		Expires: time.Now().Add(-1 * time.Second),
	}
	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.IsExpired() {
		t.Error("stale entry should report IsExpired")
	}
	if got.ETag != `"v1"` {
		t.Errorf("ETag = %q", got.ETag)
	}
}

func TestManager_Delete(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()
	key := CacheKey{Endpoint: "contacts/ct_1"}

	entry := &CacheEntry{Data: []byte(`{}`), Expires: time.Now().Add(5 * time.Minute)}
	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := manager.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after Delete, got %v", err)
	}
}

func TestManager_UpdateTTL(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()
	key := CacheKey{Endpoint: "contacts/ct_1"}

	entry := &CacheEntry{Data: []byte(`{}`), ETag: `"v1"`, Expires: time.Now().Add(-1 * time.Second)}
	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	newExpires := time.Now().Add(10 * time.Minute)
	if err := manager.UpdateTTL(ctx, key, newExpires); err != nil {
		t.Fatalf("UpdateTTL failed: %v", err)
	}

	retrieved, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get after UpdateTTL failed: %v", err)
	}
	diff := retrieved.Expires.Sub(newExpires)
	if diff < -1*time.Second || diff > 1*time.Second {
		t.Errorf("Expires not updated: got %v, want %v", retrieved.Expires, newExpires)
	}
	if retrieved.IsExpired() {
		t.Error("entry still stale after UpdateTTL")
	}
}

func TestManager_Purge(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	fresh := func() *CacheEntry {
		return &CacheEntry{Data: []byte(`{}`), Expires: time.Now().Add(time.Minute)}
	}
	for _, k := range []CacheKey{
		{Endpoint: "contacts/1", Account: "a"},
		{Endpoint: "contacts/2", Account: "a"},
		{Endpoint: "contacts/1", Account: "b"},
	} {
		if err := manager.Set(ctx, k, fresh()); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	n, err := manager.Purge(ctx, "a")
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Purge deleted %d keys, want 2", n)
	}
	if _, err := manager.Get(ctx, CacheKey{Endpoint: "contacts/1", Account: "b"}); err != nil {
		t.Errorf("Purge removed another account's entry: %v", err)
	}
}

func TestManager_Set_NilEntry(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)

	if err := manager.Set(context.Background(), CacheKey{Endpoint: "x"}, nil); err == nil {
		t.Error("Set with nil entry should return error")
	}
}
