package middleware

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisTestClient connects to a local Redis or skips the test.
func redisTestClient(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available, skipping integration test")
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// TestRedisRateLimitStore_Allow tests the Redis rate limiter with a real Redis instance.
func TestRedisRateLimitStore_Allow(t *testing.T) {
	client := redisTestClient(t)

	store := NewRedisRateLimitStore(client)
	config := RateLimitConfig{
		RequestsPerWindow: 5,
		WindowDuration:    time.Minute,
	}

	testKey := "test-redis-key-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	ctx := context.Background()

	// Requests are allowed up to the limit
	for i := 0; i < 5; i++ {
		allowed, remaining, _ := store.Allow(ctx, testKey, config)
		if !allowed {
			t.Errorf("request %d should be allowed", i+1)
		}
		expectedRemaining := 4 - i
		if remaining != expectedRemaining {
			t.Errorf("request %d: expected remaining=%d, got %d", i+1, expectedRemaining, remaining)
		}
	}

	// The 6th request is blocked
	allowed, remaining, retryAfter := store.Allow(ctx, testKey, config)
	if allowed {
		t.Error("6th request should be blocked")
	}
	if remaining != 0 {
		t.Errorf("expected remaining=0 when blocked, got %d", remaining)
	}
	if retryAfter <= 0 || retryAfter > 60 {
		t.Errorf("expected retryAfter between 1 and 60, got %d", retryAfter)
	}

	client.Del(ctx, "ratelimit:"+testKey)
}

// TestRedisRateLimitStore_DifferentKeys tests that different keys have independent limits.
func TestRedisRateLimitStore_DifferentKeys(t *testing.T) {
	client := redisTestClient(t)

	store := NewRedisRateLimitStore(client)
	config := RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Minute,
	}

	key1 := "test-redis-key1-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	key2 := "test-redis-key2-" + strconv.FormatInt(time.Now().UnixNano()+1, 10)
	ctx := context.Background()

	if allowed, _, _ := store.Allow(ctx, key1, config); !allowed {
		t.Error("key1 first request should be allowed")
	}
	if allowed, _, _ := store.Allow(ctx, key2, config); !allowed {
		t.Error("key2 should have an independent budget")
	}
	if allowed, _, _ := store.Allow(ctx, key1, config); allowed {
		t.Error("key1 second request should be blocked")
	}

	client.Del(ctx, "ratelimit:"+key1, "ratelimit:"+key2)
}

// TestRedisRateLimitStore_FailOpen verifies that an unreachable Redis lets
// requests through instead of blocking legitimate traffic.
func TestRedisRateLimitStore_FailOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "localhost:1", // nothing listens here
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	store := NewRedisRateLimitStore(client)
	config := RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute}

	allowed, _, _ := store.Allow(context.Background(), "any-key", config)
	if !allowed {
		t.Error("expected fail-open when Redis is unreachable")
	}
}
