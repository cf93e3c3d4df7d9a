package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimitStore implements RateLimitStore backed by Redis, so the
// per-IP request budget survives restarts and is shared across replicas.
// It uses a fixed window counter: INCR on the key, with the window TTL set
// when the key is first created.
type RedisRateLimitStore struct {
	client  *redis.Client
	metrics *Metrics
}

// NewRedisRateLimitStore creates a new Redis-backed rate limit store.
func NewRedisRateLimitStore(client *redis.Client) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client}
}

// WithMetrics attaches a metrics recorder for Redis failure counting.
func (s *RedisRateLimitStore) WithMetrics(m *Metrics) *RedisRateLimitStore {
	s.metrics = m
	return s
}

// Allow checks if a request from the given key should be allowed.
// Implements the RateLimitStore interface.
//
// On Redis errors the store fails open: blocking legitimate traffic because
// the limiter backend is down is worse than letting a burst through.
// Failures are counted in metrics and logged.
func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, config RateLimitConfig) (bool, int, int) {
	redisKey := "ratelimit:" + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, config.WindowDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		s.failOpen(ctx, err)
		return true, config.RequestsPerWindow, 0
	}

	count := int(incr.Val())
	if count <= config.RequestsPerWindow {
		return true, config.RequestsPerWindow - count, 0
	}

	ttl, err := s.client.TTL(ctx, redisKey).Result()
	if err != nil || ttl <= 0 {
		// Key exists without TTL (or TTL lookup failed); fall back to the
		// full window so the counter still expires.
		ttl = config.WindowDuration
	}

	retryAfter := int(ttl / time.Second)
	if retryAfter <= 0 {
		retryAfter = 1
	}
	return false, 0, retryAfter
}

func (s *RedisRateLimitStore) failOpen(ctx context.Context, err error) {
	if s.metrics != nil {
		s.metrics.RateLimitRedisErrorInc()
	}
	slog.WarnContext(ctx, "rate limit store unavailable, failing open", "error", err)
}
