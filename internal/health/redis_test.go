package health

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRedisCheckerUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "localhost:1",
		DialTimeout: 100 * time.Millisecond,
	})
	defer client.Close()

	checker := NewRedisChecker(client)
	if err := checker.HealthCheck(context.Background()); err == nil {
		t.Error("expected error for unreachable Redis")
	}
}

func TestRedisCheckerPing(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "localhost:6379",
		DialTimeout: 200 * time.Millisecond,
	})
	defer client.Close()

	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skip("redis not available on localhost:6379")
	}

	checker := NewRedisChecker(client)
	if err := checker.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
}
