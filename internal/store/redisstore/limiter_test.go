package redisstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("APP_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("APP_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	return rdb
}

func TestLoginLimiterSlidingWindow(t *testing.T) {
	rdb := testClient(t)
	l := NewLoginLimiter(rdb, time.Minute, 3)
	ctx := context.Background()
	key := "test:" + uuid.NewString()
	t.Cleanup(func() { _ = rdb.Del(ctx, l.prefix+key).Err() })

	start := time.Now()
	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, key, start.Add(time.Duration(i)*time.Millisecond))
		if err != nil || !ok {
			t.Fatalf("attempt %d: ok=%v err=%v", i, ok, err)
		}
	}
	if ok, _ := l.Allow(ctx, key, start.Add(10*time.Millisecond)); ok {
		t.Fatalf("fourth attempt inside the window should be refused")
	}
	if ok, err := l.Allow(ctx, key, start.Add(time.Minute+5*time.Millisecond)); err != nil || !ok {
		t.Fatalf("attempt after the window should pass: ok=%v err=%v", ok, err)
	}
}
