package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisLimiter(t *testing.T, mr *miniredis.Miniredis, limit int) *RedisFixedWindow {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter, err := NewRedisFixedWindow(client, "test:ratelimit", limit, time.Minute)
	if err != nil {
		t.Fatalf("new redis limiter: %v", err)
	}
	return limiter
}

func TestRedisFixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter := newRedisLimiter(t, mr, 2)
	if !limiter.Allow("ip-1") || !limiter.Allow("ip-1") {
		t.Fatalf("first two requests should pass")
	}
	if limiter.Allow("ip-1") {
		t.Fatalf("third request should be blocked")
	}
	if !limiter.Allow("ip-2") {
		t.Fatalf("other keys have their own quota")
	}
}

func TestRedisFixedWindowFailClosed(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter := newRedisLimiter(t, mr, 1)
	mr.Close()
	if limiter.Allow("ip-1") {
		t.Fatalf("limiter should fail closed on redis errors")
	}
}

func TestRedisFixedWindowRequiresClient(t *testing.T) {
	if _, err := NewRedisFixedWindow(nil, "", 1, time.Second); err == nil {
		t.Fatalf("expected constructor error for nil client")
	}
}

func TestMemoryFixedWindowResetsEachWindow(t *testing.T) {
	limiter, err := NewMemoryFixedWindow(1, time.Minute)
	if err != nil {
		t.Fatalf("new memory limiter: %v", err)
	}
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	if !limiter.Allow("") {
		t.Fatalf("first request should pass")
	}
	if limiter.Allow("  ") {
		t.Fatalf("blank keys share one bucket")
	}
	now = now.Add(time.Minute)
	if !limiter.Allow("") {
		t.Fatalf("new window should reset quota")
	}
	if _, err := NewMemoryFixedWindow(0, time.Second); err == nil {
		t.Fatalf("expected error for zero limit")
	}
}
