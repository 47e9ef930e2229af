package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func exercise(t *testing.T, l Limiter, limit int) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= limit; i++ {
		res, err := l.Allow(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("Allow #%d: %v", i, err)
		}
		if !res.Allowed || res.Remaining != limit-i {
			t.Fatalf("Allow #%d = %+v", i, res)
		}
	}
	res, err := l.Allow(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("Allow over limit: %v", err)
	}
	if res.Allowed || res.Remaining != 0 || res.ResetAt.IsZero() {
		t.Fatalf("over limit = %+v", res)
	}

	other, err := l.Allow(ctx, "5.6.7.8")
	if err != nil || !other.Allowed {
		t.Fatalf("other client = %+v, %v", other, err)
	}
}

func TestMemoryLimiter(t *testing.T) {
	m := NewMemory(3, time.Minute)
	defer m.Close()

	now := time.Now()
	m.now = func() time.Time { return now }
	exercise(t, m, 3)

	now = now.Add(time.Minute)
	res, _ := m.Allow(context.Background(), "1.2.3.4")
	if !res.Allowed {
		t.Fatalf("new window should allow: %+v", res)
	}

	now = now.Add(2 * time.Minute)
	m.sweep()
	m.mu.Lock()
	n := len(m.windows)
	m.mu.Unlock()
	if n != 0 {
		t.Errorf("windows after sweep = %d", n)
	}
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedis(client, 3, time.Minute)
	exercise(t, l, 3)

	if ttl := mr.TTL("together:ratelimit:1.2.3.4"); ttl <= 0 || ttl > time.Minute {
		t.Errorf("window ttl = %v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	res, err := l.Allow(context.Background(), "1.2.3.4")
	if err != nil || !res.Allowed || res.Remaining != 2 {
		t.Fatalf("after window = %+v, %v", res, err)
	}
}

func TestRedisLimiterRepairsMissingExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	if err := mr.Set("together:ratelimit:9.9.9.9", "1"); err != nil {
		t.Fatal(err)
	}
	l := NewRedis(client, 5, time.Minute)
	if _, err := l.Allow(context.Background(), "9.9.9.9"); err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if ttl := mr.TTL("together:ratelimit:9.9.9.9"); ttl <= 0 {
		t.Errorf("expiry not restored, ttl = %v", ttl)
	}
}
