package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis counts hits with INCR and opens the window on the first hit, so all
// API instances share one budget per client.
type Redis struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewRedis(client *redis.Client, limit int, window time.Duration) *Redis {
	return &Redis{client: client, limit: limit, window: window, prefix: "together:ratelimit:"}
}

func (r *Redis) Allow(ctx context.Context, key string) (Result, error) {
	k := r.prefix + key

	n, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return Result{}, err
	}
	if n == 1 {
		if err := r.client.PExpire(ctx, k, r.window).Err(); err != nil {
			return Result{}, err
		}
	}

	ttl, err := r.client.PTTL(ctx, k).Result()
	if err != nil {
		return Result{}, err
	}
	if ttl < 0 {
		// counter without expiry, e.g. the process died between INCR and PEXPIRE
		if err := r.client.PExpire(ctx, k, r.window).Err(); err != nil {
			return Result{}, err
		}
		ttl = r.window
	}

	remaining := r.limit - int(n)
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: int(n) <= r.limit, Remaining: remaining, ResetAt: time.Now().Add(ttl)}, nil
}
