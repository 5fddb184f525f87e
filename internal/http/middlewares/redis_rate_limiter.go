package middlewares

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed window counter shared by every API instance.
// The first hit in a window sets the expiry, later hits only increment.
type RedisLimiter struct {
	rdb    redis.Cmdable
	limit  int
	window time.Duration
	prefix string
}

func NewRedisLimiter(rdb redis.Cmdable, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		prefix: "labsmonitor:ratelimit:",
	}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := rl.prefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := rl.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		ttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return false, 0, err
	}

	// a key without expiry was just created by this INCR
	retry := ttl.Val()
	if retry < 0 {
		if err := rl.rdb.PExpire(ctx, k, rl.window).Err(); err != nil {
			return false, 0, err
		}
		retry = rl.window
	}

	if incr.Val() > int64(rl.limit) {
		return false, retry, nil
	}
	return true, 0, nil
}
