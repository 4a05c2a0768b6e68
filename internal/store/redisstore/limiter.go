// Package redisstore holds the Redis-backed pieces shared between server
// replicas.
package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims the window, then records the attempt only when the
// window still has room. Returns 1 when allowed.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= max then
	return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// LoginLimiter is a sliding-window rate limiter shared by all replicas.
type LoginLimiter struct {
	rdb    redis.Scripter
	prefix string
	window time.Duration
	max    int
}

func NewLoginLimiter(rdb redis.Scripter, window time.Duration, max int) *LoginLimiter {
	return &LoginLimiter{rdb: rdb, prefix: "ecommunity:ratelimit:", window: window, max: max}
}

func (l *LoginLimiter) Allow(ctx context.Context, key string, now time.Time) (bool, error) {
	res, err := slidingWindow.Run(ctx, l.rdb, []string{l.prefix + key},
		now.UnixMilli(),
		l.window.Milliseconds(),
		l.max,
		strconv.FormatInt(now.UnixNano(), 10)+"-"+uuid.NewString(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return res == 1, nil
}
