package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// FixedWindowLimiter counts requests per key in fixed windows:
// INCR key; if count == 1 then PEXPIRE key window.
// The key should already include identity + route; callers decide the
// bucketing policy.
type FixedWindowLimiter struct {
	rdb *goredis.Client
}

func NewFixedWindowLimiter(c *Client) *FixedWindowLimiter {
	if c == nil {
		return &FixedWindowLimiter{rdb: nil}
	}
	return &FixedWindowLimiter{rdb: c.rdb}
}

// Allow reports whether the request fits the window, and how long to wait
// when it does not. Without Redis the limiter fails open.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	if limit <= 0 {
		return true, 0, nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if l.rdb == nil {
		return true, 0, nil
	}

	// Lua keeps INCR + first-hit expiry atomic; returns {count, ttl_ms}.
	const lua = `
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {c, ttl}
`
	res, err := l.rdb.Eval(ctx, lua, []string{key}, window.Milliseconds()).Result()
	if err != nil {
		return false, 0, fmt.Errorf("ratelimit redis eval: %w", err)
	}

	arr, ok := res.([]any)
	if !ok || len(arr) != 2 {
		return false, 0, fmt.Errorf("ratelimit redis eval: unexpected result type")
	}
	count, ok := arr[0].(int64)
	if !ok {
		return false, 0, fmt.Errorf("ratelimit redis eval: unexpected count type")
	}
	ttlms, _ := arr[1].(int64)

	if count <= int64(limit) {
		return true, 0, nil
	}

	retryAfter := time.Duration(ttlms) * time.Millisecond
	if retryAfter <= 0 {
		retryAfter = window
	}
	return false, retryAfter, nil
}
