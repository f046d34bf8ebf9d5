package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/srgjo27/ticket_admission/internal/core/ports"
)

// fixedWindowScript counts one attempt and starts the window on the first.
// Returns {count, pttl}.
const fixedWindowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {current, ttl}
`

// RedisLimiter is a fixed-window counter shared by every instance.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (ports.RateLimitDecision, error) {
	res, err := l.client.Eval(ctx, fixedWindowScript, []string{redisKey(key)}, l.window.Milliseconds()).Slice()
	if err != nil {
		return ports.RateLimitDecision{}, fmt.Errorf("rate limit eval: %w", err)
	}

	if len(res) != 2 {
		return ports.RateLimitDecision{}, fmt.Errorf("rate limit eval: unexpected reply %v", res)
	}

	count, ok1 := res[0].(int64)
	ttl, ok2 := res[1].(int64)
	if !ok1 || !ok2 {
		return ports.RateLimitDecision{}, fmt.Errorf("rate limit eval: unexpected reply %v", res)
	}

	return decide(int(count), l.limit, time.Duration(ttl)*time.Millisecond), nil
}

func redisKey(key string) string {
	return "ratelimit:join:" + key
}

func decide(count, limit int, resetIn time.Duration) ports.RateLimitDecision {
	if count > limit {
		if resetIn <= 0 {
			resetIn = time.Millisecond
		}
		return ports.RateLimitDecision{Allowed: false, RetryAfter: resetIn}
	}

	return ports.RateLimitDecision{Allowed: true, Remaining: limit - count}
}
