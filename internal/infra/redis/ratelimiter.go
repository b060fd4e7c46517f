package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/notify-router/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "sender-throttle"

var allowScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
  return 0
end
return 1
`)

var _ ratelimit.WindowLimiter = (*WindowLimiter)(nil)

// WindowLimiter is a distributed fixed-window counter backed by Redis.
type WindowLimiter struct {
	client *goredis.Client
	now    func() time.Time
	script *goredis.Script
}

func NewWindowLimiter(client *goredis.Client) (*WindowLimiter, error) {
	return newWindowLimiter(client, time.Now)
}

func newWindowLimiter(client *goredis.Client, nowFn func() time.Time) (*WindowLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if nowFn == nil {
		nowFn = time.Now
	}

	return &WindowLimiter{
		client: client,
		now:    nowFn,
		script: allowScript,
	}, nil
}

func (r *WindowLimiter) Allow(ctx context.Context, key string, limit int, interval time.Duration) (bool, error) {
	if r == nil || r.client == nil || r.script == nil {
		return false, fmt.Errorf("rate limiter is not initialized")
	}

	normalizedKey := strings.TrimSpace(key)
	if normalizedKey == "" {
		return false, fmt.Errorf("rate limit key is required")
	}
	if limit < 1 {
		return false, fmt.Errorf("rate limit must be at least 1, got %d", limit)
	}

	windowSeconds := int64(interval / time.Second)
	if windowSeconds < 1 {
		windowSeconds = 1
	}

	if ctx == nil {
		ctx = context.Background()
	}

	window := r.now().UTC().Unix() / windowSeconds
	redisKey := fmt.Sprintf("%s:%s:%d:%d", keyPrefix, normalizedKey, windowSeconds, window)
	result, err := r.script.Run(ctx, r.client, []string{redisKey}, limit, windowSeconds).Int()
	if err != nil {
		return false, fmt.Errorf("failed to evaluate rate limit: %w", err)
	}

	return result == 1, nil
}
