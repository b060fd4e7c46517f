package ratelimit

import (
	"context"
	"time"
)

// WindowLimiter admits at most limit events per key within each fixed window of length interval.
type WindowLimiter interface {
	Allow(ctx context.Context, key string, limit int, interval time.Duration) (bool, error)
}
