// Package cache provides the time-boxed key/value stores behind cached sender reads.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is the staleness horizon of cached sender reads.
const DefaultTTL = 12 * time.Hour

// Store keeps encoded values for a bounded time. Entries expire passively.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

var _ Store = Nop{}

// Nop never stores anything, so every read goes to the backing repository.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Nop) Set(context.Context, string, []byte) error { return nil }
