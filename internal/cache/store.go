package cache

import (
	"context"
	"time"
)

// Store is the small key/value surface shared by rate limiting and the
// domain policy. RedisStore and DatabaseStore both satisfy it.
type Store interface {
	// IncrementWithTTL bumps a fixed-window counter and returns the new
	// count with the time left in the window. The first increment opens
	// the window.
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	// Set stores value; ttl <= 0 keeps it until deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get reports a miss as (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}

var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*DatabaseStore)(nil)
)
