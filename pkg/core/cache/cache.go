package cache

import (
	"context"
	"time"
)

// Cache is a short lived key/value store. A missing or expired key is
// reported as (nil, false, nil); err is reserved for backend failures.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
}

// Closer is implemented by caches owning goroutines or connections.
type Closer interface {
	Close() error
}
