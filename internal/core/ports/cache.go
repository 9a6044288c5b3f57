package ports

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by CacheTransport.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// CacheTransport is the key-value store behind the rate cache. Every entry is
// written with an explicit TTL and vanishes on its own once it expires.
type CacheTransport interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every key starting with prefix and reports how many
	// were removed. The backend may hold keys owned by other components.
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
	// Info returns backend statistics as flat string pairs.
	Info(ctx context.Context) (map[string]string, error)
	// CountKeys counts live keys starting with prefix.
	CountKeys(ctx context.Context, prefix string) (int64, error)
	// Compact asks the backend to release memory held by expired entries.
	Compact(ctx context.Context) error
	// Backend names the implementation, e.g. "redis".
	Backend() string
}
