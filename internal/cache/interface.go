package cache

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache miss")

// CollectionCache holds marshaled full-collection snapshots keyed by
// domain name. It is a read-path optimization only; mutation paths
// always read from storage and then refresh the cache.
type CollectionCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}
