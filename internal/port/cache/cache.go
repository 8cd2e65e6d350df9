// Package cache defines the port interface for caching fetched AgentCard
// documents.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key-value cache. Implementations must not let
// callers alias stored values.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// DocumentKey is the cache key for the card document served at url.
func DocumentKey(url string) string {
	return "card:" + url
}
