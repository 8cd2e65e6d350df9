// Package ristretto implements the cache port using dgraph-io/ristretto as
// an in-process cache for discovered AgentCard documents.
package ristretto

import (
	"bytes"
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/Strob0t/a2agate/internal/port/cache"
)

// Cache wraps a ristretto cache.
type Cache struct {
	c *ristretto.Cache[string, []byte]
}

var _ cache.Cache = (*Cache)(nil)

// New creates a ristretto-backed cache. maxCostBytes is the maximum total
// size of cached values in bytes.
func New(maxCostBytes int64) (*Cache, error) {
	counters := maxCostBytes / 100 * 10 // ~10x expected items
	if counters < 1000 {
		counters = 1000
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: counters,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

// Get retrieves a copy of a cached value.
func (c *Cache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	val, found := c.c.Get(key)
	if !found {
		return nil, false, nil
	}
	return bytes.Clone(val), true, nil
}

// Set stores a copy of value with the given TTL; ttl <= 0 means no expiry.
// It waits for the write buffer so a following Get observes the value. A
// value larger than the whole cache is silently not stored.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	c.c.SetWithTTL(key, bytes.Clone(value), int64(len(value)), ttl)
	c.c.Wait()
	return nil
}

// Delete removes a value from the cache.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Del(key)
	return nil
}

// Close shuts down the cache and releases resources.
func (c *Cache) Close() {
	c.c.Close()
}
