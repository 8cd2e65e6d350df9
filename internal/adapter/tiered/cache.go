// Package tiered layers a replica-local card document cache over one shared
// by every gateway replica.
package tiered

import (
	"context"
	"log/slog"
	"time"

	"github.com/Strob0t/a2agate/internal/port/cache"
)

// Cache reads the local level first and falls back to the shared level,
// copying shared hits into the local one. An unreachable shared level reads
// as a miss so discovery keeps fetching from the origin.
type Cache struct {
	local    cache.Cache
	shared   cache.Cache
	localTTL time.Duration
}

var _ cache.Cache = (*Cache)(nil)

// New creates a tiered cache. localTTL caps how long a shared hit stays in
// the local level; zero keeps it for the shared entry's nominal TTL.
func New(local, shared cache.Cache, localTTL time.Duration) *Cache {
	return &Cache{local: local, shared: shared, localTTL: localTTL}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, found, err := c.local.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		return val, true, nil
	}

	val, found, err = c.shared.Get(ctx, key)
	if err != nil {
		slog.DebugContext(ctx, "shared card cache unavailable", "key", key, "error", err)
		return nil, false, nil
	}
	if !found {
		return nil, false, nil
	}
	_ = c.local.Set(ctx, key, val, c.localTTL)
	return val, true, nil
}

// Set writes the local level and then the shared level. A shared write
// failure is returned after the local write has already succeeded.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	localTTL := ttl
	if c.localTTL > 0 && (localTTL <= 0 || c.localTTL < localTTL) {
		localTTL = c.localTTL
	}
	if err := c.local.Set(ctx, key, value, localTTL); err != nil {
		return err
	}
	return c.shared.Set(ctx, key, value, ttl)
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.local.Delete(ctx, key); err != nil {
		return err
	}
	return c.shared.Delete(ctx, key)
}
