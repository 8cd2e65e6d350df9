// Package natskv implements the cache port on a NATS JetStream key-value
// bucket so gateway replicas share discovered card documents.
package natskv

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/a2agate/internal/port/cache"
)

// Cache wraps a JetStream KeyValue bucket.
type Cache struct {
	kv jetstream.KeyValue
}

var _ cache.Cache = (*Cache)(nil)

// New creates a cache on kv.
func New(kv jetstream.KeyValue) *Cache {
	return &Cache{kv: kv}
}

// Open creates or updates bucket with a bucket-wide TTL and returns a cache
// on it.
func Open(ctx context.Context, js jetstream.JetStream, bucket string, ttl time.Duration) (*Cache, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "discovered agent card documents",
		TTL:         ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("kv bucket %s: %w", bucket, err)
	}
	return New(kv), nil
}

// kvKey maps a cache key onto the KV key alphabet. Document keys embed URLs,
// which contain characters NATS rejects.
func kvKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := c.kv.Get(ctx, kvKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return entry.Value(), true, nil
}

// Set stores value. Expiry is governed by the bucket TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	_, err := c.kv.Put(ctx, kvKey(key), value)
	return err
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(ctx, kvKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}
