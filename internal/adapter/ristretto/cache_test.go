package ristretto

import (
	"context"
	"testing"
	"time"

	"github.com/Strob0t/a2agate/internal/port/cache"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(1 << 20)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestCacheCompliance(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		if err := c.Set(ctx, cache.DocumentKey("http://bob"), []byte(`{"name":"bob"}`), time.Minute); err != nil {
			t.Fatal(err)
		}
		val, found, err := c.Get(ctx, cache.DocumentKey("http://bob"))
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after Set")
		}
		if string(val) != `{"name":"bob"}` {
			t.Fatalf("unexpected value %s", val)
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		_, found, err := c.Get(ctx, "nonexistent-key")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss for nonexistent key")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = c.Set(ctx, "del-key", []byte("del-val"), time.Minute)
		if err := c.Delete(ctx, "del-key"); err != nil {
			t.Fatal(err)
		}
		if _, found, _ := c.Get(ctx, "del-key"); found {
			t.Fatal("expected miss after Delete")
		}
	})

	t.Run("DeleteNonexistent", func(t *testing.T) {
		if err := c.Delete(ctx, "never-existed"); err != nil {
			t.Fatal("Delete of nonexistent key should not error")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		_ = c.Set(ctx, "ow-key", []byte("v1"), time.Minute)
		_ = c.Set(ctx, "ow-key", []byte("v2"), time.Minute)
		val, found, _ := c.Get(ctx, "ow-key")
		if !found || string(val) != "v2" {
			t.Fatalf("expected v2 after overwrite, got %q (found=%v)", val, found)
		}
	})

	t.Run("NoAliasing", func(t *testing.T) {
		src := []byte("original")
		_ = c.Set(ctx, "alias-key", src, time.Minute)
		src[0] = 'X'

		got, _, _ := c.Get(ctx, "alias-key")
		got[1] = 'Y'

		again, _, _ := c.Get(ctx, "alias-key")
		if string(again) != "original" {
			t.Fatalf("cached value aliased: %q", again)
		}
	})
}

func TestCacheTTLExpiry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	_ = c.Set(ctx, "short", []byte("v"), 50*time.Millisecond)
	time.Sleep(200 * time.Millisecond)

	if _, found, _ := c.Get(ctx, "short"); found {
		t.Fatal("expected entry to expire")
	}
}
