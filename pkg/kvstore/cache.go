package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/ritzau/link-analyzer/pkg/logging"
	"golang.org/x/sync/singleflight"
)

// Cache layers get-or-populate over a Store. Concurrent populations of one
// key collapse into a single call.
type Cache struct {
	store  Store
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewCache wraps store; entries expire after ttl.
func NewCache(store Store, ttl time.Duration) *Cache {
	return &Cache{store: store, ttl: ttl, logger: logging.New("kvstore")}
}

// Store returns the underlying store
func (c *Cache) Store() Store { return c.store }

// GetOrPopulate returns the cached value for key, or calls populate, stores
// its JSON encoding and returns it. Store failures degrade to populating
// without caching; only populate's error is returned.
func GetOrPopulate[T any](ctx context.Context, c *Cache, key string, populate func(context.Context) (T, error)) (T, error) {
	if v, ok := lookup[T](ctx, c, key); ok {
		return v, nil
	}

	res, err, shared := c.group.Do(key, func() (any, error) {
		if v, ok := lookup[T](ctx, c, key); ok {
			return v, nil
		}
		v, err := populate(ctx)
		if err != nil {
			return v, err
		}
		if raw, err := json.Marshal(v); err != nil {
			c.logger.Warn("cache encode failed", "key", key, "error", err)
		} else if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
			c.logger.Warn("cache write failed", "key", key, "error", err)
		}
		return v, nil
	})
	if shared {
		c.logger.Debug("cache population shared", "key", key)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

func lookup[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var v T
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("cache read failed", "key", key, "error", err)
		}
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		c.logger.Warn("dropping undecodable cache entry", "key", key, "error", err)
		_ = c.store.Delete(ctx, key)
		return v, false
	}
	return v, true
}
