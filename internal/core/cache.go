// AngelaMos | 2026
// cache.go

package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/carterperez-dev/storefront-api/internal/metrics"
)

// Cache is a read-through JSON cache on Redis. Concurrent misses for the same
// key share one load. Redis failures degrade to a direct load.
type Cache struct {
	rdb    *redis.Client
	name   string
	prefix string
	ttl    time.Duration
	sf     singleflight.Group
}

func NewCache(rdb *redis.Client, name string, ttl time.Duration) *Cache {
	return &Cache{
		rdb:    rdb,
		name:   name,
		prefix: "cache:" + name + ":",
		ttl:    ttl,
	}
}

func (c *Cache) key(id string) string {
	return c.prefix + id
}

func (c *Cache) getOrLoad(
	ctx context.Context,
	id string,
	load func(context.Context) ([]byte, error),
) ([]byte, error) {
	key := c.key(id)

	b, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		metrics.RecordCacheLookup(c.name, true)
		return b, nil
	}
	if !errors.Is(err, redis.Nil) {
		slog.WarnContext(ctx, "cache read failed",
			"cache", c.name,
			"key", key,
			"error", err,
		)
	}
	metrics.RecordCacheLookup(c.name, false)

	v, err, _ := c.sf.Do(key, func() (any, error) {
		loaded, loadErr := load(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		if setErr := c.rdb.Set(ctx, key, loaded, c.ttl).Err(); setErr != nil {
			slog.WarnContext(ctx, "cache write failed",
				"cache", c.name,
				"key", key,
				"error", setErr,
			)
		}
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]byte), nil //nolint:errcheck // singleflight only stores []byte here
}

func (c *Cache) Invalidate(ctx context.Context, ids ...string) {
	if len(ids) == 0 {
		return
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.key(id)
	}

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		slog.WarnContext(ctx, "cache invalidate failed",
			"cache", c.name,
			"keys", keys,
			"error", err,
		)
	}
}

// GetOrLoadJSON returns the cached value for id, or calls load and stores
// its JSON encoding. Load errors are never cached.
func GetOrLoadJSON[T any](
	ctx context.Context,
	c *Cache,
	id string,
	load func(ctx context.Context) (*T, error),
) (*T, error) {
	b, err := c.getOrLoad(ctx, id, func(ctx context.Context) ([]byte, error) {
		v, loadErr := load(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		return json.Marshal(v)
	})
	if err != nil {
		return nil, err
	}

	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		c.Invalidate(ctx, id)
		return nil, fmt.Errorf("decode cached %s: %w", c.name, err)
	}

	return &out, nil
}
