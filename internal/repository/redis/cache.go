package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Deletes KEYS[1] when the JSON snapshot stored there has a Version field
// lower than ARGV[1]. Unparseable snapshots are deleted too.
const luaDropIfOlder = `
local raw = redis.call('GET', KEYS[1])
if not raw then
  return 0
end
local ok, snap = pcall(cjson.decode, raw)
if (not ok) or type(snap) ~= 'table' or (tonumber(snap['Version']) or 0) < tonumber(ARGV[1]) then
  redis.call('DEL', KEYS[1])
  return 1
end
return 0
`

// Cache stores JSON snapshots in Redis. Loads of the same key are collapsed
// into one call per process.
type Cache struct {
	rdb       *redis.Client
	sf        singleflight.Group
	dropOlder *redis.Script
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{rdb: client, dropOlder: redis.NewScript(luaDropIfOlder)}
}

func GetJSON[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	var out T

	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return out, false, nil
	}
	if err != nil {
		return out, false, err
	}

	if err := json.Unmarshal(b, &out); err != nil {
		var zero T
		return zero, false, fmt.Errorf("decode %s: %w", key, err)
	}

	return out, true, nil
}

func SetJSON(ctx context.Context, c *Cache, key string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, key, string(b), ttl).Err()
}

// GetOrSetJSON returns the cached value for key, or calls loader once per
// key across concurrent callers and caches its result. Cache read errors
// fall through to the loader so a Redis outage degrades to direct reads.
// A caller whose ctx ends stops waiting for a load started by another.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	var zero T

	if v, ok, err := GetJSON[T](ctx, c, key); err == nil && ok {
		return v, nil
	}

	ch := c.sf.DoChan(key, func() (any, error) {
		if v, ok, err := GetJSON[T](ctx, c, key); err == nil && ok {
			return v, nil
		}

		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}

		_ = SetJSON(ctx, c, key, v, ttl)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("cache %s: unexpected %T", key, res.Val)
		}
		return v, nil
	}
}

func (c *Cache) InvalidateShow(ctx context.Context, showID int64) error {
	return c.rdb.Del(ctx, KeyShow(showID)).Err()
}

// InvalidateShowIfOlder drops the cached show when its version is below
// version. The compare and delete happen atomically in Redis.
func (c *Cache) InvalidateShowIfOlder(ctx context.Context, showID, version int64) (bool, error) {
	n, err := c.dropOlder.Run(ctx, c.rdb, []string{KeyShow(showID)}, version).Int64()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}
