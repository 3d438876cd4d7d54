package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// JSONCache is a read-through cache storing JSON documents in Redis.
// Concurrent misses on one key share a single loader call.
type JSONCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewJSONCache builds the cache. A nil client disables caching; loaders run every time.
func NewJSONCache(client *redis.Client, ttl time.Duration) *JSONCache {
	return &JSONCache{client: client, ttl: ttl}
}

// Fetch decodes the cached value for key into dest, populating it with loader on a miss.
// Redis failures degrade to calling loader directly.
func (c *JSONCache) Fetch(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("platform/cache: loader required")
	}
	if c == nil || c.client == nil {
		return load(ctx, dest, loader)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return load(ctx, dest, loader)
	}

	ch := c.group.DoChan(key, func() (any, error) {
		gen, genErr := c.generation(ctx, key)
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if genErr == nil {
			_ = c.store(ctx, key, gen, raw)
		}
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.([]byte), dest)
	}
}

// Delete removes keys and bumps their generation so loads already in flight
// are not written back.
func (c *JSONCache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || c.client == nil || len(keys) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, key := range keys {
			p.Del(ctx, key)
			p.Incr(ctx, generationKey(key))
			p.Expire(ctx, generationKey(key), generationTTL)
		}
		return nil
	})
	return err
}

// generationTTL outlives any single load; an expired generation only causes a skipped fill.
const generationTTL = 24 * time.Hour

func generationKey(key string) string {
	return key + ":gen"
}

func (c *JSONCache) generation(ctx context.Context, key string) (string, error) {
	gen, err := c.client.Get(ctx, generationKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return gen, err
}

// store writes raw only if the generation still equals gen.
func (c *JSONCache) store(ctx context.Context, key, gen string, raw []byte) error {
	genKey := generationKey(key)
	return c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStaleLoad
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, raw, c.ttl)
			return nil
		})
		return err
	}, genKey)
}

var errStaleLoad = errors.New("platform/cache: invalidated during load")

func load(ctx context.Context, dest any, loader func(context.Context) (any, error)) error {
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
