package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/addressbook/internal/repository"
)

const keyPrefix = "address:render:"

// RenderCache implements repository.RenderCache using Redis. All renderings of
// one address share a hash so that a single DEL invalidates them.
type RenderCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRenderCache creates a new Redis-backed render cache.
func NewRenderCache(client *redis.Client, ttl time.Duration) *RenderCache {
	return &RenderCache{
		client: client,
		ttl:    ttl,
	}
}

func hashKey(addressID int64) string {
	return keyPrefix + strconv.FormatInt(addressID, 10)
}

func fieldKey(k repository.RenderKey) string {
	return strconv.Itoa(k.StoreID) + ":" + k.Variant
}

// Get returns a cached rendering.
func (c *RenderCache) Get(ctx context.Context, key repository.RenderKey) (string, bool, error) {
	v, err := c.client.HGet(ctx, hashKey(key.AddressID), fieldKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis hget render: %w", err)
	}
	return v, true, nil
}

// Set stores a rendering and refreshes the TTL of the address hash.
func (c *RenderCache) Set(ctx context.Context, key repository.RenderKey, value string) error {
	hk := hashKey(key.AddressID)

	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, hk, fieldKey(key), value)
	if c.ttl > 0 {
		pipe.Expire(ctx, hk, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis hset render: %w", err)
	}
	return nil
}

// InvalidateAddress drops every rendering of an address.
func (c *RenderCache) InvalidateAddress(ctx context.Context, addressID int64) error {
	if err := c.client.Del(ctx, hashKey(addressID)).Err(); err != nil {
		return fmt.Errorf("redis del render: %w", err)
	}
	return nil
}
