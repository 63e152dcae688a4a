package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const resolveCachePrefix = "qr:resolve:"

// ResolveTarget is the cached outcome of a successful token resolution.
type ResolveTarget struct {
	ID  uuid.UUID `json:"id"`
	URL string    `json:"url"`
}

// ResolveCache caches token resolutions for the public redirect path.
// Get returns (nil, nil) on a cache miss.
type ResolveCache interface {
	Get(ctx context.Context, token string) (*ResolveTarget, error)
	Set(ctx context.Context, token string, target ResolveTarget) error
	Invalidate(ctx context.Context, token string) error
}

type redisResolveCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResolveCache returns a Redis-backed ResolveCache with the given entry TTL.
func NewResolveCache(client *redis.Client, ttl time.Duration) ResolveCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &redisResolveCache{client: client, ttl: ttl}
}

func (c *redisResolveCache) Get(ctx context.Context, token string) (*ResolveTarget, error) {
	data, err := c.client.Get(ctx, resolveCachePrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var target ResolveTarget
	if err := json.Unmarshal(data, &target); err != nil {
		return nil, err
	}
	return &target, nil
}

func (c *redisResolveCache) Set(ctx context.Context, token string, target ResolveTarget) error {
	data, err := json.Marshal(target)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, resolveCachePrefix+token, data, c.ttl).Err()
}

func (c *redisResolveCache) Invalidate(ctx context.Context, token string) error {
	return c.client.Del(ctx, resolveCachePrefix+token).Err()
}
