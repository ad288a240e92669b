// Package redis implements the recipe caches on Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/azha0089/HealthyLife/internal/domain"
)

const (
	refKeyPrefix     = "recipe:ref:"
	refIndexPrefix   = "recipe:refkeys:"
	popularKeyPrefix = "recipe:popular:"
)

// RefCache implements repository.RecipeRefCache. Each resolved raw value is
// also indexed under its canonical key so a delete can evict every alias.
type RefCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRefCache creates a Redis-backed identifier resolution cache.
func NewRefCache(client *redis.Client, ttl time.Duration) *RefCache {
	return &RefCache{client: client, ttl: ttl}
}

// Get returns the cached ref for raw, or nil on a miss.
func (c *RefCache) Get(ctx context.Context, raw string) (*domain.RecipeRef, error) {
	data, err := c.client.Get(ctx, refKeyPrefix+raw).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get recipe ref: %w", err)
	}

	var ref domain.RecipeRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return nil, fmt.Errorf("unmarshal recipe ref: %w", err)
	}
	return &ref, nil
}

// Set caches the resolution of raw.
func (c *RefCache) Set(ctx context.Context, raw string, ref *domain.RecipeRef) error {
	data, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("marshal recipe ref: %w", err)
	}

	index := refIndexPrefix + ref.Key
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, refKeyPrefix+raw, data, c.ttl)
		pipe.SAdd(ctx, index, raw)
		pipe.Expire(ctx, index, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set recipe ref: %w", err)
	}
	return nil
}

// Evict drops every raw value cached as resolving to key.
func (c *RefCache) Evict(ctx context.Context, key string) error {
	index := refIndexPrefix + key
	raws, err := c.client.SMembers(ctx, index).Result()
	if err != nil {
		return fmt.Errorf("redis list recipe refs: %w", err)
	}

	keys := make([]string, 0, len(raws)+1)
	for _, raw := range raws {
		keys = append(keys, refKeyPrefix+raw)
	}
	keys = append(keys, index)

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis evict recipe refs: %w", err)
	}
	return nil
}

// PopularCache implements repository.PopularRecipeCache, one entry per
// requested limit.
type PopularCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPopularCache creates a Redis-backed popular recipes cache.
func NewPopularCache(client *redis.Client, ttl time.Duration) *PopularCache {
	return &PopularCache{client: client, ttl: ttl}
}

func popularKey(limit int) string {
	return popularKeyPrefix + strconv.Itoa(limit)
}

// Get returns the cached listing for limit.
func (c *PopularCache) Get(ctx context.Context, limit int) ([]domain.Recipe, bool, error) {
	data, err := c.client.Get(ctx, popularKey(limit)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get popular recipes: %w", err)
	}

	var recipes []domain.Recipe
	if err := json.Unmarshal(data, &recipes); err != nil {
		return nil, false, fmt.Errorf("unmarshal popular recipes: %w", err)
	}
	return recipes, true, nil
}

// Set caches the listing for limit.
func (c *PopularCache) Set(ctx context.Context, limit int, recipes []domain.Recipe) error {
	data, err := json.Marshal(recipes)
	if err != nil {
		return fmt.Errorf("marshal popular recipes: %w", err)
	}
	if err := c.client.Set(ctx, popularKey(limit), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set popular recipes: %w", err)
	}
	return nil
}

// Invalidate drops every cached popular listing.
func (c *PopularCache) Invalidate(ctx context.Context) error {
	var keys []string
	iter := c.client.Scan(ctx, 0, popularKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan popular recipes: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis invalidate popular recipes: %w", err)
	}
	return nil
}
