package catalog

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/talkincode/toughshop/internal/domain"
)

const featuredCacheKey = "featured_products"

// FeaturedCache holds the featured product list between mutations
type FeaturedCache interface {
	// Get returns the cached list; ok is false on a miss
	Get(ctx context.Context) (items []domain.Product, ok bool, err error)
	Set(ctx context.Context, items []domain.Product) error
	Invalidate(ctx context.Context) error
}

// MemoryFeaturedCache keeps the list in process memory
type MemoryFeaturedCache struct {
	mu        sync.RWMutex
	items     []domain.Product
	valid     bool
	expiresAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

// NewMemoryFeaturedCache ttl <= 0 disables expiry
func NewMemoryFeaturedCache(ttl time.Duration) *MemoryFeaturedCache {
	return &MemoryFeaturedCache{ttl: ttl, now: time.Now}
}

func (c *MemoryFeaturedCache) Get(_ context.Context) ([]domain.Product, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid {
		return nil, false, nil
	}
	if c.ttl > 0 && c.now().After(c.expiresAt) {
		return nil, false, nil
	}
	out := make([]domain.Product, len(c.items))
	copy(out, c.items)
	return out, true, nil
}

func (c *MemoryFeaturedCache) Set(_ context.Context, items []domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make([]domain.Product, len(items))
	copy(c.items, items)
	c.valid = true
	c.expiresAt = c.now().Add(c.ttl)
	return nil
}

func (c *MemoryFeaturedCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.valid = false
	return nil
}

// RedisFeaturedCache stores the list as JSON in redis so several
// instances share one view
type RedisFeaturedCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisFeaturedCache(client *redis.Client, ttl time.Duration) *RedisFeaturedCache {
	return &RedisFeaturedCache{client: client, key: featuredCacheKey, ttl: ttl}
}

func (c *RedisFeaturedCache) Get(ctx context.Context) ([]domain.Product, bool, error) {
	value, err := c.client.Get(ctx, c.key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "redis get featured")
	}
	var items []domain.Product
	if err := json.Unmarshal(value, &items); err != nil {
		return nil, false, errors.Wrap(err, "decode featured")
	}
	return items, true, nil
}

func (c *RedisFeaturedCache) Set(ctx context.Context, items []domain.Product) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return errors.Wrap(err, "encode featured")
	}
	return errors.Wrap(c.client.Set(ctx, c.key, payload, c.ttl).Err(), "redis set featured")
}

func (c *RedisFeaturedCache) Invalidate(ctx context.Context) error {
	return errors.Wrap(c.client.Del(ctx, c.key).Err(), "redis del featured")
}
