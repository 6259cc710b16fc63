package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/toughshop/internal/domain"
)

func TestMemoryFeaturedCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryFeaturedCache(time.Minute)
	c.now = func() time.Time { return now }

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// an empty list is a valid cached value, not a miss
	require.NoError(t, c.Set(ctx, []domain.Product{}))
	items, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, items)

	require.NoError(t, c.Set(ctx, []domain.Product{{ID: 1}, {ID: 2}}))
	items, ok, _ = c.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, []int64{1, 2}, ids(items))

	// callers cannot mutate the cached slice
	items[0].ID = 99
	items, _, _ = c.Get(ctx)
	assert.Equal(t, int64(1), items[0].ID)

	now = now.Add(2 * time.Minute)
	_, ok, _ = c.Get(ctx)
	assert.False(t, ok, "entry should expire after ttl")

	require.NoError(t, c.Set(ctx, []domain.Product{{ID: 3}}))
	require.NoError(t, c.Invalidate(ctx))
	_, ok, _ = c.Get(ctx)
	assert.False(t, ok)
}

func TestMemoryFeaturedCache_NoExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	c := NewMemoryFeaturedCache(0)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, []domain.Product{{ID: 1}}))
	now = now.Add(24 * time.Hour)
	_, ok, _ := c.Get(ctx)
	assert.True(t, ok)
}

func TestService_InvalidationBeatsInflightFill(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, draft("Watch", "Steel", "smart watches"))
	require.NoError(t, err)

	// a fill that started before the invalidation must not be stored
	gen := svc.gen.Load()
	svc.InvalidateFeatured(ctx)
	assert.NotEqual(t, gen, svc.gen.Load())

	_, err = svc.ToggleFeatured(ctx, p.ID)
	require.NoError(t, err)
	got, err := svc.GetFeatured(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{p.ID}, ids(got))

	require.NoError(t, svc.RefreshFeatured(ctx))
	cached, ok, err := svc.cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int64{p.ID}, ids(cached))
}
