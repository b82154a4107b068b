//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"croptrace/internal/ledger/models"
	"croptrace/internal/ledger/store/cache"
	"croptrace/pkg/testutil/containers"
)

func TestUnitCacheRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	redis := containers.NewRedisContainer(t)
	c := cache.New(redis.Client, time.Minute)
	ctx := context.Background()

	unit := models.Unit{
		ID:       7,
		Metadata: "heirloom tomatoes, lot 42",
		Owner:    "farmer-alba",
		MintedAt: time.Now().UTC().Truncate(time.Second),
	}

	_, ok := c.Get(ctx, unit.ID)
	assert.False(t, ok, "expected miss before Set")

	c.Set(ctx, unit)

	got, ok := c.Get(ctx, unit.ID)
	require.True(t, ok)
	assert.Equal(t, unit.ID, got.ID)
	assert.Equal(t, unit.Owner, got.Owner)
	assert.Equal(t, unit.Metadata, got.Metadata)

	c.Invalidate(ctx, unit.ID)
	_, ok = c.Get(ctx, unit.ID)
	assert.False(t, ok, "expected miss after Invalidate")
}

func TestUnitCacheExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	redis := containers.NewRedisContainer(t)
	c := cache.New(redis.Client, 100*time.Millisecond)
	ctx := context.Background()

	c.Set(ctx, models.Unit{ID: 1, Owner: "farmer-alba"})

	_, ok := c.Get(ctx, 1)
	require.True(t, ok)

	time.Sleep(200 * time.Millisecond)
	_, ok = c.Get(ctx, 1)
	assert.False(t, ok, "expected entry to expire")
}

func TestNilCacheIsNoop(t *testing.T) {
	var c *cache.UnitCache
	ctx := context.Background()

	c.Set(ctx, models.Unit{ID: 1})
	c.Invalidate(ctx, 1)
	_, ok := c.Get(ctx, 1)
	assert.False(t, ok)
}
