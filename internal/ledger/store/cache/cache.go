// Package cache provides a Redis cache for unit views.
//
// get/authenticate dominate traffic (every consumer scanning a product hits
// them), so unit views are cached with a short TTL. Only mutation results are
// written: mint stores the fresh view and transfer invalidates the key. Reads
// never write the cache, so a read that raced a transfer cannot overwrite the
// invalidation with a stale view. A cache failure only costs a store read,
// never correctness.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"croptrace/internal/ledger/models"
	id "croptrace/pkg/domain"
)

// UnitCache caches unit views keyed by unit id.
type UnitCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a unit cache. A nil client disables caching; methods on a nil
// *UnitCache are no-ops so callers don't branch.
func New(client *redis.Client, ttl time.Duration) *UnitCache {
	if client == nil {
		return nil
	}
	return &UnitCache{client: client, ttl: ttl}
}

func key(unitID id.UnitID) string {
	return fmt.Sprintf("croptrace:unit:%s", unitID)
}

// Get returns the cached unit view and whether it was present. Errors are
// treated as misses.
func (c *UnitCache) Get(ctx context.Context, unitID id.UnitID) (models.Unit, bool) {
	if c == nil {
		return models.Unit{}, false
	}
	raw, err := c.client.Get(ctx, key(unitID)).Bytes()
	if err != nil {
		return models.Unit{}, false
	}
	var unit models.Unit
	if err := json.Unmarshal(raw, &unit); err != nil {
		return models.Unit{}, false
	}
	return unit, true
}

// Set stores the unit view with the configured TTL. Best effort.
func (c *UnitCache) Set(ctx context.Context, unit models.Unit) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(unit)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key(unit.ID), raw, c.ttl).Err()
}

// Invalidate drops the cached view. Mutations call this before returning so
// the next read observes the committed state.
func (c *UnitCache) Invalidate(ctx context.Context, unitID id.UnitID) {
	if c == nil {
		return
	}
	_ = c.client.Del(ctx, key(unitID)).Err()
}
