package rbac

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const tripleCachePrefix = "rbac:triples:"

// TripleCache memoizes the roles→triples expansion per principal for a short
// window so hot endpoints do not re-join five tables on every request. Misses
// and failures fall through to the store; the cache never decides anything.
type TripleCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTripleCache constructs a TripleCache. A zero ttl disables expiry and is
// almost certainly not what you want in production.
func NewTripleCache(client *redis.Client, ttl time.Duration) *TripleCache {
	return &TripleCache{client: client, ttl: ttl}
}

// Get returns the cached triples for a principal, with ok=false on miss or
// any cache error.
func (c *TripleCache) Get(ctx context.Context, principalID int64) ([]PermissionTriple, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, c.key(principalID)).Bytes()
	if err != nil {
		return nil, false
	}
	var triples []PermissionTriple
	if err := json.Unmarshal(raw, &triples); err != nil {
		return nil, false
	}
	return triples, true
}

// Set stores triples for a principal. Cache write failures are ignored.
func (c *TripleCache) Set(ctx context.Context, principalID int64, triples []PermissionTriple) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(triples)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.key(principalID), raw, c.ttl).Err()
}

// Bust drops the cached expansion for one principal.
func (c *TripleCache) Bust(ctx context.Context, principalID int64) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, c.key(principalID)).Err()
}

// BustAll drops every cached expansion. Role and permission mutations affect
// an unknown set of principals, so administrative writes call this.
func (c *TripleCache) BustAll(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	iter := c.client.Scan(ctx, 0, tripleCachePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *TripleCache) key(principalID int64) string {
	return fmt.Sprintf("%s%d", tripleCachePrefix, principalID)
}
