package runstore

import (
	"context"
	"time"

	"github.com/wonny/aegis-options/internal/search"
	"github.com/wonny/aegis-options/pkg/redis"
)

// Cache keeps recent run results in Redis
// 키: 레그 스토어 지문 + 설정 해시 (+ top_n). 같은 입력이면 재계산하지 않는다
type Cache struct {
	cache *redis.Cache
	ttl   time.Duration
}

// NewCache creates a run result cache. ttl <= 0 uses redis.TTLRun.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = redis.TTLRun
	}
	return &Cache{cache: redis.NewCache(client, "options"), ttl: ttl}
}

// Lookup returns a cached result for the same inputs
func (c *Cache) Lookup(ctx context.Context, storeFingerprint uint64, configHash string, topN int) (*search.RunResult, bool, error) {
	var res search.RunResult
	found, err := c.cache.Get(ctx, redis.RunResultKey(storeFingerprint, configHash, topN), &res)
	if err != nil || !found {
		return nil, false, err
	}
	return &res, true, nil
}

// Store caches a result by its inputs and by run id
func (c *Cache) Store(ctx context.Context, res *search.RunResult, topN int) error {
	key := redis.RunResultKey(res.StoreFingerprint, res.ConfigHash, topN)
	if err := c.cache.Set(ctx, key, res, c.ttl); err != nil {
		return err
	}
	return c.cache.Set(ctx, redis.RunIDKey(res.RunID), key, redis.TTLRunRef)
}

// ByRunID resolves a recently cached run by its id
func (c *Cache) ByRunID(ctx context.Context, runID string) (*search.RunResult, bool, error) {
	var key string
	found, err := c.cache.Get(ctx, redis.RunIDKey(runID), &key)
	if err != nil || !found {
		return nil, false, err
	}

	var res search.RunResult
	found, err = c.cache.Get(ctx, key, &res)
	if err != nil || !found {
		return nil, false, err
	}
	return &res, true, nil
}
