package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-options/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")
	cfg := SearchRateLimit("127.0.0.1", 2, 4)

	allowed, remaining, err := limiter.Allow(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, allowed, "disabled limiter allows everything")
	assert.Equal(t, cfg.Limit, remaining)
	assert.False(t, limiter.Enabled())
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key", map[string]int{"a": 1}, TTLRun))

	var out map[string]int
	found, err := cache.Get(ctx, "key", &out)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Delete(ctx, "key"))
}

func TestSearchRateLimit(t *testing.T) {
	tests := []struct {
		name      string
		perSecond float64
		burst     int
		limit     int
		window    time.Duration
	}{
		{"burst over rate", 2, 4, 4, 2 * time.Second},
		{"one per second", 1, 1, 1, time.Second},
		{"zero burst", 5, 0, 1, 200 * time.Millisecond},
		{"no rate", 0, 3, 3, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := SearchRateLimit("c", tt.perSecond, tt.burst)
			assert.Equal(t, "search:c", cfg.Key)
			assert.Equal(t, tt.limit, cfg.Limit)
			assert.Equal(t, tt.window, cfg.Window)
		})
	}
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "run:00000000000000ff:abc:top10", RunResultKey(255, "abc", 10))
	assert.Equal(t, "run:id:r-1", RunIDKey("r-1"))
}
