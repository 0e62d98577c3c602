//go:build integration

package embedding

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/voice-agent/internal/config"
)

type countingEmbedder struct {
	model string
	calls int
}

func (c *countingEmbedder) Embed(context.Context, string) ([]float32, error) {
	c.calls++
	return []float32{1, 2, 3}, nil
}

func (c *countingEmbedder) Model() string  { return c.model }
func (c *countingEmbedder) Dimension() int { return 3 }

func TestCache_ReadThrough(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client, err := NewRedisClient(context.Background(), config.RedisConfig{Addr: addr})
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	inner := &countingEmbedder{model: "counting-" + uuid.NewString()}
	cache := NewCache(inner, client, time.Minute, nil)
	text := "cached text"
	defer client.Del(ctx, cache.key(text))

	first, err := cache.Embed(ctx, text)
	require.NoError(t, err)
	second, err := cache.Embed(ctx, text)
	require.NoError(t, err)

	assert.Equal(t, []float32{1, 2, 3}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls, "second call is served from Redis")
}

func TestCache_SeededEntry(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client, err := NewRedisClient(context.Background(), config.RedisConfig{Addr: addr})
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	inner := &countingEmbedder{model: "counting-" + uuid.NewString()}
	cache := NewCache(inner, client, time.Minute, nil)
	key := cache.key("seeded")
	defer client.Del(ctx, key)
	require.NoError(t, client.Set(ctx, key, `[4,5,6]`, time.Minute).Err())

	vec, err := cache.Embed(ctx, "seeded")
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 5, 6}, vec)
	assert.Equal(t, 0, inner.calls)
}
