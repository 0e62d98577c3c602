package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bull/voice-agent/internal/config"
)

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Cache is a read-through Embedder decorator backed by Redis. Entries are
// keyed by model and text digest. Redis errors are logged and bypassed so
// that the cache never turns a working provider into a failing one.
type Cache struct {
	next   Embedder
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache wraps next. A non-positive ttl defaults to one hour.
func NewCache(next Embedder, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{next: next, client: client, ttl: ttl, logger: logger}
}

func (c *Cache) Model() string { return c.next.Model() }

func (c *Cache) Dimension() int { return c.next.Dimension() }

// Embed returns the cached vector for text or computes and stores it.
func (c *Cache) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var vec []float32
		if err := json.Unmarshal(raw, &vec); err == nil && len(vec) == c.Dimension() {
			return vec, nil
		}
		c.logger.Warn("discarding malformed cached embedding", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("embedding cache read failed", "error", err)
	}

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(vec)
	if err == nil {
		err = c.client.Set(ctx, key, payload, c.ttl).Err()
	}
	if err != nil {
		c.logger.Warn("embedding cache write failed", "error", err)
	}
	return vec, nil
}

func (c *Cache) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("embedding:%s:%s", c.next.Model(), hex.EncodeToString(sum[:]))
}
