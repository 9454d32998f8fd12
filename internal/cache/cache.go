package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrNotAvailable = errors.New("cache not available")
	ErrNotFound     = errors.New("cache miss")
)

// Cache is a prefixed JSON cache over Redis. A nil client degrades
// gracefully: reads miss and writes become no-ops.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func New(client *redis.Client, prefix string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, prefix: prefix, ttl: ttl}
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrNotAvailable
	}
	data, err := c.client.Get(ctx, c.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("cache get: %w", err)
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("cache unmarshal: %w", err)
	}
	return nil
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	if c.client == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	return c.client.Set(ctx, c.key(key), data, c.ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.client.Del(ctx, full...).Err()
}

// InvalidatePattern deletes every key matching the pattern, scanning
// instead of KEYS to avoid blocking Redis.
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) error {
	if c.client == nil {
		return nil
	}
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.key(pattern), 100).Result()
		if err != nil {
			return fmt.Errorf("cache scan: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("cache delete: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// GetOrFetch implements cache-aside: serve from cache when present,
// otherwise fetch, store and return. Cache failures fall through to
// the fetch so the store stays the source of truth.
func (c *Cache) GetOrFetch(ctx context.Context, key string, dest interface{}, fetch func() (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrNotAvailable) {
		slog.WarnContext(ctx, "cache read failed, falling back to store", "key", key, "error", err)
	}

	value, err := fetch()
	if err != nil {
		return err
	}
	if err := c.Set(ctx, key, value); err != nil {
		slog.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal fetched value: %w", err)
	}
	return json.Unmarshal(data, dest)
}

// Ping verifies connectivity. Nil clients report unavailable.
func (c *Cache) Ping(ctx context.Context) error {
	if c.client == nil {
		return ErrNotAvailable
	}
	return c.client.Ping(ctx).Err()
}

// Manager bundles the per-entity caches the repositories share.
type Manager struct {
	Question *Cache
	Quiz     *Cache
	Stats    *Cache
}

func NewManager(client *redis.Client) *Manager {
	return &Manager{
		Question: New(client, "question:", 5*time.Minute),
		Quiz:     New(client, "quiz:", 5*time.Minute),
		Stats:    New(client, "stats:", 2*time.Minute),
	}
}

func (m *Manager) HealthCheck(ctx context.Context) error {
	return m.Question.Ping(ctx)
}
