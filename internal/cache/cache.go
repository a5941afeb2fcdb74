// internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ===============================
// CACHE INTERFACE
// ===============================

// Cache stores opaque byte values under string keys
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error

	Stats(ctx context.Context) (*CacheStats, error)
	Health(ctx context.Context) error
	Close() error
}

// CacheStats represents cache statistics
type CacheStats struct {
	Provider string  `json:"provider"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	Sets     int64   `json:"sets"`
	Deletes  int64   `json:"deletes"`
	Keys     int64   `json:"keys"`
	HitRatio float64 `json:"hitRatio"`
}

// ===============================
// CACHE CONFIGURATION
// ===============================

// Config holds cache configuration
type Config struct {
	Provider        string // "memory", "redis"
	TTL             time.Duration
	KeyPrefix       string
	MaxKeys         int
	CleanupInterval time.Duration

	RedisURL     string
	PoolSize     int
	ReadRetries  int
	RetryBackoff time.Duration
}

// DefaultConfig returns a default cache configuration
func DefaultConfig() *Config {
	return &Config{
		Provider:        "memory",
		TTL:             5 * time.Minute,
		MaxKeys:         10000,
		CleanupInterval: time.Minute,
		PoolSize:        10,
		ReadRetries:     2,
		RetryBackoff:    50 * time.Millisecond,
	}
}

// NewCache creates a cache based on configuration
func NewCache(config *Config, logger *zap.Logger) (Cache, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		c   Cache
		err error
	)
	switch strings.ToLower(config.Provider) {
	case "redis":
		c, err = NewRedisCache(config, logger)
	case "memory", "":
		logger.Info("Using in-memory cache")
		c = NewMemoryCache(config, logger)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", config.Provider)
	}
	if err != nil {
		return nil, err
	}
	if config.KeyPrefix != "" {
		c = &prefixed{Cache: c, prefix: config.KeyPrefix}
	}
	return c, nil
}

// prefixed namespaces every key so several deployments can share a redis
type prefixed struct {
	Cache
	prefix string
}

func (p *prefixed) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return p.Cache.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return p.Cache.Set(ctx, p.prefix+key, value, ttl)
}

func (p *prefixed) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = p.prefix + k
	}
	return p.Cache.Delete(ctx, full...)
}

func (p *prefixed) DeletePattern(ctx context.Context, pattern string) error {
	return p.Cache.DeletePattern(ctx, p.prefix+pattern)
}

// ===============================
// JSON HELPERS
// ===============================

// GetJSON decodes a cached value into T. Decode failures count as a miss.
func GetJSON[T any](ctx context.Context, c Cache, key string) (*T, bool, error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false, nil
	}
	return &out, true, nil
}

// SetJSON encodes value and stores it
func SetJSON(ctx context.Context, c Cache, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return c.Set(ctx, key, raw, ttl)
}

// GetOrLoad returns the cached T for key or calls load and caches its result.
// Cache failures are logged and never fail the call.
func GetOrLoad[T any](ctx context.Context, c Cache, logger *zap.Logger, key string, ttl time.Duration, load func(context.Context) (*T, error)) (*T, error) {
	if c != nil {
		cached, ok, err := GetJSON[T](ctx, c, key)
		if err != nil {
			logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	value, err := load(ctx)
	if err != nil {
		return nil, err
	}

	if c != nil && value != nil {
		if err := SetJSON(ctx, c, key, value, ttl); err != nil {
			logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return value, nil
}

// matchPattern performs simple wildcard matching for DeletePattern
func matchPattern(str, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(str, prefix)
	}
	if suffix, ok := strings.CutPrefix(pattern, "*"); ok {
		return strings.HasSuffix(str, suffix)
	}
	return str == pattern
}

func hitRatio(hits, misses int64) float64 {
	if total := hits + misses; total > 0 {
		return float64(hits) / float64(total)
	}
	return 0
}
