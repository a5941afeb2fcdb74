package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ===============================
// MEMORY CACHE IMPLEMENTATION
// ===============================

type memoryCache struct {
	mu      sync.Mutex
	items   map[string]*cacheItem
	maxKeys int
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time

	hits, misses, sets, deletes int64

	stopCh    chan struct{}
	closeOnce sync.Once
	done      sync.WaitGroup
}

type cacheItem struct {
	value      []byte
	expiresAt  time.Time
	accessedAt time.Time
}

// NewMemoryCache creates a new in-memory cache with a background janitor
func NewMemoryCache(config *Config, logger *zap.Logger) Cache {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &memoryCache{
		items:   make(map[string]*cacheItem),
		maxKeys: config.MaxKeys,
		ttl:     config.TTL,
		logger:  logger,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	if c.maxKeys <= 0 {
		c.maxKeys = 10000
	}
	if c.ttl <= 0 {
		c.ttl = 5 * time.Minute
	}

	if config.CleanupInterval > 0 {
		c.done.Add(1)
		go c.cleanup(config.CleanupInterval)
	}
	return c
}

func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false, nil
	}
	now := c.now()
	if now.After(item.expiresAt) {
		delete(c.items, key)
		c.misses++
		return nil, false, nil
	}

	item.accessedAt = now
	c.hits++
	return append([]byte(nil), item.value...), true, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxKeys {
		c.evictLRU()
	}

	now := c.now()
	c.items[key] = &cacheItem{
		value:      append([]byte(nil), value...),
		expiresAt:  now.Add(ttl),
		accessedAt: now,
	}
	c.sets++
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		if _, ok := c.items[key]; ok {
			delete(c.items, key)
			c.deletes++
		}
	}
	return nil
}

func (c *memoryCache) DeletePattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.items {
		if matchPattern(key, pattern) {
			delete(c.items, key)
			c.deletes++
		}
	}
	return nil
}

func (c *memoryCache) Stats(ctx context.Context) (*CacheStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return &CacheStats{
		Provider: "memory",
		Hits:     c.hits,
		Misses:   c.misses,
		Sets:     c.sets,
		Deletes:  c.deletes,
		Keys:     int64(len(c.items)),
		HitRatio: hitRatio(c.hits, c.misses),
	}, nil
}

func (c *memoryCache) Health(ctx context.Context) error {
	return nil
}

func (c *memoryCache) Close() error {
	c.closeOnce.Do(func() { close(c.stopCh) })
	c.done.Wait()
	return nil
}

func (c *memoryCache) cleanup(interval time.Duration) {
	defer c.done.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-c.stopCh:
			return
		}
	}
}

func (c *memoryCache) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, key)
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debug("Cleaned up expired cache items",
			zap.Int("expired_count", removed),
			zap.Int("remaining_count", len(c.items)),
		)
	}
}

// evictLRU drops the least recently read item. Caller holds mu.
func (c *memoryCache) evictLRU() {
	var oldestKey string
	var oldest time.Time
	for key, item := range c.items {
		if oldestKey == "" || item.accessedAt.Before(oldest) {
			oldestKey = key
			oldest = item.accessedAt
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
