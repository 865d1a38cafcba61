package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ResponseCache stores computed transformation responses in Redis, keyed by a
// hash of the request triple. Entries expire after the configured TTL.
type ResponseCache struct {
	client *redis.Client
	config *Config
	logger *zap.Logger
	stats  *cacheStats
}

type cacheStats struct {
	hits   int64
	misses int64
}

// NewResponseCache connects to Redis and verifies the connection.
func NewResponseCache(config *Config, logger *zap.Logger) (*ResponseCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = config.MaxConnections
	opts.MinIdleConns = config.MinIdleConns

	cache := &ResponseCache{
		client: redis.NewClient(opts),
		config: config,
		logger: logger,
		stats:  &cacheStats{},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := cache.client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Response cache initialized",
		zap.String("redis_url", maskRedisURL(config.RedisURL)),
		zap.Duration("default_ttl", config.DefaultTTL))

	return cache, nil
}

// Key derives the cache key for a request triple under this cache's prefix.
func (c *ResponseCache) Key(text string, fields []string, policy string) string {
	return RequestKey(c.config.KeyPrefix, text, fields, policy)
}

// Get returns the cached response for key, or nil on a miss. Lookup failures
// are logged and reported as misses; the caller recomputes.
func (c *ResponseCache) Get(ctx context.Context, key string) (*CachedResponse, error) {
	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		c.stats.misses++
		return nil, nil
	} else if err != nil {
		c.stats.misses++
		c.logger.Error("Cache lookup failed", zap.Error(err))
		return nil, nil
	}

	var cached CachedResponse
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		c.logger.Error("Failed to unmarshal cached response", zap.Error(err))
		c.client.Del(ctx, key)
		c.stats.misses++
		return nil, nil
	}

	c.stats.hits++
	c.logger.Debug("Cache hit", zap.String("key", key))
	return &cached, nil
}

// Set stores a response under key with the default TTL.
func (c *ResponseCache) Set(ctx context.Context, key string, response *CachedResponse) error {
	response.CachedAt = time.Now()

	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response for caching: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.config.DefaultTTL).Err(); err != nil {
		c.logger.Error("Failed to cache response", zap.Error(err))
		return fmt.Errorf("failed to cache response: %w", err)
	}

	return nil
}

// GetStats returns cache performance statistics.
func (c *ResponseCache) GetStats(ctx context.Context) (*Stats, error) {
	info, err := c.client.Info(ctx, "memory").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get Redis info: %w", err)
	}

	stats := &Stats{
		Hits:   c.stats.hits,
		Misses: c.stats.misses,
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}

	for _, line := range strings.Split(info, "\r\n") {
		if memStr, ok := strings.CutPrefix(line, "used_memory:"); ok {
			if mem, err := strconv.ParseInt(memStr, 10, 64); err == nil {
				stats.MemoryUsage = mem
			}
		}
	}

	if keys, err := c.client.DBSize(ctx).Result(); err == nil {
		stats.TotalKeys = keys
	}

	return stats, nil
}

// Clear removes all cached responses under this cache's prefix.
func (c *ResponseCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.config.KeyPrefix+":req:*", 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}

	const batchSize = 100
	for i := 0; i < len(keys); i += batchSize {
		end := i + batchSize
		if end > len(keys) {
			end = len(keys)
		}
		if err := c.client.Del(ctx, keys[i:end]...).Err(); err != nil {
			return fmt.Errorf("failed to delete cache keys: %w", err)
		}
	}

	c.logger.Info("Cache cleared", zap.Int("deleted_keys", len(keys)))
	return nil
}

// Close closes the Redis connection.
func (c *ResponseCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// maskRedisURL hides credentials in a Redis URL for logging.
func maskRedisURL(url string) string {
	at := strings.LastIndex(url, "@")
	if at < 0 {
		return url
	}
	scheme := ""
	rest := url
	if idx := strings.Index(url, "://"); idx >= 0 {
		scheme = url[:idx+3]
		rest = url[idx+3:]
		at = strings.LastIndex(rest, "@")
		if at < 0 {
			return url
		}
	}
	return scheme + "***" + rest[at:]
}
