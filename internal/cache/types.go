package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// CachedResponse is a fully computed transformation result stored for replay.
// It holds matched substrings for the TTL window, which is why the cache is
// opt-in.
type CachedResponse struct {
	Redacted string      `json:"redacted"`
	Map      [][3]string `json:"map"`
	CachedAt time.Time   `json:"cached_at"`
}

// Stats represents cache performance statistics.
type Stats struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	HitRate     float64 `json:"hit_rate"`
	TotalKeys   int64   `json:"total_keys"`
	MemoryUsage int64   `json:"memory_usage_bytes"`
}

// Config contains cache configuration.
type Config struct {
	RedisURL       string        `yaml:"redis_url" mapstructure:"redis_url"`
	DefaultTTL     time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`
	KeyPrefix      string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
}

// RequestKey derives a deterministic cache key from the full request triple.
// The transformation is pure, so identical (text, fields, policy) always maps
// to the same response.
func RequestKey(prefix, text string, fields []string, policy string) string {
	hasher := sha256.New()
	hasher.Write([]byte(text))
	hasher.Write([]byte{0})
	hasher.Write([]byte(strings.ToUpper(strings.Join(fields, ","))))
	hasher.Write([]byte{0})
	hasher.Write([]byte(strings.ToUpper(policy)))

	return prefix + ":req:" + hex.EncodeToString(hasher.Sum(nil))[:32]
}
