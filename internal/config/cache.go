package config

import "time"

// CacheConfig defines settings for the booking response cache.  Booking
// records never change once written, so their JSON can be served from
// Redis for TTL.  Caching is disabled when Enabled is false or no Redis
// client is available.  MaxBodyBytes caps the size of a cached response.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables, falling back to defaults.
func LoadCacheConfig() CacheConfig {
	c := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", 10*time.Minute),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 65536),
	}
	if c.TTL <= 0 {
		c.TTL = 10 * time.Minute
	}
	return c
}
