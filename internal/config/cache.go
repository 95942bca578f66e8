package config

import "time"

// CacheConfig defines settings for the recipe read cache.  When
// Enabled is false or no Redis client is configured, caching is
// disabled and reads go straight to the database.  TTL defines the
// lifetime of cache entries; Prefix namespaces the keys so multiple
// deployments can share one Redis.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled: getenv("CACHE_ENABLED", "true") == "true",
		TTL:     parseDur(getenv("CACHE_TTL", "30s")),
		Prefix:  getenv("CACHE_PREFIX", "recipes"),
	}
}
