package config

import (
	"strings"
	"time"
)

// CacheConfig drives the response cache middleware. Caching is off when
// Enabled is false or Redis is unavailable. KeyStrategy picks which parts of
// the request make up the key; see middleware.NewRedisCache.
type CacheConfig struct {
	Enabled      bool            // CACHE_ENABLED
	Methods      map[string]bool // upper-case HTTP methods that may be cached
	TTL          time.Duration   // lifetime of a stored response
	KeyStrategy  string          // route, method_route, route_query or method_route_query
	Prefix       string          // Redis key namespace
	MaxBodyBytes int             // larger bodies are served but not stored; 0 means no limit
}

// LoadCacheConfig reads CACHE_* variables; every one has a default.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(getenv("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		KeyStrategy:  getenv("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       getenv("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

// parseMethods turns "get, head" into {GET, HEAD}.
func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
