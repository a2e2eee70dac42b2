package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching will be disabled.
// Methods lists the HTTP methods to cache (e.g. GET, HEAD). TTL defines the
// lifetime of cache entries. KeyStrategy determines which parts of the request
// contribute to the cache key. Prefix and MaxBodyBytes allow control over
// namespacing and the maximum size of responses to cache.
type CacheConfig struct {
	Enabled      bool          `envconfig:"CACHE_ENABLED" default:"true"`
	MethodList   []string      `envconfig:"CACHE_METHODS" default:"GET"`
	TTL          time.Duration `envconfig:"CACHE_TTL" default:"30s"`
	KeyStrategy  string        `envconfig:"CACHE_KEY_STRATEGY" default:"route_query"`
	Prefix       string        `envconfig:"CACHE_PREFIX" default:"cache"`
	MaxBodyBytes int           `envconfig:"CACHE_MAX_BODY_BYTES" default:"1048576"`

	Methods map[string]bool `ignored:"true"`
}

func (c *CacheConfig) normalize() {
	c.Methods = map[string]bool{}
	for _, m := range c.MethodList {
		m = strings.TrimSpace(strings.ToUpper(m))
		if m != "" {
			c.Methods[m] = true
		}
	}
	if c.TTL <= 0 {
		c.TTL = time.Second
	}
	switch c.KeyStrategy {
	case "route", "route_query", "full_url":
	default:
		c.KeyStrategy = "route_query"
	}
}
