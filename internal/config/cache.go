package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware that sits
// in front of GET /seats.  When Enabled is false or no Redis client is
// available, caching is skipped.  Booking and release invalidate the entry,
// so TTL only bounds staleness against writes made by other instances.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

func loadCache(e *env) CacheConfig {
	return CacheConfig{
		Enabled:      e.boolean(true, "CACHE_ENABLED"),
		Methods:      parseMethods(e.str("GET", "CACHE_METHODS")),
		TTL:          e.dur(5*time.Second, "CACHE_TTL"),
		KeyStrategy:  e.str("route", "CACHE_KEY_STRATEGY"),
		Prefix:       e.str("seatcache", "CACHE_PREFIX"),
		MaxBodyBytes: e.integer(1<<20, "CACHE_MAX_BODY_BYTES"),
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range splitCSV(s) {
		m[strings.ToUpper(p)] = true
	}
	return m
}
