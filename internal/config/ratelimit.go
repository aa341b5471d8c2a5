package config

import "time"

// RateLimitConfig drives the Redis token bucket placed in front of the
// booking and release routes.  Capacity tokens are available per key and
// RefillTokens are added every RefillInterval.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

func loadRateLimit(e *env) RateLimitConfig {
	rl := RateLimitConfig{
		Enabled:        e.boolean(true, "RATE_LIMIT_ENABLED"),
		Capacity:       e.integer(20, "RATE_LIMIT_CAPACITY", "RATE_LIMIT_BURST"),
		RefillTokens:   e.integer(1, "RATE_LIMIT_REFILL_TOKENS"),
		RefillInterval: e.dur(3*time.Second, "RATE_LIMIT_REFILL_INTERVAL"),
		TTL:            e.dur(10*time.Minute, "RATE_LIMIT_TTL"),
		KeyStrategy:    e.str("user_route", "RATE_LIMIT_KEY_STRATEGY"),
		Prefix:         e.str("rl", "RATE_LIMIT_PREFIX"),
		Debug:          e.boolean(false, "RATE_LIMIT_DEBUG"),
	}
	if rl.Capacity < 1 {
		rl.Capacity = 1
	}
	if rl.RefillTokens < 1 {
		rl.RefillTokens = 1
	}
	if rl.RefillInterval <= 0 {
		rl.RefillInterval = time.Second
	}
	// keep buckets alive long enough to refill at least a few times
	if minTTL := 5 * rl.RefillInterval; rl.TTL < minTTL {
		rl.TTL = minTTL
	}
	return rl
}
