package config

// Redis backs server-side sessions, the rate limiter and the seat list
// cache.  If the server cannot be reached at startup NewRedisClient returns
// nil; sessions then fall back to process memory and the limiter and cache
// become pass-through.

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings read from REDIS_*.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

func loadRedis(e *env) RedisConfig {
	addr := e.str("localhost:6379", "REDIS_ADDR")
	host := e.str("", "REDIS_HOST")
	port := e.str("", "REDIS_PORT")
	if host != "" && port != "" {
		addr = host + ":" + port
	}
	return RedisConfig{
		Addr:     addr,
		Password: e.str("", "REDIS_PASSWORD"),
		DB:       e.integer(0, "REDIS_DB"),
		TLS:      e.boolean(false, "REDIS_TLS"),
	}
}

// NewRedisClient dials Redis and pings it with a short timeout.  The
// returned client is nil when the server is unreachable.
func NewRedisClient(rc RedisConfig) *redis.Client {
	var tlsConf *tls.Config
	if rc.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      rc.Addr,
		Password:  rc.Password,
		DB:        rc.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
