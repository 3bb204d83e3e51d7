package cache

import (
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/studiobgc/loopforge/internal/config"
)

// NewRedisClient builds the L2 client. It always returns a client: the
// address is cfg.URL, or cfg.Host:cfg.Port when cfg.URL is empty, and no
// connection is attempted here.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	addr := cfg.URL
	if addr == "" {
		addr = fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	}

	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.Database,
		PoolSize:     cfg.PoolSize,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  cfg.PoolTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		MaxConnAge:   cfg.MaxConnAge,
	})
}
