package bizconn

import (
	"fmt"
	"time"
)

const defaultTTL = 6 * time.Hour

// Config holds the connection cache configuration. With RedisAddr empty the
// cache lives in process.
type Config struct {
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

// Defaults applies default values to unset fields.
func (c *Config) Defaults() {
	if c.TTL == 0 {
		c.TTL = defaultTTL
	}
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if c.TTL < time.Second {
		return fmt.Errorf("bizconn: ttl must be at least 1s, got %s", c.TTL)
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("bizconn: redis_db must be non-negative, got %d", c.RedisDB)
	}
	return nil
}

// NewCache returns the Cache described by cfg.
func NewCache(cfg Config) Cache {
	if cfg.RedisAddr != "" {
		return NewRedisCache(cfg)
	}
	return NewMemoryCache(cfg.TTL)
}
