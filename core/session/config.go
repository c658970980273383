package session

import (
	"log/slog"
	"time"
)

// Config provides environment-based configuration for session stores.
type Config struct {
	MaxAge       time.Duration `env:"SESSION_MAX_AGE" envDefault:"24h"`
	ReapInterval time.Duration `env:"SESSION_REAP_INTERVAL" envDefault:"1m"`
	RedisPrefix  string        `env:"SESSION_REDIS_PREFIX" envDefault:"session"`
	PgTable      string        `env:"SESSION_PG_TABLE" envDefault:"sessions"`
}

// NewMemoryStoreFromConfig creates a MemoryStore from configuration.
func NewMemoryStoreFromConfig[Data any](cfg Config, logger *slog.Logger) *MemoryStore[Data] {
	opts := []MemoryStoreOption{
		WithMaxAge(cfg.MaxAge),
		WithReapInterval(cfg.ReapInterval),
	}
	if logger != nil {
		opts = append(opts, WithLogger(logger))
	}
	return NewMemoryStore[Data](opts...)
}
