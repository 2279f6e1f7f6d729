package draft

import (
	"context"
	"fmt"
	"time"
)

// Store persists opaque draft payloads. Payloads are encrypted before they
// reach the store, so backends never see customer data in the clear.
type Store interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, payload string, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Close() error
}

type Config struct {
	Provider              string
	RedisConnectionString string
}

func NewStore(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Provider {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx, cfg.RedisConnectionString)
	default:
		return nil, fmt.Errorf("unsupported draft store provider: %s", cfg.Provider)
	}
}
