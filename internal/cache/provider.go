// Package cache provides caching for exchange rates and Stripe webhook
// idempotency. Quote responses are never cached here: quotes are cart- and
// destination-specific and a stale quote would misprice an order.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Provider defines the interface for string value caching with TTLs.
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Config struct {
	Provider              string
	RedisConnectionString string
}

func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryProvider()
	case "redis":
		return NewRedisProvider(cfg.RedisConnectionString)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

// RatesKey is the cache key for the exchange-rate table of a base currency.
func RatesKey(baseCurrency string) string {
	return fmt.Sprintf("fx:%s", baseCurrency)
}

// WebhookKey is the idempotency key for a processed webhook event.
func WebhookKey(source, eventID string) string {
	return fmt.Sprintf("webhook:%s:%s", source, eventID)
}
