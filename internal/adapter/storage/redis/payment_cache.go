package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// PaymentCache implements ports.PaymentCache using Redis.
type PaymentCache struct {
	client goredis.UniversalClient
	prefix string
}

func NewPaymentCache(client goredis.UniversalClient) *PaymentCache {
	return &PaymentCache{
		client: client,
		prefix: "payment:",
	}
}

// Get returns the cached payment JSON, or nil, nil if the key does not exist.
func (c *PaymentCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis payment cache get: %w", err)
	}
	return val, nil
}

func (c *PaymentCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis payment cache set: %w", err)
	}
	return nil
}
