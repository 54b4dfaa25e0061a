package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// LockStore implements ports.CreationLock using Redis SET NX, so an
// operation key is held across every context sharing the server.
type LockStore struct {
	client goredis.UniversalClient
	prefix string
}

func NewLockStore(client goredis.UniversalClient) *LockStore {
	return &LockStore{
		client: client,
		prefix: "lock:",
	}
}

// Acquire returns true if the key was free. The hold expires after ttl.
func (s *LockStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	result, err := s.client.SetArgs(ctx, s.prefix+key, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			// Already held
			return false, nil
		}
		return false, fmt.Errorf("redis lock acquire: %w", err)
	}
	return result == "OK", nil
}

func (s *LockStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis lock release: %w", err)
	}
	return nil
}
