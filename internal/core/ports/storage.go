package ports

import (
	"context"
	"time"
)

//go:generate mockgen -source=storage.go -destination=mocks/mock_storage.go -package=mocks

// StorageChange is delivered to subscribers when another context writes a key.
// Value is nil when the key was deleted.
type StorageChange struct {
	Key   string
	Value []byte
}

// SharedStorage is the key/value medium independently running contexts share.
// Subscribers are only notified about writes made by other contexts.
type SharedStorage interface {
	// Get returns nil, nil when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Subscribe(key string, fn func(StorageChange)) (unsubscribe func(), err error)
}

// PaymentCache is a best-effort secondary cache of created payments.
type PaymentCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached payment JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CreationLock guards an operation key against concurrent in-flight attempts.
type CreationLock interface {
	// Acquire returns false if the key is already held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}
