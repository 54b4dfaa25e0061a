package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentCache_SetAndGet(t *testing.T) {
	_, client := newTestClient(t)
	cache := NewPaymentCache(client)
	ctx := context.Background()

	key := "merchant-1:pi-1"
	value := []byte(`{"id":"pi-1","status":"PENDING"}`)

	// Get before set => nil
	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result)

	require.NoError(t, cache.Set(ctx, key, value, 24*time.Hour))

	result, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, value, result)
}

func TestPaymentCache_TTLExpiry(t *testing.T) {
	s, client := newTestClient(t)
	cache := NewPaymentCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "merchant-1:pi-2", []byte(`{}`), time.Second))

	s.FastForward(2 * time.Second)

	result, err := cache.Get(ctx, "merchant-1:pi-2")
	assert.NoError(t, err)
	assert.Nil(t, result, "expired key should return nil")
}

func TestPaymentCache_StoredUnderPrefix(t *testing.T) {
	s, client := newTestClient(t)
	cache := NewPaymentCache(client)

	require.NoError(t, cache.Set(context.Background(), "merchant-1:pi-3", []byte("x"), time.Hour))
	assert.True(t, s.Exists("payment:merchant-1:pi-3"))
}
