package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockStore_AcquireRelease(t *testing.T) {
	_, client := newTestClient(t)
	locks := NewLockStore(client)
	ctx := context.Background()

	ok, err := locks.Acquire(ctx, "execute:merchant-1:pi-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = locks.Acquire(ctx, "execute:merchant-1:pi-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held key should not be acquired twice")

	// Other keys are independent
	ok, err = locks.Acquire(ctx, "execute:merchant-1:pi-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, locks.Release(ctx, "execute:merchant-1:pi-1"))
	ok, err = locks.Acquire(ctx, "execute:merchant-1:pi-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockStore_Expiry(t *testing.T) {
	s, client := newTestClient(t)
	locks := NewLockStore(client)
	ctx := context.Background()

	ok, err := locks.Acquire(ctx, "create:merchant-1:ext-1", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	s.FastForward(2 * time.Second)

	ok, err = locks.Acquire(ctx, "create:merchant-1:ext-1", time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock should be acquirable")
}

func TestLockStore_ReleaseUnknownKey(t *testing.T) {
	_, client := newTestClient(t)
	assert.NoError(t, NewLockStore(client).Release(context.Background(), "nope"))
}
