package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/zomasamka-bot/flashpay/internal/adapter/storage/redis"
	"github.com/zomasamka-bot/flashpay/internal/guard"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ guard.WindowStore = (*redis.RateLimitStore)(nil)

func TestRateLimitStore_Hit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := redis.NewRateLimitStore(client)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("allows attempts within limit", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			ok, err := store.Hit(ctx, "create_payment:", start.Add(time.Duration(i)*time.Second), time.Minute, 3)
			require.NoError(t, err)
			assert.True(t, ok, "attempt %d should be allowed", i+1)
		}
	})

	t.Run("blocks attempts over limit", func(t *testing.T) {
		ok, err := store.Hit(ctx, "create_payment:", start.Add(10*time.Second), time.Minute, 3)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("different keys are independent", func(t *testing.T) {
		ok, err := store.Hit(ctx, "execute_payment:pi-1", start, time.Minute, 1)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("window slides", func(t *testing.T) {
		// The first attempt leaves the window exactly one window later.
		ok, err := store.Hit(ctx, "create_payment:", start.Add(time.Minute), time.Minute, 3)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Hit(ctx, "create_payment:", start.Add(time.Minute), time.Minute, 3)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestRateLimitStore_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := redis.NewRateLimitStore(client)
	ctx := context.Background()
	now := time.Now()

	ok, err := store.Hit(ctx, "k", now, time.Minute, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.Close()
	_, err = store.Hit(ctx, "k", now, time.Minute, 1)
	assert.Error(t, err, "store errors are surfaced so the limiter can degrade")
}
