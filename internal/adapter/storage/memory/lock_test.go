package memory

import (
	"context"
	"testing"
	"time"

	"github.com/zomasamka-bot/flashpay/internal/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocks_AcquireRelease(t *testing.T) {
	l := NewLocks(clock.NewManual(time.Now()))
	ctx := context.Background()

	ok, err := l.Acquire(ctx, "execute:p1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = l.Acquire(ctx, "execute:p1", time.Minute)
	assert.False(t, ok, "held key cannot be acquired twice")

	ok, _ = l.Acquire(ctx, "execute:p2", time.Minute)
	assert.True(t, ok)

	require.NoError(t, l.Release(ctx, "execute:p1"))
	ok, _ = l.Acquire(ctx, "execute:p1", time.Minute)
	assert.True(t, ok)
}

func TestLocks_Expire(t *testing.T) {
	clk := clock.NewManual(time.Now())
	l := NewLocks(clk)
	ctx := context.Background()

	ok, _ := l.Acquire(ctx, "k", time.Second)
	require.True(t, ok)

	clk.Advance(time.Second)
	ok, _ = l.Acquire(ctx, "k", time.Second)
	assert.True(t, ok)
}
