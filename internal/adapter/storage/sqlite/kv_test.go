package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/zomasamka-bot/flashpay/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.SharedStorage = (*Storage)(nil)

func openTestStorage(t *testing.T, path string) *Storage {
	t.Helper()
	s, err := Open(path, 10*time.Millisecond, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type recorder struct {
	mu      sync.Mutex
	changes []ports.StorageChange
}

func (r *recorder) add(c ports.StorageChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) snapshot() []ports.StorageChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.StorageChange(nil), r.changes...)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(" ", 0, zerolog.Nop())
	assert.Error(t, err)
}

func TestStorage_GetSetDelete(t *testing.T) {
	s := openTestStorage(t, filepath.Join(t.TempDir(), "flashpay.db"))
	ctx := context.Background()

	v, err := s.Get(ctx, "flashpay:state")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, s.Set(ctx, "flashpay:state", []byte(`{"v":1}`)))
	require.NoError(t, s.Set(ctx, "flashpay:state", []byte(`{"v":2}`)))
	v, err = s.Get(ctx, "flashpay:state")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":2}`), v)

	require.NoError(t, s.Delete(ctx, "flashpay:state"))
	v, err = s.Get(ctx, "flashpay:state")
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.NoError(t, s.Delete(ctx, "flashpay:state"))
}

func TestStorage_SharedAcrossHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flashpay.db")
	a := openTestStorage(t, path)
	b := openTestStorage(t, path)
	ctx := context.Background()

	var fromA, fromB recorder
	_, err := a.Subscribe("flashpay:state", fromA.add)
	require.NoError(t, err)
	unsubB, err := b.Subscribe("flashpay:state", fromB.add)
	require.NoError(t, err)

	require.NoError(t, a.Set(ctx, "flashpay:state", []byte("one")))
	require.NoError(t, a.Set(ctx, "flashpay:other", []byte("ignored")))
	require.NoError(t, a.Set(ctx, "flashpay:state", []byte("two")))
	require.NoError(t, a.Delete(ctx, "flashpay:state"))

	assert.Eventually(t, func() bool { return len(fromB.snapshot()) == 3 }, 2*time.Second, 10*time.Millisecond)
	got := fromB.snapshot()
	assert.Equal(t, []byte("one"), got[0].Value)
	assert.Equal(t, []byte("two"), got[1].Value)
	assert.Nil(t, got[2].Value)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, fromA.snapshot(), "writers are not notified of their own writes")

	unsubB()
	unsubB()
	require.NoError(t, a.Set(ctx, "flashpay:state", []byte("three")))
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, fromB.snapshot(), 3)

	v, err := b.Get(ctx, "flashpay:state")
	require.NoError(t, err)
	assert.Equal(t, []byte("three"), v)
}

func TestStorage_SubscribeSkipsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flashpay.db")
	a := openTestStorage(t, path)
	b := openTestStorage(t, path)
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "k", []byte("before")))

	var rec recorder
	_, err := b.Subscribe("k", rec.add)
	require.NoError(t, err)
	require.NoError(t, a.Set(ctx, "k", []byte("after")))

	assert.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []byte("after"), rec.snapshot()[0].Value)
}

func TestStorage_CloseStopsSubscriptions(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "flashpay.db"), 10*time.Millisecond, zerolog.Nop())
	require.NoError(t, err)

	_, err = s.Subscribe("k", func(ports.StorageChange) {})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Subscribe("k", func(ports.StorageChange) {})
	assert.Error(t, err)
}
