package memory

import (
	"context"
	"sync"
	"time"

	"github.com/zomasamka-bot/flashpay/internal/clock"
)

// Locks is a ports.CreationLock local to one context. Held keys expire after
// their ttl so a lost Release cannot wedge an operation.
type Locks struct {
	mu    sync.Mutex
	clock clock.Clock
	held  map[string]time.Time
}

func NewLocks(clk clock.Clock) *Locks {
	return &Locks{clock: clk, held: make(map[string]time.Time)}
}

func (l *Locks) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	if until, ok := l.held[key]; ok && now.Before(until) {
		return false, nil
	}
	l.held[key] = now.Add(ttl)
	return true, nil
}

func (l *Locks) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}
