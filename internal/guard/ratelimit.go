package guard

import (
	"context"
	"sync"
	"time"

	"github.com/zomasamka-bot/flashpay/internal/clock"
	"github.com/zomasamka-bot/flashpay/pkg/apperror"

	"github.com/rs/zerolog"
)

const NameRateLimit = "rate_limit"

// Rule bounds attempts inside a sliding window.
type Rule struct {
	MaxAttempts int
	Window      time.Duration
}

// DefaultRule applies to operations without a configured rule.
var DefaultRule = Rule{MaxAttempts: 10, Window: time.Minute}

// WindowStore keeps the attempt timestamps of each key. Hit prunes entries
// at or before now-window, then records now if fewer than max remain.
type WindowStore interface {
	Hit(ctx context.Context, key string, now time.Time, window time.Duration, max int) (allowed bool, err error)
}

// RateLimiter is a per-key sliding-window counter.
type RateLimiter struct {
	store WindowStore
	rules map[string]Rule
	clock clock.Clock
	log   zerolog.Logger
}

func NewRateLimiter(store WindowStore, rules map[string]Rule, clk clock.Clock, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{store: store, rules: rules, clock: clk, log: log}
}

func (l *RateLimiter) rule(op string) Rule {
	if r, ok := l.rules[op]; ok && r.MaxAttempts > 0 && r.Window > 0 {
		return r
	}
	return DefaultRule
}

// Allow records an attempt of op for subject. A store failure lets the
// attempt through.
func (l *RateLimiter) Allow(ctx context.Context, op, subject string) error {
	r := l.rule(op)
	key := op
	if subject != "" {
		key = op + ":" + subject
	}
	ok, err := l.store.Hit(ctx, key, l.clock.Now(), r.Window, r.MaxAttempts)
	if err != nil {
		l.log.Warn().Err(err).Str("key", key).Msg("rate limit check failed, allowing attempt (degraded mode)")
		return nil
	}
	if !ok {
		return apperror.ErrRateLimitExceeded()
	}
	return nil
}

func (l *RateLimiter) Step(op, subject string) Step {
	return Step{Name: NameRateLimit, Check: func(ctx context.Context) error { return l.Allow(ctx, op, subject) }}
}

// MemoryWindow is a WindowStore local to one context.
type MemoryWindow struct {
	mu    sync.Mutex
	stamp map[string][]time.Time
}

func NewMemoryWindow() *MemoryWindow {
	return &MemoryWindow{stamp: make(map[string][]time.Time)}
}

func (m *MemoryWindow) Hit(_ context.Context, key string, now time.Time, window time.Duration, max int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := now.Add(-window)
	kept := m.stamp[key][:0]
	for _, ts := range m.stamp[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= max {
		m.stamp[key] = kept
		return false, nil
	}
	m.stamp[key] = append(kept, now)
	return true, nil
}
