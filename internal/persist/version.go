package persist

import (
	"sync"

	"github.com/zomasamka-bot/flashpay/internal/clock"
)

// VersionClock issues lastUpdated values. Each value is the wall clock in
// milliseconds unless that would not exceed the highest value issued or
// observed, in which case it is that value plus one. Contexts with skewed
// clocks therefore still order their writes after whatever they have seen.
type VersionClock struct {
	mu    sync.Mutex
	clock clock.Clock
	last  int64
}

func NewVersionClock(clk clock.Clock) *VersionClock {
	return &VersionClock{clock: clk}
}

// Next returns a version strictly greater than every earlier one.
func (v *VersionClock) Next() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	now := v.clock.Now().UnixMilli()
	if now <= v.last {
		now = v.last + 1
	}
	v.last = now
	return now
}

// Observe folds in a version produced elsewhere.
func (v *VersionClock) Observe(version int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if version > v.last {
		v.last = version
	}
}

// Last returns the highest version issued or observed.
func (v *VersionClock) Last() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.last
}
