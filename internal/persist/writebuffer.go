package persist

import (
	"sync"
	"time"

	"github.com/zomasamka-bot/flashpay/internal/clock"
)

// WriteBuffer coalesces bursts of Schedule calls into one write. The first
// Schedule arms a timer for the debounce window; calls inside the window
// ride along and do not extend it.
type WriteBuffer struct {
	mu      sync.Mutex
	clock   clock.Clock
	delay   time.Duration
	write   func()
	timer   clock.Timer
	pending bool
	stopped bool
}

func NewWriteBuffer(clk clock.Clock, delay time.Duration, write func()) *WriteBuffer {
	return &WriteBuffer{clock: clk, delay: delay, write: write}
}

// Schedule marks state dirty and arms the timer if it is not running.
func (b *WriteBuffer) Schedule() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	b.pending = true
	if b.timer == nil {
		b.timer = b.clock.AfterFunc(b.delay, b.fire)
	}
}

func (b *WriteBuffer) fire() {
	b.mu.Lock()
	b.timer = nil
	pending := b.pending
	b.pending = false
	b.mu.Unlock()

	if pending {
		b.write()
	}
}

// Flush performs a pending write immediately. It reports whether a write ran.
func (b *WriteBuffer) Flush() bool {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	pending := b.pending
	b.pending = false
	b.mu.Unlock()

	if pending {
		b.write()
	}
	return pending
}

// Hold keeps state dirty after a write that could not complete. No timer is
// armed; the next Schedule or Flush retries.
func (b *WriteBuffer) Hold() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	b.pending = true
}

// Pending reports whether a write is waiting for the timer.
func (b *WriteBuffer) Pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

// Stop flushes anything pending and ignores later Schedule calls.
func (b *WriteBuffer) Stop() {
	b.Flush()
	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()
}
