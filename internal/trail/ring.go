package trail

import "github.com/zomasamka-bot/flashpay/internal/core/domain"

// ring is a fixed-capacity FIFO; pushing into a full ring drops the oldest entry.
type ring struct {
	buf   []domain.TrailEntry
	start int
	size  int
}

func newRing(capacity int) *ring {
	if capacity < 1 {
		capacity = 1
	}
	return &ring{buf: make([]domain.TrailEntry, capacity)}
}

func (r *ring) push(e domain.TrailEntry) (dropped bool) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = e
		r.size++
		return false
	}
	r.buf[r.start] = e
	r.start = (r.start + 1) % len(r.buf)
	return true
}

// items returns entries oldest first.
func (r *ring) items() []domain.TrailEntry {
	out := make([]domain.TrailEntry, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

func (r *ring) reset() {
	r.start, r.size = 0, 0
	clear(r.buf)
}
