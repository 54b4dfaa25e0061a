// Package memory is an in-process shared storage. Each context gets its own
// handle on a common Hub; writes through one handle notify subscribers on
// every other handle, the way browser storage events skip the writing tab.
package memory

import (
	"context"
	"sync"

	"github.com/zomasamka-bot/flashpay/internal/core/ports"
)

// Hub holds the data every handle shares.
type Hub struct {
	mu   sync.Mutex
	data map[string][]byte
	next int
	subs map[int]*subscription
}

func NewHub() *Hub {
	return &Hub{
		data: make(map[string][]byte),
		subs: make(map[int]*subscription),
	}
}

// Storage is one context's view of the hub.
type Storage struct {
	hub *Hub
}

// Context returns a new handle. Handles share data but not notifications
// about their own writes.
func (h *Hub) Context() *Storage {
	return &Storage{hub: h}
}

func (s *Storage) Get(_ context.Context, key string) ([]byte, error) {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	v, ok := s.hub.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (s *Storage) Set(_ context.Context, key string, value []byte) error {
	v := append([]byte(nil), value...)
	s.hub.mu.Lock()
	s.hub.data[key] = v
	targets := s.hub.watchersLocked(s, key)
	s.hub.mu.Unlock()

	for _, sub := range targets {
		sub.deliver(ports.StorageChange{Key: key, Value: append([]byte(nil), v...)})
	}
	return nil
}

func (s *Storage) Delete(_ context.Context, key string) error {
	s.hub.mu.Lock()
	_, existed := s.hub.data[key]
	delete(s.hub.data, key)
	var targets []*subscription
	if existed {
		targets = s.hub.watchersLocked(s, key)
	}
	s.hub.mu.Unlock()

	for _, sub := range targets {
		sub.deliver(ports.StorageChange{Key: key})
	}
	return nil
}

// Subscribe registers fn for writes to key made through other handles.
// Changes are delivered in order on a separate goroutine.
func (s *Storage) Subscribe(key string, fn func(ports.StorageChange)) (func(), error) {
	s.hub.mu.Lock()
	id := s.hub.next
	s.hub.next++
	s.hub.subs[id] = &subscription{owner: s, key: key, fn: fn}
	s.hub.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.hub.mu.Lock()
			delete(s.hub.subs, id)
			s.hub.mu.Unlock()
		})
	}, nil
}

func (h *Hub) watchersLocked(writer *Storage, key string) []*subscription {
	var out []*subscription
	for _, sub := range h.subs {
		if sub.key == key && sub.owner != writer {
			out = append(out, sub)
		}
	}
	return out
}

type subscription struct {
	owner *Storage
	key   string
	fn    func(ports.StorageChange)

	mu      sync.Mutex
	queue   []ports.StorageChange
	running bool
}

func (s *subscription) deliver(ch ports.StorageChange) {
	s.mu.Lock()
	s.queue = append(s.queue, ch)
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()
	go s.drain()
}

func (s *subscription) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		ch := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		s.fn(ch)
	}
}
