package ledger

import "sync"

// Topic names one top-level state section.
type Topic string

const (
	TopicPayments       Topic = "payments"
	TopicDomainState    Topic = "domainState"
	TopicMerchant       Topic = "merchant"
	TopicSession        Topic = "session"
	TopicWallet         Topic = "wallet"
	TopicUI             Topic = "ui"
	TopicOwnerAnalytics Topic = "ownerAnalytics"
	// TopicAll receives exactly one event per mutation.
	TopicAll Topic = "all"
)

// Source tells subscribers where a change came from.
type Source int

const (
	// SourceLocal is a mutation made through this store.
	SourceLocal Source = iota
	// SourceHydrate is state loaded from storage or reconciled from another context.
	SourceHydrate
)

// Event describes one mutation.
type Event struct {
	Topic     Topic
	Topics    []Topic // every section touched, set on TopicAll events
	Source    Source
	PaymentID string
}

type bus struct {
	mu   sync.Mutex
	next int
	subs map[Topic]map[int]func(Event)
}

func newBus() *bus {
	return &bus{subs: make(map[Topic]map[int]func(Event))}
}

func (b *bus) subscribe(topic Topic, fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]func(Event))
	}
	b.subs[topic][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[topic], id)
		})
	}
}

func (b *bus) listeners(topic Topic) []func(Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[topic]
	out := make([]func(Event), 0, len(subs))
	for id := 0; id < b.next; id++ {
		if fn, ok := subs[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

// publish runs synchronously on the caller's goroutine; callers must not hold
// store locks.
func (b *bus) publish(src Source, paymentID string, topics ...Topic) {
	for _, topic := range topics {
		for _, fn := range b.listeners(topic) {
			fn(Event{Topic: topic, Source: src, PaymentID: paymentID})
		}
	}
	if len(topics) == 0 {
		return
	}
	all := Event{Topic: topics[0], Topics: topics, Source: src, PaymentID: paymentID}
	for _, fn := range b.listeners(TopicAll) {
		fn(all)
	}
}
