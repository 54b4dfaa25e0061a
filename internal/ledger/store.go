// Package ledger holds the merchant-scoped collection of payment records and
// the rest of a context's state sections, with topic-based change
// notification. The Store is the sole mutator of payment records.
package ledger

import (
	"sort"
	"sync"

	"github.com/zomasamka-bot/flashpay/internal/clock"
	"github.com/zomasamka-bot/flashpay/internal/core/domain"
	"github.com/zomasamka-bot/flashpay/pkg/logger"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CreateRequest holds the input for a new ledger record. An empty ID gets a
// generated one.
type CreateRequest struct {
	ID     string
	Amount decimal.Decimal
	Note   string
}

// Store is the in-memory ledger of one context.
type Store struct {
	mu        sync.RWMutex
	payments  []domain.Payment // newest first, may hold other merchants' records
	domain    domain.DomainState
	merchant  domain.MerchantContext
	session   domain.Session
	wallet    domain.WalletState
	ui        domain.UIState
	analytics domain.OwnerAnalytics

	clock clock.Clock
	newID func() string
	bus   *bus
	log   zerolog.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithMerchantID seeds the merchant id instead of generating one.
func WithMerchantID(id string) Option {
	return func(s *Store) { s.merchant.MerchantID = id }
}

// WithIDGenerator replaces the payment id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// NewStore creates an empty store with a freshly generated merchant id.
func NewStore(clk clock.Clock, log zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		domain: domain.DomainState{Master: true, Features: map[string]bool{}},
		clock:  clk,
		newID:  uuid.NewString,
		bus:    newBus(),
		log:    logger.Component(log, "ledger"),
	}
	for _, o := range opts {
		o(s)
	}
	if s.merchant.MerchantID == "" {
		s.merchant.MerchantID = uuid.NewString()
	}
	return s
}

// Subscribe registers fn for topic. Callbacks run synchronously after each
// mutation. The returned function unsubscribes.
func (s *Store) Subscribe(topic Topic, fn func(Event)) func() {
	return s.bus.subscribe(topic, fn)
}

// Create records a new PENDING payment for the active merchant. A duplicate id
// is a no-op that returns the existing record and created=false.
func (s *Store) Create(req CreateRequest) (domain.Payment, bool) {
	s.mu.Lock()
	id := req.ID
	if id == "" {
		id = s.newID()
	}
	if existing, ok := s.findLocked(id); ok {
		s.mu.Unlock()
		s.log.Warn().Str("payment_id", id).Msg("duplicate payment id, create ignored")
		return existing.Clone(), false
	}

	now := s.clock.Now().UTC()
	p := domain.Payment{
		ID:         id,
		MerchantID: s.merchant.MerchantID,
		Amount:     req.Amount,
		Note:       req.Note,
		Status:     domain.PaymentStatusPending,
		CreatedAt:  now,
	}
	s.payments = append([]domain.Payment{p}, s.payments...)
	s.analytics.PaymentsCreated++
	s.mu.Unlock()

	s.log.Debug().Str("payment_id", id).Str("merchant_id", p.MerchantID).Msg("payment created")
	s.bus.publish(SourceLocal, id, TopicPayments, TopicOwnerAnalytics)
	return p.Clone(), true
}

// Get returns the payment if it belongs to the active merchant.
func (s *Store) Get(id string) (domain.Payment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.findLocked(id)
	if !ok {
		return domain.Payment{}, false
	}
	return p.Clone(), true
}

// findLocked looks id up within the active merchant's partition.
func (s *Store) findLocked(id string) (domain.Payment, bool) {
	i := s.indexLocked(id)
	if i < 0 {
		return domain.Payment{}, false
	}
	return s.payments[i], true
}

func (s *Store) indexLocked(id string) int {
	for i := range s.payments {
		if s.payments[i].ID == id && s.payments[i].MerchantID == s.merchant.MerchantID {
			return i
		}
	}
	return -1
}

// List returns the active merchant's payments, newest first.
func (s *Store) List() []domain.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.partitionLocked(s.merchant.MerchantID)
}

// PaymentsFor returns the partition of merchantID, newest first.
func (s *Store) PaymentsFor(merchantID string) []domain.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.partitionLocked(merchantID)
}

func (s *Store) partitionLocked(merchantID string) []domain.Payment {
	out := make([]domain.Payment, 0, len(s.payments))
	for _, p := range s.payments {
		if p.MerchantID == merchantID {
			out = append(out, p.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// UpdateStatus transitions a payment. It returns false without mutating when
// the payment is missing, foreign, already PAID, or next is not reachable.
// Moving to PAID stamps paidAt and, when given, txid.
func (s *Store) UpdateStatus(id string, next domain.PaymentStatus, txid string) bool {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	p := &s.payments[i]
	if !p.CanTransition(next) {
		prev := p.Status
		s.mu.Unlock()
		s.log.Warn().Str("payment_id", id).Str("status", string(prev)).Str("next", string(next)).Msg("status transition rejected")
		return false
	}

	p.Status = next
	topics := []Topic{TopicPayments}
	if next == domain.PaymentStatusPaid {
		now := s.clock.Now().UTC()
		p.PaidAt = &now
		if txid != "" {
			tx := txid
			p.TxID = &tx
		}
		s.analytics.PaymentsPaid++
		s.analytics.LastPaymentAt = &now
		topics = append(topics, TopicOwnerAnalytics)
	}
	s.mu.Unlock()

	s.bus.publish(SourceLocal, id, topics...)
	return true
}

// Stats aggregates the active merchant's partition.
func (s *Store) Stats() domain.PaymentStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := domain.PaymentStats{TotalAmount: decimal.Zero, PendingAmount: decimal.Zero}
	for _, p := range s.payments {
		if p.MerchantID != s.merchant.MerchantID {
			continue
		}
		st.TotalPayments++
		switch p.Status {
		case domain.PaymentStatusPending:
			st.PendingPayments++
			st.PendingAmount = st.PendingAmount.Add(p.Amount)
		case domain.PaymentStatusPaid:
			st.PaidPayments++
			st.TotalAmount = st.TotalAmount.Add(p.Amount)
		case domain.PaymentStatusFailed:
			st.FailedPayments++
		case domain.PaymentStatusCancelled:
			st.CancelledPayments++
		}
	}
	if st.TotalPayments > 0 {
		st.ConversionRate = float64(st.PaidPayments) / float64(st.TotalPayments) * 100
	}
	return st
}

// ClearPayments drops every record of the active merchant and returns how
// many were removed. Other partitions are untouched.
func (s *Store) ClearPayments() int {
	s.mu.Lock()
	kept := s.payments[:0]
	removed := 0
	for _, p := range s.payments {
		if p.MerchantID == s.merchant.MerchantID {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	s.payments = kept
	s.mu.Unlock()

	if removed > 0 {
		s.bus.publish(SourceLocal, "", TopicPayments)
	}
	return removed
}

// Rebind makes merchantID the active merchant and moves the records of the
// previous one to it. It returns how many records moved.
func (s *Store) Rebind(merchantID string) int {
	s.mu.Lock()
	from := s.merchant.MerchantID
	if merchantID == "" || merchantID == from {
		s.mu.Unlock()
		return 0
	}
	moved := 0
	for i := range s.payments {
		if s.payments[i].MerchantID == from {
			s.payments[i].MerchantID = merchantID
			moved++
		}
	}
	s.merchant.MerchantID = merchantID
	s.mu.Unlock()

	s.bus.publish(SourceHydrate, "", TopicMerchant, TopicPayments)
	return moved
}

// MerchantID returns the active merchant id.
func (s *Store) MerchantID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.merchant.MerchantID
}

// Merchant returns the merchant section.
func (s *Store) Merchant() domain.MerchantContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.merchant
	if m.ExternalIdentity != nil {
		id := *m.ExternalIdentity
		m.ExternalIdentity = &id
	}
	return m
}

// CompleteSetup records the provider identity and marks setup complete. The
// merchant id itself is never reassigned.
func (s *Store) CompleteSetup(externalIdentity string) {
	s.mu.Lock()
	id := externalIdentity
	s.merchant.ExternalIdentity = &id
	s.merchant.SetupComplete = true
	s.mu.Unlock()
	s.bus.publish(SourceLocal, "", TopicMerchant)
}

// Session returns the session section.
func (s *Store) Session() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// SetSession replaces the session section.
func (s *Store) SetSession(sess domain.Session) {
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
	s.bus.publish(SourceLocal, "", TopicSession)
}

// Wallet returns the wallet section.
func (s *Store) Wallet() domain.WalletState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wallet
}

// SetWallet replaces the wallet section.
func (s *Store) SetWallet(w domain.WalletState) {
	s.mu.Lock()
	s.wallet = w
	s.mu.Unlock()
	s.bus.publish(SourceLocal, "", TopicWallet)
}

// DomainState returns a copy of the feature switches.
func (s *Store) DomainState() domain.DomainState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.domain.Clone()
}

// UpdateDomainState applies fn to the feature switches under the store lock.
func (s *Store) UpdateDomainState(fn func(*domain.DomainState)) {
	s.mu.Lock()
	d := s.domain.Clone()
	fn(&d)
	s.domain = d
	s.mu.Unlock()
	s.bus.publish(SourceLocal, "", TopicDomainState)
}

// UI returns the ui section.
func (s *Store) UI() domain.UIState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ui
}

// SetUI replaces the ui section.
func (s *Store) SetUI(ui domain.UIState) {
	s.mu.Lock()
	s.ui = ui
	s.mu.Unlock()
	s.bus.publish(SourceLocal, "", TopicUI)
}

// OwnerAnalytics returns the running counters.
func (s *Store) OwnerAnalytics() domain.OwnerAnalytics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.analytics
}

// Snapshot returns the full state of the active merchant. LastUpdated and
// SchemaVersion are owned by the persistence layer and left zero.
func (s *Store) Snapshot() domain.LedgerSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.LedgerSnapshot{
		Payments:       s.partitionLocked(s.merchant.MerchantID),
		DomainState:    s.domain.Clone(),
		Merchant:       s.merchant,
		Session:        s.session,
		Wallet:         s.wallet,
		UI:             s.ui,
		OwnerAnalytics: s.analytics,
	}
}

// Global returns the persisted sections (everything except payments).
func (s *Store) Global() domain.GlobalSnapshot {
	snap := s.Snapshot()
	return domain.GlobalSnapshot{
		DomainState:    &snap.DomainState,
		Merchant:       &snap.Merchant,
		Session:        &snap.Session,
		Wallet:         &snap.Wallet,
		UI:             &snap.UI,
		OwnerAnalytics: &snap.OwnerAnalytics,
	}
}

// Hydration is state loaded from storage or received from another context.
// Nil sections are left untouched.
type Hydration struct {
	Global *domain.GlobalSnapshot
	// Payments replaces the partition of PaymentsMerchantID when set.
	Payments           []domain.Payment
	PaymentsMerchantID string
	ReplacePayments    bool
}

// Hydrate merges h into memory and notifies subscribers with SourceHydrate.
func (s *Store) Hydrate(h Hydration) {
	var topics []Topic

	s.mu.Lock()
	if g := h.Global; g != nil {
		if g.DomainState != nil {
			d := g.DomainState.Clone()
			s.domain = d
			topics = append(topics, TopicDomainState)
		}
		if g.Merchant != nil && g.Merchant.MerchantID != "" {
			s.merchant = *g.Merchant
			topics = append(topics, TopicMerchant)
		}
		if g.Session != nil {
			s.session = *g.Session
			topics = append(topics, TopicSession)
		}
		if g.Wallet != nil {
			s.wallet = *g.Wallet
			topics = append(topics, TopicWallet)
		}
		if g.UI != nil {
			s.ui = *g.UI
			topics = append(topics, TopicUI)
		}
		if g.OwnerAnalytics != nil {
			s.analytics = *g.OwnerAnalytics
			topics = append(topics, TopicOwnerAnalytics)
		}
	}
	if h.ReplacePayments {
		s.replacePartitionLocked(h.PaymentsMerchantID, h.Payments)
		topics = append([]Topic{TopicPayments}, topics...)
	}
	s.mu.Unlock()

	s.bus.publish(SourceHydrate, "", topics...)
}

func (s *Store) replacePartitionLocked(merchantID string, payments []domain.Payment) {
	next := make([]domain.Payment, 0, len(s.payments)+len(payments))
	for _, p := range s.payments {
		if p.MerchantID != merchantID {
			next = append(next, p)
		}
	}
	for _, p := range payments {
		if p.MerchantID != merchantID {
			s.log.Warn().Str("payment_id", p.ID).Str("merchant_id", p.MerchantID).Msg("foreign record in payment bucket dropped")
			continue
		}
		next = append(next, p.Clone())
	}
	sort.SliceStable(next, func(i, j int) bool { return next[i].CreatedAt.After(next[j].CreatedAt) })
	s.payments = next
}
