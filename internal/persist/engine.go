// Package persist writes a context's ledger to shared storage and reconciles
// snapshots written by other contexts using last-writer-wins.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zomasamka-bot/flashpay/internal/clock"
	"github.com/zomasamka-bot/flashpay/internal/core/domain"
	"github.com/zomasamka-bot/flashpay/internal/core/ports"
	"github.com/zomasamka-bot/flashpay/internal/ledger"
	"github.com/zomasamka-bot/flashpay/pkg/logger"

	"github.com/rs/zerolog"
)

const DefaultDebounce = 100 * time.Millisecond

// Options tunes an Engine.
type Options struct {
	Keys          Keys
	Debounce      time.Duration
	SchemaVersion int
}

// Engine binds one ledger.Store to shared storage. Storage failures are
// logged and never returned; the in-memory ledger stays authoritative.
//
// Nothing is written over persisted state that has not been read: if the
// snapshot or the active merchant's bucket could not be loaded, writes wait
// until a later read succeeds.
type Engine struct {
	store   *ledger.Store
	storage ports.SharedStorage
	keys    Keys
	schema  int
	version *VersionClock
	buffer  *WriteBuffer
	log     zerolog.Logger

	mu           sync.Mutex // serializes writes and reconciliation
	lastApplied  int64
	globalLoaded bool
	bucketLoaded map[string]bool
	unsubs       []func()

	// touched records sections mutated locally while the snapshot is
	// unreadable. Nil when not tracking.
	touchMu sync.Mutex
	touched map[ledger.Topic]bool

	// queued holds notifications received while rehydrating.
	queueMu   sync.Mutex
	hydrating bool
	queued    [][]byte
}

func NewEngine(store *ledger.Store, storage ports.SharedStorage, opts Options, clk clock.Clock, log zerolog.Logger) *Engine {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.SchemaVersion <= 0 {
		opts.SchemaVersion = domain.CurrentSchemaVersion
	}
	if opts.Keys == (Keys{}) {
		opts.Keys = NewKeys("")
	}
	e := &Engine{
		store:        store,
		storage:      storage,
		keys:         opts.Keys,
		schema:       opts.SchemaVersion,
		version:      NewVersionClock(clk),
		bucketLoaded: make(map[string]bool),
		log:          logger.Component(log, "persist"),
	}
	e.buffer = NewWriteBuffer(clk, opts.Debounce, func() { e.write(context.Background()) })
	return e
}

// Start listens for snapshots written by other contexts, rehydrates the
// store, then begins persisting local mutations. Notifications that arrive
// while rehydrating are applied afterwards.
func (e *Engine) Start(ctx context.Context) error {
	e.queueMu.Lock()
	e.hydrating = true
	e.queueMu.Unlock()

	unsubStorage, err := e.storage.Subscribe(e.keys.Global(), e.onStorageChange)
	if err != nil {
		e.queueMu.Lock()
		e.hydrating = false
		e.queued = nil
		e.queueMu.Unlock()
		return fmt.Errorf("subscribing to %s: %w", e.keys.Global(), err)
	}

	e.Rehydrate(ctx)
	e.drainQueued()

	unsubStore := e.store.Subscribe(ledger.TopicAll, func(ev ledger.Event) {
		if ev.Source != ledger.SourceLocal {
			return
		}
		e.noteLocal(ev.Topics)
		e.buffer.Schedule()
	})

	e.mu.Lock()
	e.unsubs = append(e.unsubs, unsubStorage, unsubStore)
	e.mu.Unlock()
	return nil
}

func (e *Engine) onStorageChange(ch ports.StorageChange) {
	if ch.Value == nil {
		return
	}
	e.queueMu.Lock()
	if e.hydrating {
		e.queued = append(e.queued, ch.Value)
		e.queueMu.Unlock()
		return
	}
	e.queueMu.Unlock()
	e.Reconcile(context.Background(), ch.Value)
}

// drainQueued reconciles notifications held back during rehydration, in
// arrival order, until none are left.
func (e *Engine) drainQueued() {
	for {
		e.queueMu.Lock()
		batch := e.queued
		e.queued = nil
		if len(batch) == 0 {
			e.hydrating = false
			e.queueMu.Unlock()
			return
		}
		e.queueMu.Unlock()

		for _, raw := range batch {
			e.Reconcile(context.Background(), raw)
		}
	}
}

func (e *Engine) noteLocal(topics []ledger.Topic) {
	e.touchMu.Lock()
	defer e.touchMu.Unlock()
	if e.touched == nil {
		return
	}
	for _, t := range topics {
		e.touched[t] = true
	}
}

func (e *Engine) trackLocal() {
	e.touchMu.Lock()
	e.touched = make(map[ledger.Topic]bool)
	e.touchMu.Unlock()
}

func (e *Engine) stopTracking() map[ledger.Topic]bool {
	e.touchMu.Lock()
	defer e.touchMu.Unlock()
	t := e.touched
	e.touched = nil
	return t
}

// Rehydrate loads the persisted global snapshot and the active merchant's
// payment bucket into the store. Missing or corrupt data leaves the store's
// defaults in place. Data that could not be read is retried before the next
// write.
func (e *Engine) Rehydrate(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	dirty := false
	h := ledger.Hydration{}

	raw, err := e.storage.Get(ctx, e.keys.Global())
	switch {
	case err != nil:
		e.log.Error().Err(err).Str("key", e.keys.Global()).Msg("reading snapshot failed, writes held until it can be read")
		e.trackLocal()
	case raw == nil:
		e.globalLoaded = true
		dirty = true
	default:
		e.globalLoaded = true
		var g domain.GlobalSnapshot
		if err := json.Unmarshal(raw, &g); err != nil {
			e.log.Error().Err(err).Str("key", e.keys.Global()).Msg("corrupt snapshot ignored")
			dirty = true
			break
		}
		if migrateGlobal(&g) {
			e.log.Info().Int("schema_version", g.SchemaVersion).Msg("snapshot migrated")
			dirty = true
		}
		if g.Merchant == nil || g.Merchant.MerchantID == "" {
			dirty = true
		}
		e.version.Observe(g.LastUpdated)
		e.lastApplied = g.LastUpdated
		h.Global = &g
	}

	// Hydrate the global sections first so the bucket is read for the
	// merchant that snapshot names.
	if h.Global != nil {
		e.store.Hydrate(h)
	}

	merchantID := e.store.MerchantID()
	payments, migrated, err := e.readBucket(ctx, merchantID)
	e.bucketLoaded[merchantID] = bucketReadable(err)
	switch {
	case err == nil:
		e.store.Hydrate(ledger.Hydration{Payments: payments, PaymentsMerchantID: merchantID, ReplacePayments: true})
		if migrated {
			dirty = true
		}
	case errors.Is(err, errCorruptBucket):
		dirty = true
	}

	if dirty && e.globalLoaded {
		e.buffer.Schedule()
	}
}

var errCorruptBucket = errors.New("corrupt payment bucket")

// bucketReadable reports whether a bucket read got an answer from storage.
// A corrupt bucket counts: it is safe to overwrite.
func bucketReadable(err error) bool {
	return err == nil || errors.Is(err, errCorruptBucket)
}

// readBucket loads and upgrades the payment bucket of merchantID. A missing
// bucket yields an empty, non-nil list. A storage failure is returned as is;
// undecodable data wraps errCorruptBucket.
func (e *Engine) readBucket(ctx context.Context, merchantID string) (payments []domain.Payment, migrated bool, err error) {
	key := e.keys.Payments(merchantID)
	raw, err := e.storage.Get(ctx, key)
	if err != nil {
		e.log.Error().Err(err).Str("key", key).Msg("reading payment bucket failed")
		return nil, false, err
	}
	if raw == nil {
		return []domain.Payment{}, false, nil
	}
	var b domain.PaymentBucket
	if err := json.Unmarshal(raw, &b); err != nil {
		e.log.Error().Err(err).Str("key", key).Msg("corrupt payment bucket ignored")
		return nil, false, fmt.Errorf("%w: %v", errCorruptBucket, err)
	}
	migrated = migrateBucket(&b, merchantID)
	if b.Payments == nil {
		b.Payments = []domain.Payment{}
	}
	return b.Payments, migrated, nil
}

// recoverGlobalLocked reads a snapshot that was unreadable at startup. It
// reports false if storage still fails. Sections mutated locally since then
// keep their local values.
func (e *Engine) recoverGlobalLocked(ctx context.Context) bool {
	raw, err := e.storage.Get(ctx, e.keys.Global())
	if err != nil {
		e.log.Warn().Err(err).Str("key", e.keys.Global()).Msg("snapshot still unreadable, write held")
		return false
	}
	e.globalLoaded = true
	touched := e.stopTracking()
	if raw == nil {
		return true
	}
	var g domain.GlobalSnapshot
	if err := json.Unmarshal(raw, &g); err != nil {
		e.log.Error().Err(err).Str("key", e.keys.Global()).Msg("corrupt snapshot ignored")
		return true
	}
	migrateGlobal(&g)
	e.version.Observe(g.LastUpdated)
	e.adoptMerchantLocked(&g)

	if touched[ledger.TopicDomainState] {
		g.DomainState = nil
	}
	if touched[ledger.TopicMerchant] {
		g.Merchant = nil
	}
	if touched[ledger.TopicSession] {
		g.Session = nil
	}
	if touched[ledger.TopicWallet] {
		g.Wallet = nil
	}
	if touched[ledger.TopicUI] {
		g.UI = nil
	}
	if touched[ledger.TopicOwnerAnalytics] {
		g.OwnerAnalytics = nil
	}
	e.store.Hydrate(ledger.Hydration{Global: &g})
	e.log.Info().Int64("last_updated", g.LastUpdated).Msg("snapshot recovered")
	return true
}

// adoptMerchantLocked switches to the merchant g names when the active one
// was only provisional because the snapshot could not be read. Records made
// under the provisional id move with it.
func (e *Engine) adoptMerchantLocked(g *domain.GlobalSnapshot) {
	if g.Merchant == nil || g.Merchant.MerchantID == "" {
		return
	}
	from := e.store.MerchantID()
	if from == g.Merchant.MerchantID {
		return
	}
	moved := e.store.Rebind(g.Merchant.MerchantID)
	e.log.Warn().
		Str("from", from).
		Str("merchant_id", g.Merchant.MerchantID).
		Int("payments", moved).
		Msg("persisted merchant adopted")
}

// recoverBucketLocked reads a bucket that was unreadable before and merges
// it under the local records. It reports false if storage still fails.
func (e *Engine) recoverBucketLocked(ctx context.Context, merchantID string) bool {
	stored, _, err := e.readBucket(ctx, merchantID)
	if !bucketReadable(err) {
		return false
	}
	e.bucketLoaded[merchantID] = true
	if err != nil {
		return true
	}
	merged := mergePayments(stored, e.store.PaymentsFor(merchantID))
	e.store.Hydrate(ledger.Hydration{Payments: merged, PaymentsMerchantID: merchantID, ReplacePayments: true})
	return true
}

// mergePayments overlays local records on stored ones by id.
func mergePayments(stored, local []domain.Payment) []domain.Payment {
	out := make([]domain.Payment, 0, len(stored)+len(local))
	seen := make(map[string]bool, len(local))
	for _, p := range local {
		seen[p.ID] = true
		out = append(out, p)
	}
	for _, p := range stored {
		if !seen[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

// Flush writes pending changes now instead of waiting for the debounce
// window.
func (e *Engine) Flush() bool {
	return e.buffer.Flush()
}

// Pending reports whether a write is queued.
func (e *Engine) Pending() bool {
	return e.buffer.Pending()
}

// LastApplied is the lastUpdated of the state currently in memory.
func (e *Engine) LastApplied() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastApplied
}

func (e *Engine) write(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.globalLoaded && !e.recoverGlobalLocked(ctx) {
		e.buffer.Hold()
		return
	}

	merchantID := e.store.MerchantID()
	bucketOK := e.bucketLoaded[merchantID] || e.recoverBucketLocked(ctx, merchantID)

	ts := e.version.Next()
	payments := e.store.PaymentsFor(merchantID)

	bucketKey := e.keys.Payments(merchantID)
	switch {
	case !bucketOK:
		e.log.Warn().Str("key", bucketKey).Msg("payment bucket still unreadable, bucket write held")
		e.buffer.Hold()
	case len(payments) == 0:
		if err := e.storage.Delete(ctx, bucketKey); err != nil {
			e.log.Error().Err(err).Str("key", bucketKey).Msg("deleting payment bucket failed")
		}
	default:
		bucket := domain.PaymentBucket{MerchantID: merchantID, Payments: payments, LastUpdated: ts, SchemaVersion: e.schema}
		if err := e.put(ctx, bucketKey, bucket); err != nil {
			e.log.Error().Err(err).Str("key", bucketKey).Msg("writing payment bucket failed")
		}
	}

	g := e.store.Global()
	g.LastUpdated = ts
	g.SchemaVersion = e.schema
	if err := e.put(ctx, e.keys.Global(), g); err != nil {
		e.log.Error().Err(err).Str("key", e.keys.Global()).Msg("writing snapshot failed")
		return
	}
	e.lastApplied = ts
	e.log.Debug().Int64("last_updated", ts).Int("payments", len(payments)).Msg("state persisted")
}

func (e *Engine) put(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return e.storage.Set(ctx, key, raw)
}

// Reconcile applies a global snapshot written by another context if its
// lastUpdated is strictly greater than the local one, and reports whether it
// did. The payment bucket of the snapshot's merchant is reloaded with it.
func (e *Engine) Reconcile(ctx context.Context, raw []byte) bool {
	var g domain.GlobalSnapshot
	if err := json.Unmarshal(raw, &g); err != nil {
		e.log.Warn().Err(err).Msg("undecodable snapshot notification ignored")
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.version.Observe(g.LastUpdated)
	if g.LastUpdated <= e.lastApplied {
		e.log.Debug().
			Int64("incoming", g.LastUpdated).
			Int64("local", e.lastApplied).
			Msg("stale snapshot discarded")
		return false
	}
	migrateGlobal(&g)
	e.lastApplied = g.LastUpdated
	if !e.globalLoaded {
		e.globalLoaded = true
		e.stopTracking()
		e.adoptMerchantLocked(&g)
	}

	h := ledger.Hydration{Global: &g}
	merchantID := e.store.MerchantID()
	if g.Merchant != nil && g.Merchant.MerchantID != "" {
		merchantID = g.Merchant.MerchantID
	}
	// A bucket that cannot be read leaves the local partition alone. One
	// read for the first time is merged under records made before it.
	wasLoaded := e.bucketLoaded[merchantID]
	payments, _, err := e.readBucket(ctx, merchantID)
	e.bucketLoaded[merchantID] = bucketReadable(err)
	if err == nil {
		if !wasLoaded {
			payments = mergePayments(payments, e.store.PaymentsFor(merchantID))
		}
		h.Payments = payments
		h.PaymentsMerchantID = merchantID
		h.ReplacePayments = true
	}

	e.store.Hydrate(h)
	e.log.Debug().Int64("last_updated", g.LastUpdated).Msg("snapshot reconciled")
	return true
}

// Close flushes pending writes and stops listening.
func (e *Engine) Close() {
	e.mu.Lock()
	unsubs := e.unsubs
	e.unsubs = nil
	e.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	e.buffer.Stop()
}
