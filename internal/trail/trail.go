// Package trail keeps the bounded, append-only audit and error logs. Every
// entry carries a tracking id that is surfaced to the end user.
package trail

import (
	"context"
	"sync"

	"github.com/zomasamka-bot/flashpay/internal/clock"
	"github.com/zomasamka-bot/flashpay/internal/core/domain"
	"github.com/zomasamka-bot/flashpay/internal/core/ports"
	"github.com/zomasamka-bot/flashpay/pkg/logger"

	"github.com/rs/zerolog"
)

const (
	DefaultErrorCapacity = 100
	DefaultAuditCapacity = 200
)

// Options sizes the two logs.
type Options struct {
	ErrorCapacity int
	AuditCapacity int
}

// Trail holds the error and audit logs of one context.
type Trail struct {
	mu     sync.Mutex
	errors *ring
	audits *ring
	clock  clock.Clock
	sink   ports.AuditRepository
	log    zerolog.Logger
}

// Option customizes a Trail.
type Option func(*Trail)

// WithSink persists every entry through repo, fire-and-forget.
func WithSink(repo ports.AuditRepository) Option {
	return func(t *Trail) { t.sink = repo }
}

// New creates a Trail. Zero capacities fall back to the defaults.
func New(opts Options, clk clock.Clock, log zerolog.Logger, options ...Option) *Trail {
	if opts.ErrorCapacity <= 0 {
		opts.ErrorCapacity = DefaultErrorCapacity
	}
	if opts.AuditCapacity <= 0 {
		opts.AuditCapacity = DefaultAuditCapacity
	}
	t := &Trail{
		errors: newRing(opts.ErrorCapacity),
		audits: newRing(opts.AuditCapacity),
		clock:  clk,
		log:    logger.Component(log, "trail"),
	}
	for _, o := range options {
		o(t)
	}
	return t
}

// RecordError appends e to the error log and returns the stored entry.
// A missing tracking id, timestamp or outcome is filled in.
func (t *Trail) RecordError(e domain.TrailEntry) domain.TrailEntry {
	if e.Outcome == "" {
		e.Outcome = domain.OutcomeFailure
	}
	e = t.append(t.errors, e)
	t.log.Warn().
		Str("tracking_id", e.TrackingID).
		Str("operation", string(e.Operation)).
		Str("outcome", string(e.Outcome)).
		Interface("details", e.Details).
		Msg("operation failed")
	return e
}

// RecordAudit appends e to the audit log and returns the stored entry.
func (t *Trail) RecordAudit(e domain.TrailEntry) domain.TrailEntry {
	if e.Outcome == "" {
		e.Outcome = domain.OutcomeSuccess
	}
	e = t.append(t.audits, e)
	t.log.Info().
		Str("tracking_id", e.TrackingID).
		Str("operation", string(e.Operation)).
		Str("merchant_id", e.MerchantID).
		Msg("audit")
	return e
}

func (t *Trail) append(r *ring, e domain.TrailEntry) domain.TrailEntry {
	if e.TrackingID == "" {
		e.TrackingID = NewTrackingID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = t.clock.Now().UTC()
	}

	t.mu.Lock()
	dropped := r.push(e)
	t.mu.Unlock()

	if dropped {
		t.log.Debug().Str("operation", string(e.Operation)).Msg("trail full, oldest entry dropped")
	}
	if t.sink != nil {
		go func(entry domain.TrailEntry) {
			if err := t.sink.Create(context.Background(), &entry); err != nil {
				t.log.Warn().Err(err).Str("tracking_id", entry.TrackingID).Msg("failed to persist trail entry")
			}
		}(e)
	}
	return e
}

// Errors returns the error log, oldest first.
func (t *Trail) Errors() []domain.ErrorEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errors.items()
}

// Audits returns the audit log, oldest first.
func (t *Trail) Audits() []domain.AuditEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.audits.items()
}

// Find looks a tracking id up in both logs.
func (t *Trail) Find(trackingID string) (domain.TrailEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range []*ring{t.errors, t.audits} {
		for _, e := range r.items() {
			if e.TrackingID == trackingID {
				return e, true
			}
		}
	}
	return domain.TrailEntry{}, false
}

// Reset empties both logs.
func (t *Trail) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors.reset()
	t.audits.reset()
}
