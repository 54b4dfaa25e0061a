package service

import (
	"context"
	"fmt"
	"time"

	"github.com/zomasamka-bot/flashpay/internal/core/domain"
	"github.com/zomasamka-bot/flashpay/internal/core/ports"
	"github.com/zomasamka-bot/flashpay/internal/guard"
	"github.com/zomasamka-bot/flashpay/pkg/apperror"

	"github.com/rs/zerolog"
)

// MirrorServiceImpl is the backend side of the ledger mirror. Inserts are
// idempotent per payment id and PAID rows never change again.
type MirrorServiceImpl struct {
	repo   ports.PaymentRepository
	events ports.EventPublisher
	now    func() time.Time
	log    zerolog.Logger
}

// NewMirrorService creates a mirror service. events may be nil.
func NewMirrorService(repo ports.PaymentRepository, events ports.EventPublisher, log zerolog.Logger) *MirrorServiceImpl {
	return &MirrorServiceImpl{repo: repo, events: events, now: time.Now, log: log}
}

// Create stores p unless its id already exists, in which case the stored row
// is returned with created=false.
func (s *MirrorServiceImpl) Create(ctx context.Context, p domain.Payment) (*domain.Payment, bool, error) {
	if err := guard.ValidateID(p.ID); err != nil {
		return nil, false, err
	}
	if err := guard.ValidateAmount(p.Amount); err != nil {
		return nil, false, err
	}
	if err := guard.ValidateNote(p.Note); err != nil {
		return nil, false, err
	}
	if p.Status == "" {
		p.Status = domain.PaymentStatusPending
	}
	if !p.Status.Valid() {
		return nil, false, apperror.Validation("Invalid status")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}

	created, err := s.repo.Create(ctx, &p)
	if err != nil {
		return nil, false, apperror.ErrPersistence(fmt.Errorf("create payment: %w", err))
	}
	if !created {
		existing, err := s.repo.GetByID(ctx, p.MerchantID, p.ID)
		if err != nil {
			return nil, false, apperror.ErrPersistence(fmt.Errorf("get payment: %w", err))
		}
		if existing == nil {
			// The id belongs to another merchant. Answer as a lookup of a
			// foreign payment would.
			return nil, false, apperror.ErrNotFound("Payment")
		}
		return existing, false, nil
	}

	s.log.Info().Str("payment_id", p.ID).Str("merchant_id", p.MerchantID).Msg("payment mirrored")
	s.publish(ctx, domain.EventPaymentCreated, p)
	return &p, true, nil
}

// Get returns the merchant's payment or a not-found error.
func (s *MirrorServiceImpl) Get(ctx context.Context, merchantID, paymentID string) (*domain.Payment, error) {
	p, err := s.repo.GetByID(ctx, merchantID, paymentID)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("get payment: %w", err))
	}
	if p == nil {
		return nil, apperror.ErrNotFound("Payment")
	}
	return p, nil
}

// UpdateStatus applies a status transition. A PAID payment answers with a
// conflict.
func (s *MirrorServiceImpl) UpdateStatus(ctx context.Context, req ports.StatusUpdate) (*domain.Payment, error) {
	if !req.Status.Valid() || req.Status == domain.PaymentStatusPending {
		return nil, apperror.Validation("Invalid status")
	}

	current, err := s.Get(ctx, req.MerchantID, req.PaymentID)
	if err != nil {
		return nil, err
	}
	if current.IsTerminal() {
		return nil, apperror.ErrAlreadyPaid()
	}

	paidAt := req.PaidAt
	if req.Status == domain.PaymentStatusPaid && paidAt == nil {
		now := s.now().UTC()
		paidAt = &now
	}
	if req.Status != domain.PaymentStatusPaid {
		paidAt = nil
	}

	updated, err := s.repo.UpdateStatus(ctx, req.MerchantID, req.PaymentID, req.Status, req.TxID, paidAt)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("update payment status: %w", err))
	}
	if updated == nil {
		// Lost a race with another PAID update.
		return nil, apperror.ErrAlreadyPaid()
	}

	s.log.Info().
		Str("payment_id", updated.ID).
		Str("merchant_id", updated.MerchantID).
		Str("status", string(updated.Status)).
		Msg("mirrored payment status updated")
	s.publish(ctx, domain.EventPaymentStatus, *updated)
	return updated, nil
}

// Approve records the provider's approval of a payment.
func (s *MirrorServiceImpl) Approve(ctx context.Context, merchantID, paymentID, providerPaymentID string) error {
	if providerPaymentID == "" {
		return apperror.Validation("Provider payment id is required")
	}
	ok, err := s.repo.MarkApproved(ctx, merchantID, paymentID, providerPaymentID, s.now().UTC())
	if err != nil {
		return apperror.ErrPersistence(fmt.Errorf("approve payment: %w", err))
	}
	if !ok {
		return apperror.ErrNotFound("Payment")
	}
	return nil
}

func (s *MirrorServiceImpl) publish(ctx context.Context, eventType string, p domain.Payment) {
	if s.events == nil {
		return
	}
	ev := domain.PaymentEvent{Type: eventType, Payment: p, OccurredAt: s.now().UTC()}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("payment_id", p.ID).Str("event", eventType).Msg("publishing payment event failed")
	}
}
