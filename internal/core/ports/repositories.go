package ports

import (
	"context"
	"time"

	"github.com/zomasamka-bot/flashpay/internal/core/domain"
)

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

// PaymentRepository persists mirrored payments on the backend.
type PaymentRepository interface {
	// Create inserts p unless the id exists; created reports which happened.
	Create(ctx context.Context, p *domain.Payment) (created bool, err error)
	// GetByID returns nil, nil when no row matches id within the merchant.
	GetByID(ctx context.Context, merchantID, id string) (*domain.Payment, error)
	// UpdateStatus transitions a non-PAID row. It returns nil, nil when no
	// transition happened (missing or already PAID).
	UpdateStatus(ctx context.Context, merchantID, id string, status domain.PaymentStatus, txid *string, paidAt *time.Time) (*domain.Payment, error)
	MarkApproved(ctx context.Context, merchantID, id, providerPaymentID string, at time.Time) (bool, error)
}

// AuditRepository persists trail entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.TrailEntry) error
}
