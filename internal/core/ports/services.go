package ports

import (
	"context"
	"time"

	"github.com/zomasamka-bot/flashpay/internal/core/domain"
)

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

// PaymentProvider is the external wallet provider SDK.
type PaymentProvider interface {
	Init(ctx context.Context, cfg domain.ProviderConfig) error
	// Available reports whether the SDK finished initializing.
	Available() bool
	Authenticate(ctx context.Context, scopes []string) (*domain.AuthResult, error)
	// IssuePayment mints the durable identifier the ledger stores the payment under.
	IssuePayment(ctx context.Context, data domain.PaymentData) (string, error)
	// CreatePayment starts the provider payment flow. onEvent may fire after
	// the call returns and from another goroutine.
	CreatePayment(ctx context.Context, data domain.PaymentData, onEvent func(domain.ProviderEvent)) error
}

// BackendMirror mirrors ledger records to the backend, best-effort.
type BackendMirror interface {
	Create(ctx context.Context, payment domain.Payment) error
	Fetch(ctx context.Context, merchantID, paymentID string) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, payment domain.Payment) error
	Approve(ctx context.Context, merchantID, paymentID, providerPaymentID string) error
}

// EventPublisher emits payment events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.PaymentEvent) error
}

// AuditService records trail entries outside the request path.
type AuditService interface {
	Log(ctx context.Context, entry *domain.TrailEntry)
}

// TokenService issues and validates merchant bearer tokens for the mirror API.
type TokenService interface {
	Generate(merchantID string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	MerchantID string
}

// MirrorService is the backend side of the ledger mirror.
type MirrorService interface {
	Create(ctx context.Context, payment domain.Payment) (*domain.Payment, bool, error)
	Get(ctx context.Context, merchantID, paymentID string) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, req StatusUpdate) (*domain.Payment, error)
	Approve(ctx context.Context, merchantID, paymentID, providerPaymentID string) error
}

// StatusUpdate holds validated input for a mirror status transition.
type StatusUpdate struct {
	MerchantID string
	PaymentID  string
	Status     domain.PaymentStatus
	TxID       *string
	PaidAt     *time.Time
}
