package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the lifecycle state of a payment request.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusCancelled:
		return true
	}
	return false
}

// Payment is a merchant-issued payment request tracked in the ledger.
// Amount and MerchantID never change after creation.
type Payment struct {
	ID         string          `json:"id"`
	MerchantID string          `json:"merchantId"`
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note"`
	Status     PaymentStatus   `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
	PaidAt     *time.Time      `json:"paidAt,omitempty"`
	TxID       *string         `json:"txid,omitempty"`
}

// IsTerminal returns true once no further transition is permitted.
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentStatusPaid
}

// IsRetryable returns true if execution may be re-invoked.
func (p *Payment) IsRetryable() bool {
	return p.Status == PaymentStatusFailed || p.Status == PaymentStatusCancelled
}

// CanTransition reports whether p may move to next. PAID is terminal and
// nothing moves back to PENDING.
func (p *Payment) CanTransition(next PaymentStatus) bool {
	if p.IsTerminal() || !next.Valid() {
		return false
	}
	return next != PaymentStatusPending
}

// Clone returns a deep copy so callers never alias ledger-owned pointers.
func (p Payment) Clone() Payment {
	if p.PaidAt != nil {
		t := *p.PaidAt
		p.PaidAt = &t
	}
	if p.TxID != nil {
		s := *p.TxID
		p.TxID = &s
	}
	return p
}

// PaymentStats aggregates the active merchant's ledger.
type PaymentStats struct {
	TotalPayments     int             `json:"totalPayments"`
	PendingPayments   int             `json:"pendingPayments"`
	PaidPayments      int             `json:"paidPayments"`
	FailedPayments    int             `json:"failedPayments"`
	CancelledPayments int             `json:"cancelledPayments"`
	TotalAmount       decimal.Decimal `json:"totalAmount"` // Sum of PAID amounts
	PendingAmount     decimal.Decimal `json:"pendingAmount"`
	ConversionRate    float64         `json:"conversionRate"` // paid/total*100, 0 when empty
}

// BuildCacheKey scopes a payment id to its merchant for secondary caches.
func BuildCacheKey(merchantID, paymentID string) string {
	return merchantID + ":" + paymentID
}

// Payment event types published to downstream consumers.
const (
	EventPaymentCreated = "payment.created"
	EventPaymentStatus  = "payment.status"
)

// PaymentEvent notifies downstream consumers of a ledger change.
type PaymentEvent struct {
	Type       string    `json:"type"`
	TrackingID string    `json:"trackingId"`
	Payment    Payment   `json:"payment"`
	OccurredAt time.Time `json:"occurredAt"`
}
