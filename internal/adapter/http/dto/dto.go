// Package dto holds the wire types of the backend mirror API. The mirror
// client and the gin handlers share them.
package dto

import (
	"fmt"
	"time"

	"github.com/zomasamka-bot/flashpay/internal/core/domain"

	"github.com/shopspring/decimal"
)

// CreatePaymentRequest is the request body for mirroring a new payment.
type CreatePaymentRequest struct {
	ID        string          `json:"id" binding:"required,max=100"`
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note" binding:"max=500"`
	Status    string          `json:"status" binding:"omitempty,payment_status"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
}

// UpdateStatusRequest is the request body for a status transition.
type UpdateStatusRequest struct {
	Status string     `json:"status" binding:"required,payment_status"`
	TxID   *string    `json:"txid,omitempty" binding:"omitempty,max=200"`
	PaidAt *time.Time `json:"paid_at,omitempty"`
}

// ApproveRequest is the request body for recording a provider approval.
type ApproveRequest struct {
	ProviderPaymentID string `json:"provider_payment_id" binding:"required,max=100,safe_id"`
}

// PaymentResponse is the mirrored payment as returned by the API.
type PaymentResponse struct {
	ID         string  `json:"id"`
	MerchantID string  `json:"merchant_id"`
	Amount     string  `json:"amount"`
	Note       string  `json:"note"`
	Status     string  `json:"status"`
	CreatedAt  string  `json:"created_at"`
	PaidAt     *string `json:"paid_at,omitempty"`
	TxID       *string `json:"txid,omitempty"`
}

// NewCreatePaymentRequest builds the create body for p.
func NewCreatePaymentRequest(p domain.Payment) CreatePaymentRequest {
	created := p.CreatedAt
	return CreatePaymentRequest{
		ID:        p.ID,
		Amount:    p.Amount,
		Note:      p.Note,
		Status:    string(p.Status),
		CreatedAt: &created,
	}
}

// Payment converts the request into a domain payment owned by merchantID.
func (r CreatePaymentRequest) Payment(merchantID string) domain.Payment {
	p := domain.Payment{
		ID:         r.ID,
		MerchantID: merchantID,
		Amount:     r.Amount,
		Note:       r.Note,
		Status:     domain.PaymentStatus(r.Status),
	}
	if r.CreatedAt != nil {
		p.CreatedAt = r.CreatedAt.UTC()
	}
	return p
}

// FromPayment builds the response for p.
func FromPayment(p domain.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:         p.ID,
		MerchantID: p.MerchantID,
		Amount:     p.Amount.String(),
		Note:       p.Note,
		Status:     string(p.Status),
		CreatedAt:  p.CreatedAt.UTC().Format(time.RFC3339Nano),
		TxID:       p.TxID,
	}
	if p.PaidAt != nil {
		s := p.PaidAt.UTC().Format(time.RFC3339Nano)
		resp.PaidAt = &s
	}
	return resp
}

// Payment parses the response back into a domain payment.
func (r PaymentResponse) Payment() (domain.Payment, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("parse amount: %w", err)
	}
	created, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("parse created_at: %w", err)
	}
	p := domain.Payment{
		ID:         r.ID,
		MerchantID: r.MerchantID,
		Amount:     amount,
		Note:       r.Note,
		Status:     domain.PaymentStatus(r.Status),
		CreatedAt:  created,
		TxID:       r.TxID,
	}
	if r.PaidAt != nil {
		paid, err := time.Parse(time.RFC3339Nano, *r.PaidAt)
		if err != nil {
			return domain.Payment{}, fmt.Errorf("parse paid_at: %w", err)
		}
		p.PaidAt = &paid
	}
	return p, nil
}

// HealthResponse is the response body of the health endpoint.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
