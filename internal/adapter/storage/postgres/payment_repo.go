package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zomasamka-bot/flashpay/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const paymentColumns = `id, merchant_id, amount, note, status, created_at, paid_at, txid`

// PaymentRepo implements ports.PaymentRepository.
type PaymentRepo struct {
	pool Pool
}

func NewPaymentRepo(pool Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

// Create inserts p unless a row with the same id exists.
func (r *PaymentRepo) Create(ctx context.Context, p *domain.Payment) (bool, error) {
	query := `INSERT INTO payments (id, merchant_id, amount, note, status, created_at, paid_at, txid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		p.ID, p.MerchantID, p.Amount, p.Note, p.Status, p.CreatedAt, p.PaidAt, p.TxID,
	)
	if err != nil {
		return false, fmt.Errorf("insert payment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByID fetches a payment within merchantID. Other merchants' rows read as
// missing.
func (r *PaymentRepo) GetByID(ctx context.Context, merchantID, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 AND merchant_id = $2`
	return r.scanPayment(r.pool.QueryRow(ctx, query, id, merchantID))
}

// UpdateStatus moves a non-PAID payment to status. It returns nil, nil when
// the row is missing or already PAID.
func (r *PaymentRepo) UpdateStatus(ctx context.Context, merchantID, id string, status domain.PaymentStatus, txid *string, paidAt *time.Time) (*domain.Payment, error) {
	query := `UPDATE payments SET status = $1, txid = COALESCE($2, txid), paid_at = $3
		WHERE id = $4 AND merchant_id = $5 AND status <> 'PAID'
		RETURNING ` + paymentColumns

	return r.scanPayment(r.pool.QueryRow(ctx, query, status, txid, paidAt, id, merchantID))
}

// MarkApproved records the provider's approval. It reports whether a row
// matched.
func (r *PaymentRepo) MarkApproved(ctx context.Context, merchantID, id, providerPaymentID string, at time.Time) (bool, error) {
	query := `UPDATE payments SET provider_payment_id = $1, approved_at = $2 WHERE id = $3 AND merchant_id = $4`

	tag, err := r.pool.Exec(ctx, query, providerPaymentID, at, id, merchantID)
	if err != nil {
		return false, fmt.Errorf("mark payment approved: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PaymentRepo) scanPayment(row pgx.Row) (*domain.Payment, error) {
	p := &domain.Payment{}
	err := row.Scan(&p.ID, &p.MerchantID, &p.Amount, &p.Note, &p.Status, &p.CreatedAt, &p.PaidAt, &p.TxID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return p, nil
}
