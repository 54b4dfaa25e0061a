package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zomasamka-bot/flashpay/internal/core/domain"
	"github.com/zomasamka-bot/flashpay/internal/core/ports"
)

type auditRepo struct {
	pool Pool
}

// NewAuditRepository creates a PostgreSQL-backed AuditRepository.
func NewAuditRepository(pool Pool) ports.AuditRepository {
	return &auditRepo{pool: pool}
}

// Create stores entry. Replays of a tracking id are ignored.
func (r *auditRepo) Create(ctx context.Context, entry *domain.TrailEntry) error {
	var details []byte
	if len(entry.Details) > 0 {
		b, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
		details = b
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_trail (tracking_id, operation, outcome, merchant_id, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (tracking_id) DO NOTHING`,
		entry.TrackingID, string(entry.Operation), string(entry.Outcome),
		entry.MerchantID, details, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}
