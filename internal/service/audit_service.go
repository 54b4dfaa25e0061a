package service

import (
	"context"

	"github.com/zomasamka-bot/flashpay/internal/core/domain"
	"github.com/zomasamka-bot/flashpay/internal/core/ports"

	"github.com/rs/zerolog"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService creates a new audit service.
// If repo is nil, audit entries are only written to the logger.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Log records an audit entry asynchronously (fire-and-forget).
func (s *auditService) Log(_ context.Context, entry *domain.TrailEntry) {
	go func() {
		s.log.Info().
			Str("tracking_id", entry.TrackingID).
			Str("operation", string(entry.Operation)).
			Str("outcome", string(entry.Outcome)).
			Str("merchant_id", entry.MerchantID).
			Msg("audit")

		if s.repo != nil {
			if err := s.repo.Create(context.Background(), entry); err != nil {
				s.log.Warn().Err(err).Str("operation", string(entry.Operation)).Msg("failed to persist audit entry")
			}
		}
	}()
}
