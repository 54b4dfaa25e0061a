// Package guard holds the independent policy checks run before a mutating
// operation and the chain that composes them.
package guard

import (
	"context"
	"errors"

	"github.com/zomasamka-bot/flashpay/internal/core/domain"
	"github.com/zomasamka-bot/flashpay/internal/trail"
	"github.com/zomasamka-bot/flashpay/pkg/apperror"
	"github.com/zomasamka-bot/flashpay/pkg/logger"

	"github.com/rs/zerolog"
)

// Step is one named check in a chain. Check returns nil to pass.
type Step struct {
	Name  string
	Check func(ctx context.Context) error
}

// Chain runs steps in order and stops at the first failure. Every failure
// is written to the error trail before it is returned.
type Chain struct {
	trail *trail.Trail
	log   zerolog.Logger
}

func NewChain(tr *trail.Trail, log zerolog.Logger) *Chain {
	return &Chain{trail: tr, log: logger.Component(log, "guard")}
}

// Run evaluates steps for op. The returned error is an *apperror.AppError
// carrying the tracking id of its error trail entry.
func (c *Chain) Run(ctx context.Context, op domain.Operation, merchantID string, steps ...Step) error {
	for _, s := range steps {
		res, err := c.Evaluate(ctx, op, merchantID, s)
		if !res.Passed {
			return err
		}
	}
	return nil
}

// Evaluate runs a single step and reports it as a GuardResult.
func (c *Chain) Evaluate(ctx context.Context, op domain.Operation, merchantID string, s Step) (domain.GuardResult, error) {
	err := s.Check(ctx)
	if err == nil {
		return domain.GuardResult{Guard: s.Name, Passed: true, TrackingID: trail.NewTrackingID()}, nil
	}

	appErr := asAppError(err)
	outcome := domain.OutcomeDenied
	if appErr.Kind == apperror.KindValidation {
		outcome = domain.OutcomeFailure
	}
	entry := c.trail.RecordError(domain.TrailEntry{
		Operation:  op,
		Outcome:    outcome,
		MerchantID: merchantID,
		Details: map[string]any{
			"guard":  s.Name,
			"code":   appErr.Code,
			"reason": appErr.Message,
		},
	})
	c.log.Warn().
		Str("tracking_id", entry.TrackingID).
		Str("guard", s.Name).
		Str("operation", string(op)).
		Str("reason", appErr.Message).
		Msg("guard failed")

	return domain.GuardResult{
		Guard:      s.Name,
		Passed:     false,
		Reason:     appErr.Message,
		TrackingID: entry.TrackingID,
	}, appErr.WithTracking(entry.TrackingID)
}

func asAppError(err error) *apperror.AppError {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	e := apperror.GuardDenied(err.Error())
	e.Err = err
	return e
}
