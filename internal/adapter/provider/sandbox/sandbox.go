// Package sandbox is an in-process payment provider with scripted outcomes.
// The CLI uses it in sandbox mode and tests use it to drive the orchestrator.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/zomasamka-bot/flashpay/internal/core/domain"

	"github.com/google/uuid"
)

// Outcome selects how CreatePayment ends.
type Outcome string

const (
	OutcomeComplete Outcome = "complete"
	OutcomeCancel   Outcome = "cancel"
	OutcomeError    Outcome = "error"
	OutcomeHang     Outcome = "hang" // never sends a terminal event
)

// ParseOutcome accepts the configured outcome name, defaulting to complete.
func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return OutcomeComplete, nil
	case OutcomeComplete, OutcomeCancel, OutcomeError, OutcomeHang:
		return o, nil
	}
	return "", fmt.Errorf("unknown sandbox outcome %q", s)
}

// ErrDeclined is the cause reported by OutcomeError.
var ErrDeclined = errors.New("sandbox: payment declined")

// Provider implements ports.PaymentProvider.
type Provider struct {
	Outcome  Outcome
	Identity string
	// Emit runs the event sequence of one CreatePayment. Defaults to a new
	// goroutine, like a real SDK calling back later.
	Emit func(func())

	mu        sync.Mutex
	ready     bool
	initErr   error
	issueErr  error
	createErr error
}

func New(outcome Outcome, identity string) *Provider {
	if identity == "" {
		identity = "sandbox-merchant"
	}
	return &Provider{Outcome: outcome, Identity: identity}
}

// FailInit makes the next Init calls fail with err.
func (p *Provider) FailInit(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.initErr = err
}

// FailIssue makes IssuePayment fail with err.
func (p *Provider) FailIssue(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issueErr = err
}

// FailCreate makes CreatePayment fail synchronously with err.
func (p *Provider) FailCreate(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createErr = err
}

func (p *Provider) Init(ctx context.Context, _ domain.ProviderConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initErr != nil {
		return p.initErr
	}
	p.ready = true
	return nil
}

func (p *Provider) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

func (p *Provider) Authenticate(ctx context.Context, _ []string) (*domain.AuthResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !p.Available() {
		return nil, errors.New("sandbox: sdk not initialized")
	}
	return &domain.AuthResult{Identity: p.Identity, AccessToken: "sandbox-" + uuid.NewString()}, nil
}

func (p *Provider) IssuePayment(ctx context.Context, data domain.PaymentData) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	err := p.issueErr
	p.mu.Unlock()
	if err != nil {
		return "", err
	}
	if !data.Amount.IsPositive() {
		return "", errors.New("sandbox: amount must be positive")
	}
	return "pi_" + uuid.NewString(), nil
}

func (p *Provider) CreatePayment(ctx context.Context, data domain.PaymentData, onEvent func(domain.ProviderEvent)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	err := p.createErr
	p.mu.Unlock()
	if err != nil {
		return err
	}
	if data.PaymentID == "" {
		return errors.New("sandbox: payment id is required")
	}

	providerID := "pp_" + uuid.NewString()
	run := func() {
		switch p.Outcome {
		case OutcomeHang:
			onEvent(domain.ProviderEvent{Kind: domain.ProviderEventApprovalRequested, ProviderPaymentID: providerID})
		case OutcomeCancel:
			onEvent(domain.ProviderEvent{Kind: domain.ProviderEventApprovalRequested, ProviderPaymentID: providerID})
			onEvent(domain.ProviderEvent{Kind: domain.ProviderEventCancelled, ProviderPaymentID: providerID})
		case OutcomeError:
			onEvent(domain.ProviderEvent{Kind: domain.ProviderEventFailed, Err: ErrDeclined})
		default:
			onEvent(domain.ProviderEvent{Kind: domain.ProviderEventApprovalRequested, ProviderPaymentID: providerID})
			onEvent(domain.ProviderEvent{
				Kind:              domain.ProviderEventCompleted,
				ProviderPaymentID: providerID,
				TxID:              "tx_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
			})
		}
	}

	emit := p.Emit
	if emit == nil {
		emit = func(f func()) { go f() }
	}
	emit(run)
	return nil
}
