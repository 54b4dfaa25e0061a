package sandbox

import (
	"context"
	"errors"
	"testing"

	"github.com/zomasamka-bot/flashpay/internal/core/domain"
	"github.com/zomasamka-bot/flashpay/internal/core/ports"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.PaymentProvider = (*Provider)(nil)

func syncProvider(o Outcome) *Provider {
	p := New(o, "")
	p.Emit = func(f func()) { f() }
	return p
}

func collect(t *testing.T, p *Provider) []domain.ProviderEvent {
	t.Helper()
	var events []domain.ProviderEvent
	err := p.CreatePayment(context.Background(),
		domain.PaymentData{PaymentID: "pi-1", Amount: decimal.NewFromInt(5)},
		func(ev domain.ProviderEvent) { events = append(events, ev) })
	require.NoError(t, err)
	return events
}

func TestParseOutcome(t *testing.T) {
	o, err := ParseOutcome("")
	require.NoError(t, err)
	assert.Equal(t, OutcomeComplete, o)

	o, err = ParseOutcome(" Cancel ")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancel, o)

	_, err = ParseOutcome("refund")
	assert.Error(t, err)
}

func TestProvider_Outcomes(t *testing.T) {
	events := collect(t, syncProvider(OutcomeComplete))
	require.Len(t, events, 2)
	assert.Equal(t, domain.ProviderEventApprovalRequested, events[0].Kind)
	assert.Equal(t, domain.ProviderEventCompleted, events[1].Kind)
	assert.NotEmpty(t, events[1].TxID)
	assert.Equal(t, events[0].ProviderPaymentID, events[1].ProviderPaymentID)

	events = collect(t, syncProvider(OutcomeCancel))
	require.Len(t, events, 2)
	assert.Equal(t, domain.ProviderEventCancelled, events[1].Kind)

	events = collect(t, syncProvider(OutcomeError))
	require.Len(t, events, 1)
	assert.ErrorIs(t, events[0].Err, ErrDeclined)

	events = collect(t, syncProvider(OutcomeHang))
	require.Len(t, events, 1)
	assert.Equal(t, domain.ProviderEventApprovalRequested, events[0].Kind)
}

func TestProvider_InitAndAuthenticate(t *testing.T) {
	p := New(OutcomeComplete, "pioneer")
	ctx := context.Background()

	_, err := p.Authenticate(ctx, nil)
	assert.Error(t, err, "authenticate before init")

	require.NoError(t, p.Init(ctx, domain.ProviderConfig{Sandbox: true}))
	assert.True(t, p.Available())

	auth, err := p.Authenticate(ctx, []string{"payments"})
	require.NoError(t, err)
	assert.Equal(t, "pioneer", auth.Identity)

	p2 := New(OutcomeComplete, "")
	p2.FailInit(errors.New("sdk missing"))
	assert.Error(t, p2.Init(ctx, domain.ProviderConfig{}))
	assert.False(t, p2.Available())
}

func TestProvider_IssuePayment(t *testing.T) {
	p := New(OutcomeComplete, "")
	ctx := context.Background()

	id, err := p.IssuePayment(ctx, domain.PaymentData{Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)
	assert.Contains(t, id, "pi_")

	_, err = p.IssuePayment(ctx, domain.PaymentData{})
	assert.Error(t, err)

	p.FailIssue(errors.New("offline"))
	_, err = p.IssuePayment(ctx, domain.PaymentData{Amount: decimal.NewFromInt(1)})
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = New(OutcomeComplete, "").IssuePayment(cancelled, domain.PaymentData{Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProvider_CreateFailure(t *testing.T) {
	p := syncProvider(OutcomeComplete)
	p.FailCreate(errors.New("sdk busy"))
	err := p.CreatePayment(context.Background(), domain.PaymentData{PaymentID: "pi-1"}, func(domain.ProviderEvent) {
		t.Fatal("no events expected")
	})
	assert.Error(t, err)
}
