package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/zomasamka-bot/flashpay/internal/clock"
	"github.com/zomasamka-bot/flashpay/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, merchantID string) (*Store, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	n := 0
	s := NewStore(clk, zerolog.Nop(),
		WithMerchantID(merchantID),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("pay-%d", n)
		}),
	)
	return s, clk
}

func TestNewStore_GeneratesMerchantID(t *testing.T) {
	s := NewStore(clock.NewManual(time.Now()), zerolog.Nop())
	assert.NotEmpty(t, s.MerchantID())
	assert.True(t, s.DomainState().Master)
}

func TestStore_CreateAndGet(t *testing.T) {
	s, clk := newTestStore(t, "m-1")

	p, created := s.Create(CreateRequest{Amount: decimal.NewFromInt(5), Note: "coffee"})
	require.True(t, created)
	assert.Equal(t, "pay-1", p.ID)
	assert.Equal(t, "m-1", p.MerchantID)
	assert.Equal(t, domain.PaymentStatusPending, p.Status)
	assert.Equal(t, clk.Now(), p.CreatedAt)
	assert.Nil(t, p.PaidAt)

	got, ok := s.Get(p.ID)
	require.True(t, ok)
	assert.Equal(t, "coffee", got.Note)
	assert.True(t, decimal.NewFromInt(5).Equal(got.Amount))
	assert.Equal(t, 1, s.OwnerAnalytics().PaymentsCreated)
}

func TestStore_CreateDuplicateIsNoop(t *testing.T) {
	s, _ := newTestStore(t, "m-1")

	first, created := s.Create(CreateRequest{ID: "ext-1", Amount: decimal.NewFromInt(5)})
	require.True(t, created)

	again, created := s.Create(CreateRequest{ID: "ext-1", Amount: decimal.NewFromInt(9), Note: "other"})
	assert.False(t, created)
	assert.Equal(t, first, again)
	assert.Len(t, s.List(), 1)
	assert.Equal(t, 1, s.OwnerAnalytics().PaymentsCreated)
}

func TestStore_GetMissing(t *testing.T) {
	s, _ := newTestStore(t, "m-1")
	_, ok := s.Get("nope")
	assert.False(t, ok)
}

func TestStore_ListNewestFirst(t *testing.T) {
	s, clk := newTestStore(t, "m-1")

	s.Create(CreateRequest{Amount: decimal.NewFromInt(1)})
	clk.Advance(time.Second)
	s.Create(CreateRequest{Amount: decimal.NewFromInt(2)})
	clk.Advance(time.Second)
	s.Create(CreateRequest{Amount: decimal.NewFromInt(3)})

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, "pay-3", list[0].ID)
	assert.Equal(t, "pay-1", list[2].ID)
}

func TestStore_UpdateStatusPaid(t *testing.T) {
	s, clk := newTestStore(t, "m-1")
	p, _ := s.Create(CreateRequest{Amount: decimal.NewFromInt(5)})

	clk.Advance(2 * time.Second)
	paidAt := clk.Now()
	require.True(t, s.UpdateStatus(p.ID, domain.PaymentStatusPaid, "abc"))

	got, _ := s.Get(p.ID)
	assert.Equal(t, domain.PaymentStatusPaid, got.Status)
	require.NotNil(t, got.PaidAt)
	assert.Equal(t, paidAt, *got.PaidAt)
	require.NotNil(t, got.TxID)
	assert.Equal(t, "abc", *got.TxID)

	a := s.OwnerAnalytics()
	assert.Equal(t, 1, a.PaymentsPaid)
	require.NotNil(t, a.LastPaymentAt)

	// PAID is terminal.
	clk.Advance(time.Minute)
	assert.False(t, s.UpdateStatus(p.ID, domain.PaymentStatusPaid, "xyz"))
	assert.False(t, s.UpdateStatus(p.ID, domain.PaymentStatusFailed, ""))

	again, _ := s.Get(p.ID)
	assert.Equal(t, paidAt, *again.PaidAt)
	assert.Equal(t, "abc", *again.TxID)
}

func TestStore_UpdateStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from domain.PaymentStatus
		to   domain.PaymentStatus
		ok   bool
	}{
		{"pending to failed", domain.PaymentStatusPending, domain.PaymentStatusFailed, true},
		{"pending to cancelled", domain.PaymentStatusPending, domain.PaymentStatusCancelled, true},
		{"failed to paid", domain.PaymentStatusFailed, domain.PaymentStatusPaid, true},
		{"cancelled to failed", domain.PaymentStatusCancelled, domain.PaymentStatusFailed, true},
		{"failed to pending", domain.PaymentStatusFailed, domain.PaymentStatusPending, false},
		{"pending to unknown", domain.PaymentStatusPending, domain.PaymentStatus("REFUNDED"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(t, "m-1")
			p, _ := s.Create(CreateRequest{Amount: decimal.NewFromInt(1)})
			if tt.from != domain.PaymentStatusPending {
				require.True(t, s.UpdateStatus(p.ID, tt.from, ""))
			}
			assert.Equal(t, tt.ok, s.UpdateStatus(p.ID, tt.to, ""))
		})
	}
}

func TestStore_UpdateStatusMissing(t *testing.T) {
	s, _ := newTestStore(t, "m-1")
	assert.False(t, s.UpdateStatus("nope", domain.PaymentStatusPaid, "abc"))
}

func TestStore_Stats(t *testing.T) {
	s, _ := newTestStore(t, "m-1")

	empty := s.Stats()
	assert.Equal(t, 0, empty.TotalPayments)
	assert.Zero(t, empty.ConversionRate)
	assert.True(t, empty.TotalAmount.IsZero())

	p, _ := s.Create(CreateRequest{Amount: decimal.NewFromInt(5), Note: "coffee"})
	require.True(t, s.UpdateStatus(p.ID, domain.PaymentStatusPaid, "abc"))

	st := s.Stats()
	assert.Equal(t, 1, st.TotalPayments)
	assert.Equal(t, 1, st.PaidPayments)
	assert.True(t, decimal.NewFromInt(5).Equal(st.TotalAmount))
	assert.InDelta(t, 100.0, st.ConversionRate, 0.0001)

	s.Create(CreateRequest{Amount: decimal.RequireFromString("2.5")})
	f, _ := s.Create(CreateRequest{Amount: decimal.NewFromInt(1)})
	require.True(t, s.UpdateStatus(f.ID, domain.PaymentStatusFailed, ""))
	c, _ := s.Create(CreateRequest{Amount: decimal.NewFromInt(1)})
	require.True(t, s.UpdateStatus(c.ID, domain.PaymentStatusCancelled, ""))

	st = s.Stats()
	assert.Equal(t, 4, st.TotalPayments)
	assert.Equal(t, 1, st.PendingPayments)
	assert.Equal(t, 1, st.FailedPayments)
	assert.Equal(t, 1, st.CancelledPayments)
	assert.True(t, decimal.RequireFromString("2.5").Equal(st.PendingAmount))
	assert.True(t, decimal.NewFromInt(5).Equal(st.TotalAmount))
	assert.InDelta(t, 25.0, st.ConversionRate, 0.0001)
}

func TestStore_MerchantIsolation(t *testing.T) {
	s, clk := newTestStore(t, "m-1")
	mine, _ := s.Create(CreateRequest{ID: "shared-id", Amount: decimal.NewFromInt(5)})

	foreign := domain.Payment{
		ID:         "foreign-1",
		MerchantID: "m-2",
		Amount:     decimal.NewFromInt(7),
		Status:     domain.PaymentStatusPending,
		CreatedAt:  clk.Now(),
	}
	s.Hydrate(Hydration{Payments: []domain.Payment{foreign}, PaymentsMerchantID: "m-2", ReplacePayments: true})

	_, ok := s.Get("foreign-1")
	assert.False(t, ok)
	assert.False(t, s.UpdateStatus("foreign-1", domain.PaymentStatusPaid, "x"))
	assert.Len(t, s.List(), 1)
	assert.Equal(t, 1, s.Stats().TotalPayments)
	assert.Len(t, s.PaymentsFor("m-2"), 1)

	got, ok := s.Get(mine.ID)
	require.True(t, ok)
	assert.Equal(t, "m-1", got.MerchantID)
}

func TestStore_HydrateDropsForeignBucketRecords(t *testing.T) {
	s, clk := newTestStore(t, "m-1")

	bucket := []domain.Payment{
		{ID: "a", MerchantID: "m-1", Amount: decimal.NewFromInt(1), Status: domain.PaymentStatusPending, CreatedAt: clk.Now()},
		{ID: "b", MerchantID: "m-9", Amount: decimal.NewFromInt(1), Status: domain.PaymentStatusPending, CreatedAt: clk.Now()},
	}
	s.Hydrate(Hydration{Payments: bucket, PaymentsMerchantID: "m-1", ReplacePayments: true})

	list := s.List()
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].ID)
	assert.Empty(t, s.PaymentsFor("m-9"))
}

func TestStore_HydrateKeepsMerchantWhenIncomingEmpty(t *testing.T) {
	s, _ := newTestStore(t, "m-1")

	s.Hydrate(Hydration{Global: &domain.GlobalSnapshot{
		Merchant: &domain.MerchantContext{},
		UI:       &domain.UIState{LastRoute: "/pay"},
	}})

	assert.Equal(t, "m-1", s.MerchantID())
	assert.Equal(t, "/pay", s.UI().LastRoute)
}

func TestStore_ClearPayments(t *testing.T) {
	s, clk := newTestStore(t, "m-1")
	s.Create(CreateRequest{Amount: decimal.NewFromInt(1)})
	s.Create(CreateRequest{Amount: decimal.NewFromInt(2)})
	s.Hydrate(Hydration{
		Payments: []domain.Payment{{ID: "x", MerchantID: "m-2", Amount: decimal.NewFromInt(1), Status: domain.PaymentStatusPending, CreatedAt: clk.Now()}},
		PaymentsMerchantID: "m-2", ReplacePayments: true,
	})

	assert.Equal(t, 2, s.ClearPayments())
	assert.Empty(t, s.List())
	assert.Len(t, s.PaymentsFor("m-2"), 1)
	assert.Equal(t, 0, s.ClearPayments())
}

func TestStore_RebindMovesActivePartition(t *testing.T) {
	s, clk := newTestStore(t, "provisional")
	s.Create(CreateRequest{ID: "p1", Amount: decimal.NewFromInt(1)})
	s.Hydrate(Hydration{
		Payments:           []domain.Payment{{ID: "x", MerchantID: "m-2", Amount: decimal.NewFromInt(1), Status: domain.PaymentStatusPending, CreatedAt: clk.Now()}},
		PaymentsMerchantID: "m-2", ReplacePayments: true,
	})

	var sources []Source
	s.Subscribe(TopicAll, func(ev Event) { sources = append(sources, ev.Source) })

	assert.Equal(t, 1, s.Rebind("m-1"))
	assert.Equal(t, "m-1", s.MerchantID())
	got, ok := s.Get("p1")
	require.True(t, ok)
	assert.Equal(t, "m-1", got.MerchantID)
	assert.Len(t, s.PaymentsFor("m-2"), 1)
	assert.Empty(t, s.PaymentsFor("provisional"))
	assert.Equal(t, []Source{SourceHydrate}, sources)

	assert.Zero(t, s.Rebind("m-1"))
	assert.Zero(t, s.Rebind(""))
	assert.Len(t, sources, 1)
}

func TestStore_CompleteSetupKeepsMerchantID(t *testing.T) {
	s, _ := newTestStore(t, "m-1")

	s.CompleteSetup("pioneer-42")

	m := s.Merchant()
	assert.Equal(t, "m-1", m.MerchantID)
	assert.True(t, m.SetupComplete)
	require.NotNil(t, m.ExternalIdentity)
	assert.Equal(t, "pioneer-42", *m.ExternalIdentity)
}

func TestStore_UpdateDomainStateIsolatesMap(t *testing.T) {
	s, _ := newTestStore(t, "m-1")

	s.UpdateDomainState(func(d *domain.DomainState) { d.Features["payments"] = true })
	d := s.DomainState()
	d.Features["payments"] = false

	assert.True(t, s.DomainState().Features["payments"])
}

func TestStore_SnapshotCarriesSections(t *testing.T) {
	s, _ := newTestStore(t, "m-1")
	s.Create(CreateRequest{Amount: decimal.NewFromInt(1)})
	s.SetSession(domain.Session{Authenticated: true, MerchantID: "m-1"})
	s.SetWallet(domain.WalletState{SDKAvailable: true, Connected: true, Identity: "pioneer"})

	snap := s.Snapshot()
	assert.Len(t, snap.Payments, 1)
	assert.True(t, snap.Session.Authenticated)
	assert.True(t, snap.Wallet.Connected)
	assert.Equal(t, "m-1", snap.Merchant.MerchantID)

	g := s.Global()
	require.NotNil(t, g.Wallet)
	assert.Equal(t, "pioneer", g.Wallet.Identity)
}
