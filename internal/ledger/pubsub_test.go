package ledger

import (
	"testing"

	"github.com/zomasamka-bot/flashpay/internal/core/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribe_TopicAndAllOrdering(t *testing.T) {
	s, _ := newTestStore(t, "m-1")

	var order []string
	s.Subscribe(TopicPayments, func(e Event) { order = append(order, "payments:"+e.PaymentID) })
	s.Subscribe(TopicOwnerAnalytics, func(Event) { order = append(order, "analytics") })
	s.Subscribe(TopicAll, func(e Event) {
		order = append(order, "all")
		assert.Equal(t, []Topic{TopicPayments, TopicOwnerAnalytics}, e.Topics)
		assert.Equal(t, SourceLocal, e.Source)
	})

	s.Create(CreateRequest{ID: "p1", Amount: decimal.NewFromInt(1)})

	assert.Equal(t, []string{"payments:p1", "analytics", "all"}, order)
}

func TestSubscribe_OnlyTouchedTopics(t *testing.T) {
	s, _ := newTestStore(t, "m-1")

	var walletHits, paymentHits int
	s.Subscribe(TopicWallet, func(Event) { walletHits++ })
	s.Subscribe(TopicPayments, func(Event) { paymentHits++ })

	s.SetWallet(domain.WalletState{Connected: true})

	assert.Equal(t, 1, walletHits)
	assert.Zero(t, paymentHits)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	s, _ := newTestStore(t, "m-1")

	hits := 0
	unsub := s.Subscribe(TopicAll, func(Event) { hits++ })
	s.SetUI(domain.UIState{LastRoute: "/"})
	unsub()
	unsub()
	s.SetUI(domain.UIState{LastRoute: "/pay"})

	assert.Equal(t, 1, hits)
}

func TestSubscribe_HydrateSource(t *testing.T) {
	s, _ := newTestStore(t, "m-1")

	var got []Event
	s.Subscribe(TopicAll, func(e Event) { got = append(got, e) })

	s.Hydrate(Hydration{Global: &domain.GlobalSnapshot{UI: &domain.UIState{LastRoute: "/x"}}})

	require.Len(t, got, 1)
	assert.Equal(t, SourceHydrate, got[0].Source)
	assert.Equal(t, []Topic{TopicUI}, got[0].Topics)
}

func TestSubscribe_CallbackMayReadStore(t *testing.T) {
	s, _ := newTestStore(t, "m-1")

	var seen int
	s.Subscribe(TopicPayments, func(Event) { seen = len(s.List()) })
	s.Create(CreateRequest{Amount: decimal.NewFromInt(1)})

	assert.Equal(t, 1, seen)
}

func TestSubscribe_FailedUpdateDoesNotNotify(t *testing.T) {
	s, _ := newTestStore(t, "m-1")

	hits := 0
	s.Subscribe(TopicAll, func(Event) { hits++ })
	s.UpdateStatus("missing", domain.PaymentStatusPaid, "")

	assert.Zero(t, hits)
}
