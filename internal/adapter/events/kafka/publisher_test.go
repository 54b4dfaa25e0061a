package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/zomasamka-bot/flashpay/internal/core/domain"
	"github.com/zomasamka-bot/flashpay/internal/core/ports"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.EventPublisher = (*Publisher)(nil)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisherWithWriter(w)

	ev := domain.PaymentEvent{
		Type:       domain.EventPaymentStatus,
		TrackingID: "trk_1",
		Payment: domain.Payment{
			ID:         "pi-1",
			MerchantID: "merchant-1",
			Amount:     decimal.NewFromInt(5),
			Status:     domain.PaymentStatusPaid,
		},
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), ev))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "merchant-1:pi-1", string(msg.Key))
	assert.Equal(t, "payment.status", string(msg.Headers[0].Value))

	var decoded domain.PaymentEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "trk_1", decoded.TrackingID)
	assert.Equal(t, domain.PaymentStatusPaid, decoded.Payment.Status)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublisher_WriteError(t *testing.T) {
	p := NewPublisherWithWriter(&fakeWriter{err: errors.New("broker down")})
	err := p.Publish(context.Background(), domain.PaymentEvent{Type: domain.EventPaymentCreated})
	assert.ErrorContains(t, err, "write payment event")
}

func TestNewPublisher_DefaultTopic(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "")
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, DefaultTopic, w.Topic)
}
