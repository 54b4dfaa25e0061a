package trail

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/zomasamka-bot/flashpay/internal/clock"
	"github.com/zomasamka-bot/flashpay/internal/core/domain"
	"github.com/zomasamka-bot/flashpay/internal/core/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestTrail(errCap, auditCap int) (*Trail, *clock.Manual) {
	clk := clock.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return New(Options{ErrorCapacity: errCap, AuditCapacity: auditCap}, clk, zerolog.Nop()), clk
}

func TestTrail_RecordErrorFillsDefaults(t *testing.T) {
	tr, clk := newTestTrail(10, 10)

	e := tr.RecordError(domain.TrailEntry{Operation: domain.OperationCreatePayment})

	assert.True(t, IsTrackingID(e.TrackingID))
	assert.Equal(t, clk.Now(), e.Timestamp)
	assert.Equal(t, domain.OutcomeFailure, e.Outcome)
	require.Len(t, tr.Errors(), 1)
	assert.Empty(t, tr.Audits())
}

func TestTrail_KeepsCallerTrackingID(t *testing.T) {
	tr, _ := newTestTrail(10, 10)

	e := tr.RecordError(domain.TrailEntry{TrackingID: "trk_given", Operation: domain.OperationExecutePayment, Outcome: domain.OutcomeDenied})

	assert.Equal(t, "trk_given", e.TrackingID)
	found, ok := tr.Find("trk_given")
	require.True(t, ok)
	assert.Equal(t, domain.OutcomeDenied, found.Outcome)
}

func TestTrail_OverflowDropsOldest(t *testing.T) {
	tr, _ := newTestTrail(3, 2)

	for i := 0; i < 5; i++ {
		tr.RecordError(domain.TrailEntry{Operation: domain.OperationCreatePayment, Details: map[string]any{"n": i}})
		tr.RecordAudit(domain.TrailEntry{Operation: domain.OperationCreatePayment, Details: map[string]any{"n": i}})
	}

	errs := tr.Errors()
	require.Len(t, errs, 3)
	assert.Equal(t, 2, errs[0].Details["n"])
	assert.Equal(t, 4, errs[2].Details["n"])

	audits := tr.Audits()
	require.Len(t, audits, 2)
	assert.Equal(t, 3, audits[0].Details["n"])
}

func TestTrail_TrackingIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewTrackingID()
		require.False(t, seen[id], "duplicate tracking id %s", id)
		seen[id] = true
	}
}

func TestTrail_DefaultCapacities(t *testing.T) {
	tr, _ := newTestTrail(0, 0)
	for i := 0; i < DefaultAuditCapacity+10; i++ {
		tr.RecordAudit(domain.TrailEntry{Operation: domain.OperationToggleChange})
	}
	assert.Len(t, tr.Audits(), DefaultAuditCapacity)
}

func TestTrail_Reset(t *testing.T) {
	tr, _ := newTestTrail(5, 5)
	tr.RecordAudit(domain.TrailEntry{Operation: domain.OperationToggleChange})
	tr.RecordError(domain.TrailEntry{Operation: domain.OperationToggleChange})

	tr.Reset()

	assert.Empty(t, tr.Audits())
	assert.Empty(t, tr.Errors())
}

func TestTrail_SinkReceivesEntries(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAuditRepository(ctrl)

	clk := clock.NewManual(time.Unix(0, 0))
	tr := New(Options{}, clk, zerolog.Nop(), WithSink(repo))

	done := make(chan struct{})
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e *domain.TrailEntry) error {
			assert.Equal(t, domain.OperationStatusChange, e.Operation)
			close(done)
			return fmt.Errorf("db down")
		},
	)

	tr.RecordAudit(domain.TrailEntry{Operation: domain.OperationStatusChange})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("trail entry not persisted in time")
	}
}
