package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zomasamka-bot/flashpay/internal/core/domain"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepository(mock)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := &domain.TrailEntry{
		TrackingID: "trk_1",
		Timestamp:  ts,
		Operation:  domain.OperationCreatePayment,
		Outcome:    domain.OutcomeSuccess,
		MerchantID: "merchant-1",
		Details:    map[string]any{"payment_id": "pi-1"},
	}

	mock.ExpectExec("INSERT INTO audit_trail").
		WithArgs("trk_1", "create_payment", "success", "merchant-1", []byte(`{"payment_id":"pi-1"}`), ts).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_Create_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO audit_trail").
		WithArgs("trk_2", "", "", "", []byte(nil), time.Time{}).
		WillReturnError(errors.New("disk full"))

	err = NewAuditRepository(mock).Create(context.Background(), &domain.TrailEntry{TrackingID: "trk_2"})
	assert.ErrorContains(t, err, "insert audit entry")
}

func TestEnsureSchemaAndHealth(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS payments").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS audit_trail").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	require.NoError(t, EnsureSchema(context.Background(), mock))

	hc := NewHealthCheck(mock)
	mock.ExpectExec("SELECT 1").WillReturnResult(pgxmock.NewResult("SELECT", 1))
	assert.NoError(t, hc.Ping(context.Background()))
	assert.Equal(t, "postgresql", hc.Name())
	assert.NoError(t, mock.ExpectationsWereMet())
}
