package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zomasamka-bot/flashpay/config"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDBConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "mirror",
		Password: "s3cret",
		DBName:   "flashpay",
		SSLMode:  "require",
	}
}

func TestPoolConfig_AppliesLimits(t *testing.T) {
	cfg := testDBConfig()
	cfg.MaxConns = 12
	cfg.MinConns = 2
	cfg.ConnMaxLifetime = 15 * time.Minute

	pc, err := poolConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, int32(12), pc.MaxConns)
	assert.Equal(t, int32(2), pc.MinConns)
	assert.Equal(t, 15*time.Minute, pc.MaxConnLifetime)
	assert.Equal(t, "db.internal", pc.ConnConfig.Host)
	assert.Equal(t, uint16(5433), pc.ConnConfig.Port)
	assert.Equal(t, "flashpay", pc.ConnConfig.Database)
}

func TestPoolConfig_ZeroKeepsDefaults(t *testing.T) {
	pc, err := poolConfig(testDBConfig())
	require.NoError(t, err)
	assert.Positive(t, pc.MaxConns)
	assert.Positive(t, pc.MaxConnLifetime)
}

func TestPoolConfig_RejectsInvertedLimits(t *testing.T) {
	cfg := testDBConfig()
	cfg.MaxConns = 2
	cfg.MinConns = 5

	_, err := poolConfig(cfg)
	assert.Error(t, err)
}

func TestEnsureSchema_StopsAtFirstFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS payments").WillReturnError(errors.New("permission denied"))

	err = EnsureSchema(context.Background(), mock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.NoError(t, mock.ExpectationsWereMet())
}
