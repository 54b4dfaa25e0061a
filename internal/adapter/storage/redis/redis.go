// Package redis backs shared storage, rate-limit windows, the payment cache
// and creation locks with Redis, so contexts on different hosts can share a
// ledger.
package redis

import (
	"context"
	"fmt"

	"github.com/zomasamka-bot/flashpay/config"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewClient dials Redis for cfg. The client is closed again if the first
// PING fails, so callers only ever own a reachable client.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	addr := cfg.Addr()
	client := goredis.NewClient(&goredis.Options{Addr: addr, Password: cfg.Password, DB: cfg.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", addr, err)
	}
	log.Info().Str("addr", addr).Int("db", cfg.DB).Msg("redis connected")
	return client, nil
}
