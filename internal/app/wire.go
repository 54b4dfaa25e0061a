package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/zomasamka-bot/flashpay/config"
	"github.com/zomasamka-bot/flashpay/internal/adapter/events/kafka"
	"github.com/zomasamka-bot/flashpay/internal/adapter/mirror"
	"github.com/zomasamka-bot/flashpay/internal/adapter/provider/sandbox"
	"github.com/zomasamka-bot/flashpay/internal/adapter/storage/memory"
	redisStore "github.com/zomasamka-bot/flashpay/internal/adapter/storage/redis"
	"github.com/zomasamka-bot/flashpay/internal/adapter/storage/sqlite"
	"github.com/zomasamka-bot/flashpay/internal/service"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Storage drivers accepted in storage.driver.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Open builds a context with the adapters cfg selects. The caller owns the
// result and must Close it so pending writes reach storage.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (_ *Context, err error) {
	var closers []func() error
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				_ = closers[i]()
			}
		}
	}()

	var client *goredis.Client
	if cfg.Storage.Driver == DriverRedis || cfg.Guard.Shared {
		client, err = redisStore.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return nil, err
		}
		closers = append(closers, client.Close)
	}

	var deps Deps
	switch cfg.Storage.Driver {
	case DriverMemory:
		deps.Storage = memory.NewHub().Context()
	case DriverSQLite, "":
		s, err := sqlite.Open(cfg.Storage.SQLitePath, cfg.Storage.PollInterval, log)
		if err != nil {
			return nil, err
		}
		closers = append(closers, s.Close)
		deps.Storage = s
	case DriverRedis:
		deps.Storage = redisStore.NewSharedStorage(client, log)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	if cfg.Guard.Shared {
		deps.Window = redisStore.NewRateLimitStore(client)
		deps.Locks = redisStore.NewLockStore(client)
		deps.Cache = redisStore.NewPaymentCache(client)
	}

	if !cfg.Provider.SandboxMode {
		return nil, fmt.Errorf("no payment provider SDK is linked; set provider.sandbox_mode")
	}
	outcome, err := sandbox.ParseOutcome(cfg.Provider.Outcome)
	if err != nil {
		return nil, err
	}
	deps.Provider = sandbox.New(outcome, "")

	if cfg.Mirror.BaseURL != "" {
		if cfg.JWT.Secret == "" {
			return nil, fmt.Errorf("mirror.base_url is set but jwt.secret is empty")
		}
		tokens := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
		deps.Mirror = mirror.NewClient(cfg.Mirror.BaseURL, &http.Client{Timeout: cfg.Mirror.Timeout},
			tokens, mirror.Options{Retries: cfg.Mirror.Retries}, log)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		pub := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		closers = append(closers, pub.Close)
		deps.Events = pub
	}

	c, err := New(ctx, cfg, deps, log)
	if err != nil {
		return nil, err
	}
	for _, fn := range closers {
		c.OnClose(fn)
	}
	return c, nil
}
