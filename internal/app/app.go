// Package app assembles one ledger context: the store, its persistence
// engine, guards, trail, toggles and the services that operate on them.
// Contexts share nothing but the storage medium handed to them.
package app

import (
	"context"
	"fmt"

	"github.com/zomasamka-bot/flashpay/config"
	"github.com/zomasamka-bot/flashpay/internal/adapter/storage/memory"
	"github.com/zomasamka-bot/flashpay/internal/clock"
	"github.com/zomasamka-bot/flashpay/internal/core/domain"
	"github.com/zomasamka-bot/flashpay/internal/core/ports"
	"github.com/zomasamka-bot/flashpay/internal/guard"
	"github.com/zomasamka-bot/flashpay/internal/ledger"
	"github.com/zomasamka-bot/flashpay/internal/persist"
	"github.com/zomasamka-bot/flashpay/internal/service"
	"github.com/zomasamka-bot/flashpay/internal/toggle"
	"github.com/zomasamka-bot/flashpay/internal/trail"

	"github.com/rs/zerolog"
)

// Deps are the collaborators a Context is built over. Storage and Provider
// are required; nil optional ports disable their feature.
type Deps struct {
	Storage  ports.SharedStorage
	Provider ports.PaymentProvider

	Clock     clock.Clock
	Locks     ports.CreationLock
	Window    guard.WindowStore
	Mirror    ports.BackendMirror
	Events    ports.EventPublisher
	Cache     ports.PaymentCache
	AuditSink ports.AuditRepository

	// MerchantID seeds a fresh ledger. A persisted snapshot wins over it.
	MerchantID string
	Async      func(func())
}

// Context is one independently running ledger instance.
type Context struct {
	Store    *ledger.Store
	Engine   *persist.Engine
	Trail    *trail.Trail
	Toggles  *toggle.Manager
	Payments *service.PaymentService
	Session  *service.SessionService

	closers []func() error
	log     zerolog.Logger
}

// New builds a context and rehydrates it from storage.
func New(ctx context.Context, cfg *config.Config, deps Deps, log zerolog.Logger) (*Context, error) {
	if deps.Storage == nil {
		return nil, fmt.Errorf("app: shared storage is required")
	}
	if deps.Provider == nil {
		return nil, fmt.Errorf("app: payment provider is required")
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}
	if deps.Locks == nil {
		deps.Locks = memory.NewLocks(clk)
	}
	if deps.Window == nil {
		deps.Window = guard.NewMemoryWindow()
	}

	var storeOpts []ledger.Option
	if deps.MerchantID != "" {
		storeOpts = append(storeOpts, ledger.WithMerchantID(deps.MerchantID))
	}
	store := ledger.NewStore(clk, log, storeOpts...)

	var trailOpts []trail.Option
	if deps.AuditSink != nil {
		trailOpts = append(trailOpts, trail.WithSink(deps.AuditSink))
	}
	tr := trail.New(trail.Options{
		ErrorCapacity: cfg.Trail.ErrorCapacity,
		AuditCapacity: cfg.Trail.AuditCapacity,
	}, clk, log, trailOpts...)

	engine := persist.NewEngine(store, deps.Storage, persist.Options{
		Keys:          persist.NewKeys(cfg.Storage.KeyPrefix),
		Debounce:      cfg.Sync.Debounce,
		SchemaVersion: cfg.Sync.SchemaVersion,
	}, clk, log)
	if err := engine.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting persistence: %w", err)
	}

	toggles := toggle.NewManager(store, tr, log)

	payments := service.NewPaymentService(service.PaymentDeps{
		Store:           store,
		Trail:           tr,
		Chain:           guard.NewChain(tr, log),
		Limiter:         guard.NewRateLimiter(deps.Window, rateLimitRules(cfg.Guard), clk, log),
		Wallet:          guard.WalletGuard{Enabled: cfg.Guard.WalletEnabled, State: store.Wallet},
		Domain:          guard.DomainGuard{Enabled: cfg.Guard.DomainEnabled, Features: toggles},
		Master:          guard.MasterGuard{Blocking: cfg.Guard.MasterBlocking, Master: toggles.Master, Log: log},
		Toggles:         toggles,
		Provider:        deps.Provider,
		Locks:           deps.Locks,
		Mirror:          deps.Mirror,
		Events:          deps.Events,
		Cache:           deps.Cache,
		Flusher:         engine,
		Clock:           clk,
		ProviderTimeout: cfg.Provider.Timeout,
		CacheTTL:        cfg.Cache.TTL,
		Async:           deps.Async,
	}, log)

	session := service.NewSessionService(store, deps.Provider, tr, clk, domain.ProviderConfig{
		APIKey:  cfg.Provider.APIKey,
		Sandbox: cfg.Provider.SandboxMode,
	}, cfg.Provider.Timeout, log)

	return &Context{
		Store:    store,
		Engine:   engine,
		Trail:    tr,
		Toggles:  toggles,
		Payments: payments,
		Session:  session,
		log:      log,
	}, nil
}

func rateLimitRules(g config.GuardConfig) map[string]guard.Rule {
	rules := make(map[string]guard.Rule, 2)
	for _, op := range []domain.Operation{domain.OperationCreatePayment, domain.OperationExecutePayment} {
		r := g.Rule(string(op))
		rules[string(op)] = guard.Rule{MaxAttempts: r.MaxAttempts, Window: r.Window}
	}
	return rules
}

// OnClose registers fn to run after the engine has flushed.
func (c *Context) OnClose(fn func() error) {
	c.closers = append(c.closers, fn)
}

// Close flushes pending writes, stops syncing and releases adapters in
// reverse order of registration.
func (c *Context) Close() error {
	c.Engine.Close()
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.log.Warn().Err(err).Msg("closing adapter failed")
			if first == nil {
				first = err
			}
		}
	}
	c.closers = nil
	return first
}
