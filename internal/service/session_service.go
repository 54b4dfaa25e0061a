package service

import (
	"context"
	"time"

	"github.com/zomasamka-bot/flashpay/internal/clock"
	"github.com/zomasamka-bot/flashpay/internal/core/domain"
	"github.com/zomasamka-bot/flashpay/internal/core/ports"
	"github.com/zomasamka-bot/flashpay/internal/ledger"
	"github.com/zomasamka-bot/flashpay/internal/trail"
	"github.com/zomasamka-bot/flashpay/pkg/apperror"
	"github.com/zomasamka-bot/flashpay/pkg/logger"

	"github.com/rs/zerolog"
)

// DefaultScopes are requested when Connect is called without any.
var DefaultScopes = []string{"username", "payments"}

// SessionService connects the merchant's wallet and keeps the session and
// wallet sections of the ledger current.
type SessionService struct {
	store    *ledger.Store
	provider ports.PaymentProvider
	trail    *trail.Trail
	clock    clock.Clock
	cfg      domain.ProviderConfig
	timeout  time.Duration
	log      zerolog.Logger
}

func NewSessionService(
	store *ledger.Store,
	provider ports.PaymentProvider,
	tr *trail.Trail,
	clk clock.Clock,
	cfg domain.ProviderConfig,
	timeout time.Duration,
	log zerolog.Logger,
) *SessionService {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &SessionService{
		store:    store,
		provider: provider,
		trail:    tr,
		clock:    clk,
		cfg:      cfg,
		timeout:  timeout,
		log:      logger.Component(log, "session"),
	}
}

// Connect initializes the provider, authenticates, and records the result:
// the external identity on the merchant, an authenticated session and a
// connected wallet. The merchant id is never replaced.
func (s *SessionService) Connect(ctx context.Context, scopes []string) (*domain.MerchantContext, error) {
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := callProvider(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.provider.Init(ctx, s.cfg)
	})
	if err != nil {
		s.store.SetWallet(domain.WalletState{SDKAvailable: false})
		return nil, s.fail(providerError(err), "init")
	}
	s.store.SetWallet(domain.WalletState{SDKAvailable: s.provider.Available()})

	auth, err := callProvider(ctx, func(ctx context.Context) (*domain.AuthResult, error) {
		return s.provider.Authenticate(ctx, scopes)
	})
	if err != nil {
		return nil, s.fail(providerError(err), "authenticate")
	}
	if auth == nil || auth.Identity == "" {
		return nil, s.fail(apperror.ErrWalletUnavailable("Authentication returned no identity"), "authenticate")
	}

	s.store.CompleteSetup(auth.Identity)
	s.store.SetWallet(domain.WalletState{
		SDKAvailable: true,
		Connected:    true,
		Identity:     auth.Identity,
		AccessToken:  auth.AccessToken,
	})
	s.store.SetSession(domain.Session{
		Authenticated: true,
		MerchantID:    s.store.MerchantID(),
		LastActivity:  s.clock.Now().UTC(),
	})

	s.trail.RecordAudit(domain.TrailEntry{
		Operation:  domain.OperationConnectWallet,
		MerchantID: s.store.MerchantID(),
		Details:    map[string]any{"identity": auth.Identity, "scopes": scopes},
	})
	s.log.Info().Str("merchant_id", s.store.MerchantID()).Str("identity", auth.Identity).Msg("wallet connected")

	m := s.store.Merchant()
	return &m, nil
}

// Disconnect drops the session and the wallet connection. The merchant and
// its payments stay.
func (s *SessionService) Disconnect() {
	s.store.SetWallet(domain.WalletState{SDKAvailable: s.provider.Available()})
	s.store.SetSession(domain.Session{})
	s.trail.RecordAudit(domain.TrailEntry{
		Operation:  domain.OperationConnectWallet,
		MerchantID: s.store.MerchantID(),
		Details:    map[string]any{"connected": false},
	})
}

// Touch refreshes the activity timestamp of an authenticated session.
func (s *SessionService) Touch() {
	sess := s.store.Session()
	if !sess.Authenticated {
		return
	}
	sess.LastActivity = s.clock.Now().UTC()
	s.store.SetSession(sess)
}

func (s *SessionService) fail(err *apperror.AppError, step string) error {
	details := map[string]any{"step": step, "code": err.Code, "reason": err.Message}
	if err.Err != nil {
		details["cause"] = err.Err.Error()
	}
	entry := s.trail.RecordError(domain.TrailEntry{
		Operation:  domain.OperationConnectWallet,
		MerchantID: s.store.MerchantID(),
		Details:    details,
	})
	return err.WithTracking(entry.TrackingID)
}
