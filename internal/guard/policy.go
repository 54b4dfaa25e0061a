package guard

import (
	"context"

	"github.com/zomasamka-bot/flashpay/internal/core/domain"
	"github.com/zomasamka-bot/flashpay/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	NameWallet = "wallet"
	NameDomain = "domain"
	NameMaster = "master"
)

// WalletGuard fails when the provider SDK is missing or the wallet is not
// connected. A disabled guard always passes.
type WalletGuard struct {
	Enabled bool
	State   func() domain.WalletState
}

func (g WalletGuard) Check(context.Context) error {
	if !g.Enabled {
		return nil
	}
	w := g.State()
	if !w.SDKAvailable {
		return apperror.ErrWalletUnavailable("Payment provider is not available")
	}
	if !w.Connected {
		return apperror.ErrWalletUnavailable("Wallet is not connected")
	}
	return nil
}

func (g WalletGuard) Step() Step { return Step{Name: NameWallet, Check: g.Check} }

// FeatureReader answers whether a named feature is currently usable.
type FeatureReader interface {
	Enabled(feature string) bool
}

// DomainGuard fails when a named feature is switched off.
type DomainGuard struct {
	Enabled  bool
	Features FeatureReader
}

func (g DomainGuard) Check(feature string) func(context.Context) error {
	return func(context.Context) error {
		if !g.Enabled || g.Features.Enabled(feature) {
			return nil
		}
		return apperror.ErrDomainDisabled(feature)
	}
}

func (g DomainGuard) Step(feature string) Step {
	return Step{Name: NameDomain, Check: g.Check(feature)}
}

// MasterGuard reports the global kill switch. Unless Blocking is set an off
// switch is only logged.
type MasterGuard struct {
	Blocking bool
	Master   func() bool
	Log      zerolog.Logger
}

func (g MasterGuard) Check(context.Context) error {
	if g.Master() {
		return nil
	}
	if !g.Blocking {
		g.Log.Warn().Msg("master switch is off, continuing")
		return nil
	}
	return apperror.ErrMasterSwitchOff()
}

func (g MasterGuard) Step() Step { return Step{Name: NameMaster, Check: g.Check} }
