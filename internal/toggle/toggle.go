// Package toggle is the two-level feature switch. The master switch gates
// changes to individual features, and every feature reads as disabled while
// the master is off. Core payment features and routes ignore both.
package toggle

import (
	"sort"
	"strings"

	"github.com/zomasamka-bot/flashpay/internal/core/domain"
	"github.com/zomasamka-bot/flashpay/internal/ledger"
	"github.com/zomasamka-bot/flashpay/internal/trail"
	"github.com/zomasamka-bot/flashpay/pkg/apperror"
	"github.com/zomasamka-bot/flashpay/pkg/logger"

	"github.com/rs/zerolog"
)

const (
	FeaturePayments  = "payments"
	FeatureMirror    = "mirror"
	FeatureEvents    = "events"
	FeatureAnalytics = "analytics"
)

// coreFeatures can never be switched off.
var coreFeatures = map[string]bool{FeaturePayments: true}

// auxiliaryFeatures are known switches; unset ones read as enabled.
var auxiliaryFeatures = []string{FeatureMirror, FeatureEvents, FeatureAnalytics}

var coreRoutes = []string{"/", "/create", "/pay", "/payments"}

var routeFeatures = map[string]string{
	"/analytics": FeatureAnalytics,
	"/mirror":    FeatureMirror,
	"/events":    FeatureEvents,
}

// Manager reads and writes the domainState section of a ledger.
type Manager struct {
	store *ledger.Store
	trail *trail.Trail
	log   zerolog.Logger
}

func NewManager(store *ledger.Store, tr *trail.Trail, log zerolog.Logger) *Manager {
	return &Manager{store: store, trail: tr, log: logger.Component(log, "toggle")}
}

// Master reports the master switch.
func (m *Manager) Master() bool {
	return m.store.DomainState().Master
}

// SetMaster flips the master switch. It is always permitted.
func (m *Manager) SetMaster(on bool) {
	prev := m.Master()
	m.store.UpdateDomainState(func(d *domain.DomainState) { d.Master = on })
	m.trail.RecordAudit(domain.TrailEntry{
		Operation:  domain.OperationToggleChange,
		MerchantID: m.store.MerchantID(),
		Details:    map[string]any{"toggle": "master", "from": prev, "to": on},
	})
	m.log.Info().Bool("master", on).Msg("master switch changed")
}

// SetFeature changes one auxiliary feature. It fails while the master switch
// is off, and core features cannot be changed at all.
func (m *Manager) SetFeature(name string, on bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return m.deny(name, apperror.Validation("Feature name is required"))
	}
	if coreFeatures[name] {
		return m.deny(name, apperror.GuardDenied("Core features cannot be switched"))
	}
	if !m.Master() {
		return m.deny(name, apperror.ErrMasterSwitchOff())
	}

	prev := m.Enabled(name)
	m.store.UpdateDomainState(func(d *domain.DomainState) {
		if d.Features == nil {
			d.Features = map[string]bool{}
		}
		d.Features[name] = on
	})
	m.trail.RecordAudit(domain.TrailEntry{
		Operation:  domain.OperationToggleChange,
		MerchantID: m.store.MerchantID(),
		Details:    map[string]any{"toggle": name, "from": prev, "to": on},
	})
	m.log.Info().Str("feature", name).Bool("enabled", on).Msg("feature switch changed")
	return nil
}

func (m *Manager) deny(name string, err *apperror.AppError) error {
	entry := m.trail.RecordError(domain.TrailEntry{
		Operation:  domain.OperationToggleChange,
		Outcome:    domain.OutcomeDenied,
		MerchantID: m.store.MerchantID(),
		Details:    map[string]any{"toggle": name, "reason": err.Message},
	})
	return err.WithTracking(entry.TrackingID)
}

// Enabled reports whether feature is usable right now.
func (m *Manager) Enabled(feature string) bool {
	if coreFeatures[feature] {
		return true
	}
	d := m.store.DomainState()
	if !d.Master {
		return false
	}
	on, set := d.Features[feature]
	return !set || on
}

// Features returns the effective state of every known or explicitly set
// feature, sorted by name.
func (m *Manager) Features() []FeatureState {
	names := map[string]bool{FeaturePayments: true}
	for _, f := range auxiliaryFeatures {
		names[f] = true
	}
	for f := range m.store.DomainState().Features {
		names[f] = true
	}

	out := make([]FeatureState, 0, len(names))
	for name := range names {
		out = append(out, FeatureState{Name: name, Enabled: m.Enabled(name), Core: coreFeatures[name]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FeatureState is one row of Features.
type FeatureState struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Core    bool   `json:"core"`
}

// RouteAccessible reports whether route may be shown. Core payment routes are
// always reachable; routes backed by a feature follow that feature.
func (m *Manager) RouteAccessible(route string) bool {
	for _, r := range coreRoutes {
		if route == r || (r != "/" && strings.HasPrefix(route, r+"/")) {
			return true
		}
	}
	for prefix, feature := range routeFeatures {
		if route == prefix || strings.HasPrefix(route, prefix+"/") {
			return m.Enabled(feature)
		}
	}
	return true
}
