package persist

import "github.com/zomasamka-bot/flashpay/internal/core/domain"

// migrateGlobal upgrades an older snapshot in place and reports whether
// anything changed. Sections a version 1 snapshot never carried come back
// with defaults. Snapshots from a newer schema are read as-is.
func migrateGlobal(g *domain.GlobalSnapshot) bool {
	if g.SchemaVersion >= domain.CurrentSchemaVersion {
		return false
	}
	if g.DomainState == nil {
		g.DomainState = &domain.DomainState{Master: true, Features: map[string]bool{}}
	}
	if g.DomainState.Features == nil {
		g.DomainState.Features = map[string]bool{}
	}
	if g.UI == nil {
		g.UI = &domain.UIState{}
	}
	if g.OwnerAnalytics == nil {
		g.OwnerAnalytics = &domain.OwnerAnalytics{}
	}
	g.SchemaVersion = domain.CurrentSchemaVersion
	return true
}

// migrateBucket stamps the owning merchant on records written before
// payments carried one.
func migrateBucket(b *domain.PaymentBucket, merchantID string) bool {
	changed := false
	if b.MerchantID == "" {
		b.MerchantID = merchantID
		changed = true
	}
	for i := range b.Payments {
		if b.Payments[i].MerchantID == "" {
			b.Payments[i].MerchantID = b.MerchantID
			changed = true
		}
	}
	if b.SchemaVersion < domain.CurrentSchemaVersion {
		b.SchemaVersion = domain.CurrentSchemaVersion
		changed = true
	}
	return changed
}
