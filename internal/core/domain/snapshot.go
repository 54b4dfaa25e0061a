package domain

import "time"

// CurrentSchemaVersion is written into every persisted bucket.
const CurrentSchemaVersion = 2

// DomainState holds the two-level feature switch.
type DomainState struct {
	Master   bool            `json:"master"`
	Features map[string]bool `json:"features"`
}

// Clone deep-copies the feature map.
func (d DomainState) Clone() DomainState {
	features := make(map[string]bool, len(d.Features))
	for k, v := range d.Features {
		features[k] = v
	}
	d.Features = features
	return d
}

// UIState is the small amount of presentation state shared across contexts.
type UIState struct {
	LastRoute       string `json:"lastRoute,omitempty"`
	ActivePaymentID string `json:"activePaymentId,omitempty"`
}

// OwnerAnalytics are running counters for the merchant owner view.
type OwnerAnalytics struct {
	PaymentsCreated int        `json:"paymentsCreated"`
	PaymentsPaid    int        `json:"paymentsPaid"`
	LastPaymentAt   *time.Time `json:"lastPaymentAt,omitempty"`
}

// LedgerSnapshot is the full in-memory state of one context.
type LedgerSnapshot struct {
	Payments       []Payment       `json:"payments"`
	DomainState    DomainState     `json:"domainState"`
	Merchant       MerchantContext `json:"merchant"`
	Session        Session         `json:"session"`
	Wallet         WalletState     `json:"wallet"`
	UI             UIState         `json:"ui"`
	OwnerAnalytics OwnerAnalytics  `json:"ownerAnalytics"`
	LastUpdated    int64           `json:"lastUpdated"`
	SchemaVersion  int             `json:"schemaVersion"`
}

// GlobalSnapshot is the persisted form of everything except payments.
type GlobalSnapshot struct {
	DomainState    *DomainState     `json:"domainState,omitempty"`
	Merchant       *MerchantContext `json:"merchant,omitempty"`
	Session        *Session         `json:"session,omitempty"`
	Wallet         *WalletState     `json:"wallet,omitempty"`
	UI             *UIState         `json:"ui,omitempty"`
	OwnerAnalytics *OwnerAnalytics  `json:"ownerAnalytics,omitempty"`
	LastUpdated    int64            `json:"lastUpdated"`
	SchemaVersion  int              `json:"schemaVersion"`
}

// PaymentBucket is the persisted, merchant-scoped payment list.
type PaymentBucket struct {
	MerchantID    string    `json:"merchantId"`
	Payments      []Payment `json:"payments"`
	LastUpdated   int64     `json:"lastUpdated"`
	SchemaVersion int       `json:"schemaVersion"`
}
