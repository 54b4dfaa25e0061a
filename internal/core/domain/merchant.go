package domain

import "time"

// MerchantContext identifies the tenant a ledger belongs to. MerchantID is
// generated once and never reassigned by local operations.
type MerchantContext struct {
	MerchantID       string  `json:"merchantId"`
	SetupComplete    bool    `json:"setupComplete"`
	ExternalIdentity *string `json:"externalIdentity,omitempty"`
}

// Session tracks whether the operator authenticated with the wallet provider.
type Session struct {
	Authenticated bool      `json:"authenticated"`
	MerchantID    string    `json:"merchantId"`
	LastActivity  time.Time `json:"lastActivity"`
}

// WalletState mirrors the payment provider SDK availability and connection.
type WalletState struct {
	SDKAvailable bool   `json:"sdkAvailable"`
	Connected    bool   `json:"connected"`
	Identity     string `json:"identity,omitempty"`
	AccessToken  string `json:"-"`
}
