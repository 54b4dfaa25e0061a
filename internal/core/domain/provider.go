package domain

import "github.com/shopspring/decimal"

// ProviderEventKind tags the terminal and intermediate provider callbacks.
type ProviderEventKind int

const (
	ProviderEventApprovalRequested ProviderEventKind = iota + 1
	ProviderEventCompleted
	ProviderEventCancelled
	ProviderEventFailed
)

func (k ProviderEventKind) String() string {
	switch k {
	case ProviderEventApprovalRequested:
		return "approval_requested"
	case ProviderEventCompleted:
		return "completed"
	case ProviderEventCancelled:
		return "cancelled"
	case ProviderEventFailed:
		return "failed"
	}
	return "unknown"
}

// ProviderEvent is emitted by the payment provider during execution.
// ProviderPaymentID is set for every kind except Failed, TxID only for
// Completed, Err only for Failed.
type ProviderEvent struct {
	Kind              ProviderEventKind
	ProviderPaymentID string
	TxID              string
	Err               error
}

// PaymentData is what the provider needs to mint or execute a payment.
type PaymentData struct {
	PaymentID  string            `json:"paymentId,omitempty"`
	MerchantID string            `json:"merchantId"`
	Amount     decimal.Decimal   `json:"amount"`
	Memo       string            `json:"memo"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ProviderConfig initializes the provider SDK.
type ProviderConfig struct {
	APIKey  string
	Sandbox bool
}

// AuthResult is returned by a successful provider authentication.
type AuthResult struct {
	Identity    string
	AccessToken string
}
