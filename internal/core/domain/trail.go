package domain

import "time"

// Operation names recorded in the audit and error trail.
type Operation string

const (
	OperationCreatePayment  Operation = "create_payment"
	OperationExecutePayment Operation = "execute_payment"
	OperationGetPayment     Operation = "get_payment"
	OperationStatusChange   Operation = "status_change"
	OperationClearPayments  Operation = "clear_payments"
	OperationToggleChange   Operation = "toggle_change"
	OperationConnectWallet  Operation = "connect_wallet"
	OperationMirror         Operation = "mirror"
	OperationHTTPRequest    Operation = "http_request"
)

// Outcome of a recorded operation.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeDenied  Outcome = "denied"
	OutcomeFailure Outcome = "failure"
)

// TrailEntry is one audit or error record. Both logs share the shape.
type TrailEntry struct {
	TrackingID string         `json:"trackingId"`
	Timestamp  time.Time      `json:"timestamp"`
	Operation  Operation      `json:"operation"`
	Outcome    Outcome        `json:"outcome"`
	MerchantID string         `json:"merchantId,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

type (
	AuditEntry = TrailEntry
	ErrorEntry = TrailEntry
)
