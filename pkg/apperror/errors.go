package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for callers deciding how to surface it.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindGuardDenied Kind = "guard_denied"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindProvider    Kind = "provider"
	KindPersistence Kind = "persistence"
	KindInternal    Kind = "internal"
)

// ProviderKind distinguishes the ways the external payment provider can fail.
type ProviderKind string

const (
	ProviderFailure   ProviderKind = "failure"
	ProviderTimeout   ProviderKind = "timeout"
	ProviderCancelled ProviderKind = "cancelled"
)

// AppError is a structured error carrying a short user-facing message and the
// tracking id the failure was recorded under.
type AppError struct {
	Kind         Kind         `json:"kind"`
	Code         string       `json:"error_code"`
	Message      string       `json:"message"`
	TrackingID   string       `json:"tracking_id,omitempty"`
	ProviderKind ProviderKind `json:"provider_kind,omitempty"`
	HTTPStatus   int          `json:"-"`
	Err          error        `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithTracking returns a copy of e stamped with a tracking id.
func (e *AppError) WithTracking(trackingID string) *AppError {
	cp := *e
	cp.TrackingID = trackingID
	return &cp
}

// New creates a new AppError.
func New(kind Kind, code string, message string, httpStatus int) *AppError {
	return &AppError{
		Kind:       kind,
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(kind Kind, code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Kind:       kind,
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// KindOf reports the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// TrackingIDOf returns the tracking id attached to err, if any.
func TrackingIDOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.TrackingID
	}
	return ""
}

// ---- Validation (VAL) ----

func Validation(message string) *AppError {
	return New(KindValidation, "VAL_001", message, http.StatusBadRequest)
}

func ErrInvalidAmount(reason string) *AppError {
	return New(KindValidation, "VAL_002", "Invalid amount: "+reason, http.StatusBadRequest)
}

func ErrInvalidNote(reason string) *AppError {
	return New(KindValidation, "VAL_003", "Invalid note: "+reason, http.StatusBadRequest)
}

func ErrInvalidID(reason string) *AppError {
	return New(KindValidation, "VAL_004", "Invalid payment id: "+reason, http.StatusBadRequest)
}

// ---- Guard Layer (GRD) ----

func ErrRateLimitExceeded() *AppError {
	return New(KindGuardDenied, "GRD_001", "Too many attempts, please wait and try again", http.StatusTooManyRequests)
}

func ErrWalletUnavailable(reason string) *AppError {
	return New(KindGuardDenied, "GRD_002", reason, http.StatusForbidden)
}

func ErrDomainDisabled(domain string) *AppError {
	return New(KindGuardDenied, "GRD_003", fmt.Sprintf("Feature %q is currently disabled", domain), http.StatusForbidden)
}

func ErrMasterSwitchOff() *AppError {
	return New(KindGuardDenied, "GRD_004", "Feature management is switched off", http.StatusForbidden)
}

func GuardDenied(reason string) *AppError {
	return New(KindGuardDenied, "GRD_000", reason, http.StatusForbidden)
}

// ---- Payment ledger (PAY) ----

// ErrNotFound is deliberately generic so foreign-merchant records are
// indistinguishable from missing ones.
func ErrNotFound(entity string) *AppError {
	return New(KindNotFound, "PAY_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrAlreadyPaid() *AppError {
	return New(KindConflict, "PAY_005", "Payment already completed", http.StatusConflict)
}

func ErrInProgress() *AppError {
	return New(KindConflict, "PAY_006", "Payment already in progress", http.StatusConflict)
}

func ErrDuplicatePayment() *AppError {
	return New(KindConflict, "PAY_003", "Duplicate payment", http.StatusConflict)
}

// ---- Payment provider (PRV) ----

func ErrProvider(err error) *AppError {
	e := Wrap(KindProvider, "PRV_001", "Payment provider error", http.StatusBadGateway, err)
	e.ProviderKind = ProviderFailure
	return e
}

func ErrProviderTimeout(err error) *AppError {
	e := Wrap(KindProvider, "PRV_002", "Payment provider did not respond in time", http.StatusGatewayTimeout, err)
	e.ProviderKind = ProviderTimeout
	return e
}

func ErrPaymentCancelled() *AppError {
	e := New(KindProvider, "PRV_003", "Payment was cancelled", http.StatusConflict)
	e.ProviderKind = ProviderCancelled
	return e
}

// ---- System & Infrastructure (SYS) ----

func ErrPersistence(err error) *AppError {
	return Wrap(KindPersistence, "SYS_002", "Storage unavailable", http.StatusServiceUnavailable, err)
}

func ErrInvalidToken() *AppError {
	return New(KindGuardDenied, "SYS_003", "Invalid or expired token", http.StatusUnauthorized)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(KindInternal, "SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
