package dto

import (
	"regexp"

	"github.com/zomasamka-bot/flashpay/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var safeStringRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_id", validateSafeID)
		_ = v.RegisterValidation("payment_status", validatePaymentStatus)
	}
}

// validateSafeID allows alphanumeric, underscore, dash, and dot.
func validateSafeID(fl validator.FieldLevel) bool {
	return safeStringRe.MatchString(fl.Field().String())
}

// validatePaymentStatus accepts the four ledger statuses.
func validatePaymentStatus(fl validator.FieldLevel) bool {
	return domain.PaymentStatus(fl.Field().String()).Valid()
}
