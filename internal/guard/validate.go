package guard

import (
	"strings"
	"unicode/utf8"

	"github.com/zomasamka-bot/flashpay/pkg/apperror"

	"github.com/shopspring/decimal"
)

const (
	MaxNoteLength     = 500
	MaxIDLength       = 100
	MaxAmountDecimals = 7
)

// MaxAmount is the largest amount a single payment may request.
var MaxAmount = decimal.NewFromInt(1_000_000)

// ParseAmount parses a decimal string. NaN and infinities do not parse and
// are rejected as non-numeric. Range and precision are ValidateAmount's job.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, apperror.ErrInvalidAmount("amount is required")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperror.ErrInvalidAmount("amount must be a number")
	}
	return d, nil
}

// ValidateAmount requires 0 < a <= 1,000,000 with at most 7 fractional digits.
func ValidateAmount(a decimal.Decimal) error {
	if !a.IsPositive() {
		return apperror.ErrInvalidAmount("amount must be greater than 0")
	}
	if a.GreaterThan(MaxAmount) {
		return apperror.ErrInvalidAmount("amount must not exceed 1000000")
	}
	if fractionalDigits(a) > MaxAmountDecimals {
		return apperror.ErrInvalidAmount("amount allows at most 7 decimal places")
	}
	return nil
}

// fractionalDigits counts significant digits after the point; String drops
// trailing zeros.
func fractionalDigits(a decimal.Decimal) int {
	s := a.String()
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return 0
	}
	return len(s) - i - 1
}

// ValidateNote limits the note to 500 characters. An empty note is fine.
func ValidateNote(note string) error {
	if utf8.RuneCountInString(note) > MaxNoteLength {
		return apperror.ErrInvalidNote("note must be at most 500 characters")
	}
	return nil
}

// ValidateID requires a non-empty id of at most 100 characters.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return apperror.ErrInvalidID("id is required")
	}
	if utf8.RuneCountInString(id) > MaxIDLength {
		return apperror.ErrInvalidID("id must be at most 100 characters")
	}
	return nil
}
