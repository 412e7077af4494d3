package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrFractionalMinor = errors.New("amount must be a whole number of minor units")
	ErrNonPositive     = errors.New("amount must be positive")
	ErrAboveMaximum    = errors.New("amount exceeds the configured maximum")
)

var hundred = decimal.NewFromInt(100)

// An int64 has at most 19 integer digits. Exponents are bounded before any
// comparison because decimal rescales the coefficient to 10^exp to compare.
const (
	maxIntegerDigits  = 19
	maxFractionDigits = 18
)

// ParseMinor parses an amount expressed in minor units (e.g. cents). Scientific
// notation and trailing zero fractions are accepted as long as the value is an
// exact integer; maxMinor <= 0 disables the upper bound. More than 18 digits
// after the point is rejected as invalid.
func ParseMinor(raw string, maxMinor int64) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, ErrInvalidAmount
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if value.Sign() <= 0 {
		return 0, ErrNonPositive
	}
	if value.Exponent() < -maxFractionDigits {
		return 0, ErrInvalidAmount
	}
	if value.NumDigits()+int(value.Exponent()) > maxIntegerDigits {
		return 0, ErrAboveMaximum
	}
	if !value.IsInteger() {
		return 0, ErrFractionalMinor
	}
	if maxMinor > 0 && value.GreaterThan(decimal.NewFromInt(maxMinor)) {
		return 0, ErrAboveMaximum
	}
	if !value.BigInt().IsInt64() {
		return 0, ErrAboveMaximum
	}
	return value.IntPart(), nil
}

// FormatMinor renders minor units as a two decimal major unit string.
func FormatMinor(value int64) string {
	return decimal.NewFromInt(value).Div(hundred).StringFixed(2)
}
