package validator

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"walletledger/internal/apperr"
)

const (
	MaxIdempotencyKeyLength = 255
	MaxPaymentRefLength     = 255
	DefaultHistoryLimit     = 50
	MaxHistoryLimit         = 100
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return apperr.Validation("email", "invalid email")
	}
	return nil
}

func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > 100 {
		return apperr.Validation("name", "name must be between 1 and 100 characters")
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 8 {
		return apperr.Validation("password", "password must be at least 8 characters")
	}
	// bcrypt ignores everything past 72 bytes.
	if len(password) > 72 {
		return apperr.Validation("password", "password must be at most 72 bytes")
	}
	return nil
}

func ValidateIdempotencyKey(key string) error {
	if key == "" || utf8.RuneCountInString(key) > MaxIdempotencyKeyLength {
		return apperr.Validation("Idempotency-Key", "idempotency key must be between 1 and 255 characters")
	}
	return nil
}

func ValidatePaymentRef(ref string) error {
	if ref == "" || utf8.RuneCountInString(ref) > MaxPaymentRefLength {
		return apperr.Validation("external_payment_ref", "external payment reference must be between 1 and 255 characters")
	}
	return nil
}

func ValidateID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperr.Validation(field, field+" is required")
	}
	return nil
}

// Pagination normalizes history paging. A zero limit selects the default.
func Pagination(limit, offset int) (int, int, error) {
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	if limit < 0 || limit > MaxHistoryLimit {
		return 0, 0, apperr.Validation("limit", "limit must be between 1 and 100")
	}
	if offset < 0 {
		return 0, 0, apperr.Validation("offset", "offset must not be negative")
	}
	return limit, offset, nil
}
