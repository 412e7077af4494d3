// Package apperr defines the domain error kinds shared by the stores, the
// services and the HTTP boundary. Each kind carries its own payload and is
// translated into a transport representation exactly once, in the handlers.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation             Kind = "VALIDATION_ERROR"
	KindWalletNotFound         Kind = "WALLET_NOT_FOUND"
	KindUserNotFound           Kind = "USER_NOT_FOUND"
	KindTransferNotFound       Kind = "TRANSFER_NOT_FOUND"
	KindDuplicateEmail         Kind = "DUPLICATE_EMAIL"
	KindDuplicatePaymentRef    Kind = "DUPLICATE_PAYMENT_REF"
	KindInsufficientBalance    Kind = "INSUFFICIENT_BALANCE"
	KindIdempotencyKeyConflict Kind = "IDEMPOTENCY_KEY_CONFLICT"
	KindUnauthorized           Kind = "UNAUTHORIZED"
)

type Error struct {
	Kind    Kind
	Message string

	Field     string
	WalletID  string
	OwnerID   string
	Key       string
	Available int64
	Required  int64

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Details returns the kind specific payload for the caller facing response.
func (e *Error) Details() map[string]any {
	switch e.Kind {
	case KindValidation:
		if e.Field == "" {
			return nil
		}
		return map[string]any{"field": e.Field}
	case KindWalletNotFound:
		return map[string]any{"wallet_id": e.WalletID}
	case KindUserNotFound:
		return map[string]any{"owner_id": e.OwnerID}
	case KindInsufficientBalance:
		return map[string]any{
			"wallet_id": e.WalletID,
			"available": e.Available,
			"required":  e.Required,
		}
	case KindIdempotencyKeyConflict:
		return map[string]any{"idempotency_key": e.Key}
	default:
		return nil
	}
}

func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

func WalletNotFound(walletID string) *Error {
	return &Error{Kind: KindWalletNotFound, WalletID: walletID, Message: fmt.Sprintf("wallet %s not found", walletID)}
}

func UserNotFound(ownerID string) *Error {
	return &Error{Kind: KindUserNotFound, OwnerID: ownerID, Message: fmt.Sprintf("user %s not found", ownerID)}
}

func TransferNotFound(transferID string) *Error {
	return &Error{Kind: KindTransferNotFound, Message: fmt.Sprintf("transfer %s not found", transferID)}
}

func DuplicateEmail(email string) *Error {
	return &Error{Kind: KindDuplicateEmail, Message: fmt.Sprintf("email %s is already registered", email)}
}

func DuplicatePaymentRef(ref string) *Error {
	return &Error{Kind: KindDuplicatePaymentRef, Message: fmt.Sprintf("external payment reference %s was already processed", ref)}
}

func InsufficientBalance(walletID string, available, required int64) *Error {
	return &Error{
		Kind:      KindInsufficientBalance,
		WalletID:  walletID,
		Available: available,
		Required:  required,
		Message:   fmt.Sprintf("insufficient balance: available %d, required %d", available, required),
	}
}

func IdempotencyKeyConflict(key, message string) *Error {
	return &Error{Kind: KindIdempotencyKeyConflict, Key: key, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// KindOf reports the kind of the first *Error in err's chain, or "" when the
// error is not a domain error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
