package metrics

import "walletledger/internal/apperr"

// Outcome classifies the result of a money movement for the counters above.
func Outcome(err error) string {
	switch apperr.KindOf(err) {
	case "":
		if err == nil {
			return OutcomeCompleted
		}
		return OutcomeError
	case apperr.KindInsufficientBalance:
		return OutcomeInsufficient
	case apperr.KindDuplicatePaymentRef:
		return OutcomeDuplicate
	default:
		return OutcomeRejected
	}
}
