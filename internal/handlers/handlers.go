package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"walletledger/internal/apperr"
)

type errorBody struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// render encodes a response up front so it can be both sent and stored.
func render(status int, payload any) (int, []byte) {
	body, err := json.Marshal(payload)
	if err != nil {
		return http.StatusInternalServerError, []byte(`{"error":"INTERNAL_ERROR","message":"response encoding failed"}`)
	}
	return status, body
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindWalletNotFound, apperr.KindUserNotFound, apperr.KindTransferNotFound:
		return http.StatusNotFound
	case apperr.KindDuplicateEmail, apperr.KindDuplicatePaymentRef, apperr.KindIdempotencyKeyConflict:
		return http.StatusConflict
	case apperr.KindInsufficientBalance:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse is the single place where errors become transport responses.
func (h *Handler) errorResponse(err error) (int, []byte) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		h.logger.Error("internal error", zap.Error(err))
		message := "internal server error"
		if !h.cfg.IsProduction() {
			message = err.Error()
		}
		return render(http.StatusInternalServerError, errorBody{Error: "INTERNAL_ERROR", Message: message})
	}
	return render(statusFor(appErr.Kind), errorBody{
		Error:   string(appErr.Kind),
		Message: appErr.Message,
		Details: appErr.Details(),
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, body := h.errorResponse(err)
	respondRaw(w, status, body)
}
