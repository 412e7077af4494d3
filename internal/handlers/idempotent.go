package handlers

import (
	"context"
	"net/http"

	"walletledger/internal/apperr"
	"walletledger/internal/idempotency"
	"walletledger/internal/validator"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
)

// mutation renders a complete response from a request body. Rendering happens
// before anything is written so the gate can store exactly what the caller saw.
type mutation func(ctx context.Context, body []byte) (int, []byte)

func (h *Handler) idempotent(w http.ResponseWriter, r *http.Request, run mutation) {
	body, err := readBody(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var key, fingerprint string
	if values, present := r.Header[http.CanonicalHeaderKey(idempotencyHeader)]; present {
		key = values[0]
		if err := validator.ValidateIdempotencyKey(key); err != nil {
			h.writeError(w, err)
			return
		}
		fingerprint, err = idempotency.Fingerprint(body)
		if err != nil {
			h.writeError(w, apperr.Validation("body", "invalid JSON payload"))
			return
		}
	}

	result, err := h.gate.Execute(r.Context(), key, fingerprint, func(ctx context.Context) (int, []byte) {
		return run(ctx, body)
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	if result.Replayed {
		w.Header().Set(replayedHeader, "true")
	}
	respondRaw(w, result.Status, result.Body)
}
