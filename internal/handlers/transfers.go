package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"walletledger/internal/services"
)

type transferRequest struct {
	SenderWalletID   string      `json:"sender_wallet_id"`
	ReceiverWalletID string      `json:"receiver_wallet_id"`
	Amount           json.Number `json:"amount"`
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	h.idempotent(w, r, func(ctx context.Context, body []byte) (int, []byte) {
		var req transferRequest
		if err := decodeJSON(body, &req); err != nil {
			return h.errorResponse(err)
		}
		amount, err := parseAmount(req.Amount, h.cfg.MaxAmount)
		if err != nil {
			return h.errorResponse(err)
		}
		result, err := h.transfers.Transfer(ctx, services.TransferRequest{
			SenderWalletID:   req.SenderWalletID,
			ReceiverWalletID: req.ReceiverWalletID,
			Amount:           amount,
		})
		if err != nil {
			return h.errorResponse(err)
		}
		return render(http.StatusCreated, result)
	})
}

func (h *Handler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	result, err := h.transfers.GetTransfer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
