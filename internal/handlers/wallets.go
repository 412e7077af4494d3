package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"walletledger/internal/models"
	"walletledger/internal/money"
	"walletledger/internal/services"
)

type balanceResponse struct {
	WalletID         string `json:"wallet_id"`
	OwnerID          string `json:"owner_id"`
	Balance          int64  `json:"balance"`
	BalanceFormatted string `json:"balance_formatted"`
}

func newBalanceResponse(b services.Balance) balanceResponse {
	return balanceResponse{
		WalletID:         b.WalletID,
		OwnerID:          b.OwnerID,
		Balance:          b.Balance,
		BalanceFormatted: money.FormatMinor(b.Balance),
	}
}

type fundRequest struct {
	WalletID           string      `json:"wallet_id"`
	Amount             json.Number `json:"amount"`
	ExternalPaymentRef string      `json:"external_payment_ref"`
}

type entryResponse struct {
	models.LedgerEntry
	AmountFormatted string `json:"amount_formatted"`
}

func (h *Handler) GetWalletBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.wallets.GetWalletBalance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newBalanceResponse(balance))
}

func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		h.writeError(w, err)
		return
	}
	history, err := h.wallets.ListHistory(r.Context(), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

func (h *Handler) FundWallet(w http.ResponseWriter, r *http.Request) {
	h.idempotent(w, r, func(ctx context.Context, body []byte) (int, []byte) {
		var req fundRequest
		if err := decodeJSON(body, &req); err != nil {
			return h.errorResponse(err)
		}
		amount, err := parseAmount(req.Amount, h.cfg.MaxAmount)
		if err != nil {
			return h.errorResponse(err)
		}
		entry, err := h.funding.FundWallet(ctx, services.FundRequest{
			WalletID:           req.WalletID,
			Amount:             amount,
			ExternalPaymentRef: req.ExternalPaymentRef,
		})
		if err != nil {
			return h.errorResponse(err)
		}
		return render(http.StatusCreated, entryResponse{LedgerEntry: entry, AmountFormatted: money.FormatMinor(entry.Amount)})
	})
}
