package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"walletledger/internal/auth"
	"walletledger/internal/services"
)

type createOwnerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	OwnerID  string `json:"owner_id"`
	WalletID string `json:"wallet_id,omitempty"`
	Token    string `json:"token"`
}

func (h *Handler) CreateOwner(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req createOwnerRequest
	if err := decodeJSON(body, &req); err != nil {
		h.writeError(w, err)
		return
	}
	owner, wallet, err := h.wallets.CreateOwner(r.Context(), services.CreateOwnerRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	token, err := auth.GenerateToken(h.cfg.JWTSecret, owner.ID, h.cfg.TokenTTL)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, tokenResponse{OwnerID: owner.ID, WalletID: wallet.ID, Token: token})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req loginRequest
	if err := decodeJSON(body, &req); err != nil {
		h.writeError(w, err)
		return
	}
	owner, err := h.wallets.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	token, err := auth.GenerateToken(h.cfg.JWTSecret, owner.ID, h.cfg.TokenTTL)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tokenResponse{OwnerID: owner.ID, Token: token})
}

func (h *Handler) GetOwnerBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.wallets.GetOwnerBalance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newBalanceResponse(balance))
}
