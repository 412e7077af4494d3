package handlers

import (
	"net/http"
	"strings"

	"walletledger/internal/apperr"
	"walletledger/internal/auth"
	"walletledger/internal/websocket"
)

// WSBalances streams balance updates for the authenticated owner. Browsers
// cannot set headers on the handshake, so the token may come as a query
// parameter.
func (h *Handler) WSBalances(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		h.writeError(w, apperr.Unauthorized("invalid token"))
		return
	}
	websocket.ServeWS(w, r, h.upgrader, h.hub, claims.OwnerID, h.logger)
}
