package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	gorillaws "github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"walletledger/internal/config"
	"walletledger/internal/middleware"
	"walletledger/internal/websocket"
)

type Handler struct {
	cfg       config.Config
	logger    *zap.Logger
	wallets   WalletService
	funding   FundingService
	transfers TransferService
	gate      Gate
	hub       *websocket.Hub
	upgrader  gorillaws.Upgrader
}

func New(cfg config.Config, logger *zap.Logger, wallets WalletService, funding FundingService, transfers TransferService, gate Gate, hub *websocket.Hub) *Handler {
	return &Handler{
		cfg:       cfg,
		logger:    logger,
		wallets:   wallets,
		funding:   funding,
		transfers: transfers,
		gate:      gate,
		hub:       hub,
		upgrader:  websocket.Upgrader(allowedOrigins(cfg.AllowedOrigins)),
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Observe(h.logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(h.cfg.AllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", idempotencyHeader},
		ExposedHeaders:   []string{replayedHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Post("/owners", h.CreateOwner)
	router.Post("/auth/login", h.Login)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Get("/owners/{id}/balance", h.GetOwnerBalance)
		r.Get("/wallets/{id}/balance", h.GetWalletBalance)
		r.Get("/wallets/{id}/transactions", h.ListHistory)
		r.Post("/wallets/fund", h.FundWallet)
		r.Post("/transfers", h.Transfer)
		r.Get("/transfers/{id}", h.GetTransfer)
	})
	router.Get("/ws/balances", h.WSBalances)

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}

func allowedOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
