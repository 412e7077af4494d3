package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"walletledger/internal/config"
	"walletledger/internal/db"
	"walletledger/internal/handlers"
	"walletledger/internal/idempotency"
	"walletledger/internal/lock"
	"walletledger/internal/logging"
	"walletledger/internal/services"
	"walletledger/internal/store"
	"walletledger/internal/websocket"
	"walletledger/internal/worker"
)

func main() {
	cfg := config.Load()
	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	database, err := db.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}
	defer database.Close()

	locker, closeRedis := newLocker(cfg, logger)
	defer closeRedis()

	owners := store.NewOwnerStore(database)
	wallets := store.NewWalletStore(database)
	ledger := store.NewLedgerStore(database)
	transfers := store.NewTransferStore(database)
	keys := store.NewIdempotencyStore(database, cfg.IdempotencyTTL)
	txRunner := db.NewTxRunner(database, cfg.TxMaxAttempts)
	hub := websocket.NewHub()

	walletService := services.NewWalletService(txRunner, owners, wallets, ledger, logger)
	fundingService := services.NewFundingService(txRunner, wallets, ledger, hub, cfg.MaxAmount, logger)
	transferService := services.NewTransferService(txRunner, wallets, ledger, transfers, hub, cfg.MaxAmount, logger)
	gate := idempotency.NewGate(keys, locker, cfg.InflightLockTTL, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cleanup := worker.NewCleanupWorker(keys, locker, cfg.CleanupInterval, logger)
	go cleanup.Start(ctx)

	handler := handlers.New(cfg, logger, walletService, fundingService, transferService, gate, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("wallet ledger API listening", zap.String("addr", server.Addr), zap.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	cleanup.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

// newLocker connects to Redis when REDIS_ADDR is set. An unreachable Redis is
// logged but still used; lock failures then degrade to database-only guards.
func newLocker(cfg config.Config, logger *zap.Logger) (lock.Locker, func()) {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set, distributed locks disabled")
		return lock.NoopLocker{}, func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable at startup", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	return lock.NewRedisLocker(client), func() { _ = client.Close() }
}
