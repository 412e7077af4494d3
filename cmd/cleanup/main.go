package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"walletledger/internal/config"
	"walletledger/internal/db"
	"walletledger/internal/lock"
	"walletledger/internal/logging"
	"walletledger/internal/store"
	"walletledger/internal/worker"
)

// cleanup removes expired idempotency keys once and exits, for cron-style
// scheduling alongside or instead of the in-process worker.
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

	keys := store.NewIdempotencyStore(database, cfg.IdempotencyTTL)
	// Cron owns scheduling here, so no leader lock.
	cleaner := worker.NewCleanupWorker(keys, lock.NoopLocker{}, cfg.CleanupInterval, logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	deleted, err := cleaner.RunOnce(ctx)
	if err != nil {
		logger.Fatal("idempotency cleanup failed", zap.Error(err))
	}
	logger.Info("idempotency cleanup finished", zap.Int64("deleted", deleted))
}
