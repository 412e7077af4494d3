package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"walletledger/internal/lock"
	"walletledger/internal/metrics"
)

const cleanupLockName = "idempotency:cleanup"

type KeyCleaner interface {
	CleanupExpiredKeys(ctx context.Context) (int64, error)
}

// CleanupWorker periodically removes expired idempotency keys. With several
// replicas running, the shared lock keeps one pass per interval.
type CleanupWorker struct {
	cleaner  KeyCleaner
	locker   lock.Locker
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewCleanupWorker(cleaner KeyCleaner, locker lock.Locker, interval time.Duration, logger *zap.Logger) *CleanupWorker {
	if locker == nil {
		locker = lock.NoopLocker{}
	}
	return &CleanupWorker{
		cleaner:  cleaner,
		locker:   locker,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

func (w *CleanupWorker) Start(ctx context.Context) {
	w.logger.Info("starting idempotency cleanup worker", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.Error("idempotency cleanup failed", zap.Error(err))
			}
		case <-w.stopChan:
			w.logger.Info("stopping idempotency cleanup worker")
			return
		case <-ctx.Done():
			w.logger.Info("context cancelled, stopping idempotency cleanup worker")
			return
		}
	}
}

// RunOnce performs a single pass. It reports 0 without error when another
// replica holds the cleanup lock.
func (w *CleanupWorker) RunOnce(ctx context.Context) (int64, error) {
	// The lock is never released: it expires with the interval so other
	// replicas skip the rest of it.
	_, err := w.locker.Acquire(ctx, cleanupLockName, w.interval)
	switch {
	case errors.Is(err, lock.ErrNotAcquired):
		w.logger.Debug("idempotency cleanup skipped, lock held elsewhere")
		return 0, nil
	case err != nil:
		w.logger.Warn("cleanup lock unavailable, running unguarded", zap.Error(err))
	}

	deleted, err := w.cleaner.CleanupExpiredKeys(ctx)
	if err != nil {
		return 0, err
	}
	metrics.IdempotencyKeysCleaned.Add(float64(deleted))
	w.logger.Info("expired idempotency keys removed", zap.Int64("deleted", deleted))
	return deleted, nil
}

func (w *CleanupWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}
