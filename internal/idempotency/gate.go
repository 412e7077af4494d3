package idempotency

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"walletledger/internal/apperr"
	"walletledger/internal/lock"
	"walletledger/internal/metrics"
	"walletledger/internal/models"
)

const inflightPrefix = "idempotency:inflight:"

type Store interface {
	CheckAndGetResponse(ctx context.Context, key, requestHash string) (*models.IdempotencyKey, error)
	StoreKey(ctx context.Context, key, requestHash string, status int, body []byte) (models.IdempotencyKey, error)
}

// Result is the response an operation produced, or the one stored for it.
type Result struct {
	Status   int
	Body     []byte
	Replayed bool
}

// Operation runs the wrapped business call and renders its response.
type Operation func(ctx context.Context) (status int, body []byte)

type Gate struct {
	store   Store
	locker  lock.Locker
	lockTTL time.Duration
	logger  *zap.Logger
}

func NewGate(store Store, locker lock.Locker, lockTTL time.Duration, logger *zap.Logger) *Gate {
	if locker == nil {
		locker = lock.NoopLocker{}
	}
	return &Gate{store: store, locker: locker, lockTTL: lockTTL, logger: logger}
}

// Execute runs op at most once per key and fingerprint. An empty key bypasses
// the gate. Errors are only returned when op did not run: a key reused for a
// different request, a key still held by a concurrent request, or a failed
// lookup.
func (g *Gate) Execute(ctx context.Context, key, fingerprint string, op Operation) (Result, error) {
	if key == "" {
		status, body := op(ctx)
		return Result{Status: status, Body: body}, nil
	}

	if cached, err := g.lookup(ctx, key, fingerprint); err != nil || cached != nil {
		return derefResult(cached), err
	}

	claim, err := g.locker.Acquire(ctx, inflightPrefix+key, g.lockTTL)
	switch {
	case errors.Is(err, lock.ErrNotAcquired):
		// Another request holds the key. It may have finished in the meantime.
		cached, err := g.lookup(ctx, key, fingerprint)
		if err != nil || cached != nil {
			return derefResult(cached), err
		}
		return Result{}, apperr.IdempotencyKeyConflict(key, "a request with this idempotency key is already in progress")
	case err != nil:
		g.logger.Warn("idempotency claim unavailable, relying on store", zap.String("idempotency_key", key), zap.Error(err))
	default:
		defer func() {
			if err := claim.Release(context.WithoutCancel(ctx)); err != nil {
				g.logger.Warn("idempotency claim release failed",
					zap.String("idempotency_key", key),
					zap.String("lock", claim.Key()),
					zap.Error(err),
				)
			}
		}()
	}

	status, body := op(ctx)
	result := Result{Status: status, Body: body}
	if status >= http.StatusInternalServerError {
		return result, nil
	}

	stored, err := g.store.StoreKey(ctx, key, fingerprint, status, body)
	if err != nil {
		if apperr.Is(err, apperr.KindIdempotencyKeyConflict) {
			return Result{}, err
		}
		g.logger.Warn("idempotency response not persisted",
			zap.String("idempotency_key", key),
			zap.Int("status", status),
			zap.Error(err),
		)
		return result, nil
	}
	if stored.ResponseStatus != status || string(stored.ResponseBody) != string(body) {
		// A concurrent first writer won the key; its response is the canonical one.
		metrics.IdempotencyReplays.Inc()
		return Result{Status: stored.ResponseStatus, Body: stored.ResponseBody, Replayed: true}, nil
	}
	return result, nil
}

func (g *Gate) lookup(ctx context.Context, key, fingerprint string) (*Result, error) {
	cached, err := g.store.CheckAndGetResponse(ctx, key, fingerprint)
	if err != nil || cached == nil {
		return nil, err
	}
	metrics.IdempotencyReplays.Inc()
	g.logger.Debug("idempotent replay", zap.String("idempotency_key", key))
	return &Result{Status: cached.ResponseStatus, Body: cached.ResponseBody, Replayed: true}, nil
}

func derefResult(r *Result) Result {
	if r == nil {
		return Result{}
	}
	return *r
}
