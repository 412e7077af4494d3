package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"walletledger/internal/apperr"
	"walletledger/internal/models"
)

const idempotencyColumns = `key, request_hash, response_status, response_body, created_at, expires_at`

// storeKeyAttempts bounds the delete-expired/insert/select loop. A second pass is
// only needed when the row seen on conflict expired between insert and select.
const storeKeyAttempts = 2

type IdempotencyStore struct {
	db  DB
	ttl time.Duration
}

func NewIdempotencyStore(db DB, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{db: db, ttl: ttl}
}

// CheckAndGetResponse returns the stored response for an unexpired key, nil on a
// miss, and an IdempotencyKeyConflict when the key was used for a different request.
func (s *IdempotencyStore) CheckAndGetResponse(ctx context.Context, key, requestHash string) (*models.IdempotencyKey, error) {
	var record models.IdempotencyKey
	err := s.db.GetContext(ctx, &record, `
		SELECT `+idempotencyColumns+`
		FROM idempotency_keys
		WHERE key = $1 AND expires_at > NOW()
	`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if record.RequestHash != requestHash {
		return nil, apperr.IdempotencyKeyConflict(key, "idempotency key was already used with a different request body")
	}
	return &record, nil
}

// StoreKey records the response under key unless another writer got there first,
// in which case the earlier record is returned unchanged. Statements run outside
// a transaction so concurrent writers serialize on the primary key instead of
// failing with serialization errors.
func (s *IdempotencyStore) StoreKey(ctx context.Context, key, requestHash string, status int, body []byte) (models.IdempotencyKey, error) {
	ttlSeconds := int64(s.ttl / time.Second)
	for attempt := 0; attempt < storeKeyAttempts; attempt++ {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM idempotency_keys WHERE key = $1 AND expires_at <= NOW()`, key); err != nil {
			return models.IdempotencyKey{}, err
		}

		var record models.IdempotencyKey
		err := s.db.GetContext(ctx, &record, `
			INSERT INTO idempotency_keys (key, request_hash, response_status, response_body, expires_at)
			VALUES ($1, $2, $3, $4, NOW() + ($5 * INTERVAL '1 second'))
			ON CONFLICT (key) DO NOTHING
			RETURNING `+idempotencyColumns,
			key, requestHash, status, body, ttlSeconds,
		)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return models.IdempotencyKey{}, err
		}

		err = s.db.GetContext(ctx, &record, `
			SELECT `+idempotencyColumns+`
			FROM idempotency_keys
			WHERE key = $1 AND expires_at > NOW()
		`, key)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return models.IdempotencyKey{}, err
		}
		if record.RequestHash != requestHash {
			return models.IdempotencyKey{}, apperr.IdempotencyKeyConflict(key, "idempotency key was already used with a different request body")
		}
		return record, nil
	}
	return models.IdempotencyKey{}, errors.New("idempotency key could not be stored: concurrent expiry")
}

// CleanupExpiredKeys deletes every expired record and reports how many went.
func (s *IdempotencyStore) CleanupExpiredKeys(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM idempotency_keys WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
