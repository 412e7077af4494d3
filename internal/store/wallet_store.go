package store

import (
	"context"
	"database/sql"
	"errors"

	"walletledger/internal/apperr"
	"walletledger/internal/models"
)

type WalletStore struct {
	db DB
}

func NewWalletStore(db DB) *WalletStore {
	return &WalletStore{db: db}
}

func (s *WalletStore) Create(ctx context.Context, tx Getter, wallet models.Wallet) (models.Wallet, error) {
	var created models.Wallet
	err := tx.GetContext(ctx, &created, `
		INSERT INTO wallets (id, owner_id)
		VALUES ($1, $2)
		RETURNING id, owner_id, created_at
	`, wallet.ID, wallet.OwnerID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Wallet{}, apperr.UserNotFound(wallet.OwnerID)
		}
		return models.Wallet{}, err
	}
	return created, nil
}

func (s *WalletStore) GetByID(ctx context.Context, walletID string) (models.Wallet, error) {
	var wallet models.Wallet
	err := s.db.GetContext(ctx, &wallet, `SELECT id, owner_id, created_at FROM wallets WHERE id = $1`, walletID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Wallet{}, apperr.WalletNotFound(walletID)
	}
	return wallet, err
}

func (s *WalletStore) GetByOwner(ctx context.Context, ownerID string) (models.Wallet, error) {
	var wallet models.Wallet
	err := s.db.GetContext(ctx, &wallet, `SELECT id, owner_id, created_at FROM wallets WHERE owner_id = $1`, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Wallet{}, apperr.UserNotFound(ownerID)
	}
	return wallet, err
}

// GetForUpdate takes an exclusive row lock on the wallet for the remainder of
// the caller's transaction.
func (s *WalletStore) GetForUpdate(ctx context.Context, tx Getter, walletID string) (models.Wallet, error) {
	var wallet models.Wallet
	err := tx.GetContext(ctx, &wallet, `
		SELECT id, owner_id, created_at
		FROM wallets
		WHERE id = $1
		FOR UPDATE
	`, walletID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Wallet{}, apperr.WalletNotFound(walletID)
	}
	if err != nil {
		return models.Wallet{}, err
	}
	return wallet, nil
}
