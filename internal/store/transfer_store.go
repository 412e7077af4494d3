package store

import (
	"context"
	"database/sql"
	"errors"

	"walletledger/internal/apperr"
	"walletledger/internal/models"
)

type TransferStore struct {
	db DB
}

func NewTransferStore(db DB) *TransferStore {
	return &TransferStore{db: db}
}

func (s *TransferStore) Create(ctx context.Context, tx Getter, transfer models.Transfer) (models.Transfer, error) {
	var created models.Transfer
	err := tx.GetContext(ctx, &created, `
		INSERT INTO transfers (id, sender_wallet_id, receiver_wallet_id, amount, status, transaction_reference)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, sender_wallet_id, receiver_wallet_id, amount, status, transaction_reference, created_at
	`, transfer.ID, transfer.SenderWalletID, transfer.ReceiverWalletID, transfer.Amount, string(transfer.Status), transfer.TransactionReference)
	if err != nil {
		return models.Transfer{}, err
	}
	return created, nil
}

func (s *TransferStore) UpdateStatus(ctx context.Context, tx Execer, transferID string, status models.TransferStatus) error {
	res, err := tx.ExecContext(ctx, `UPDATE transfers SET status = $1 WHERE id = $2`, string(status), transferID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows != 1 {
		return apperr.TransferNotFound(transferID)
	}
	return nil
}

func (s *TransferStore) GetByID(ctx context.Context, transferID string) (models.Transfer, error) {
	var transfer models.Transfer
	err := s.db.GetContext(ctx, &transfer, `
		SELECT id, sender_wallet_id, receiver_wallet_id, amount, status, transaction_reference, created_at
		FROM transfers
		WHERE id = $1
	`, transferID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transfer{}, apperr.TransferNotFound(transferID)
	}
	return transfer, err
}
