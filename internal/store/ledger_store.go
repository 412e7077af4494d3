package store

import (
	"context"
	"database/sql"
	"errors"

	"walletledger/internal/apperr"
	"walletledger/internal/models"
)

// LedgerStore is the append-only entry log. Rows are inserted and read, never
// updated or deleted; balances are aggregated from them on every read.
type LedgerStore struct {
	db DB
}

type LedgerEntryInput struct {
	ID                   string
	WalletID             string
	Amount               int64
	Direction            models.Direction
	TransactionReference string
	TransferID           *string
	ExternalPaymentRef   *string
}

const balanceQuery = `
	SELECT COALESCE(SUM(CASE WHEN direction = 'credit' THEN amount ELSE -amount END), 0)
	FROM ledger_entries
	WHERE wallet_id = $1
`

const entryColumns = `id, wallet_id, amount, direction, transaction_reference, transfer_id, external_payment_ref, created_at`

func NewLedgerStore(db DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// GetBalance returns credits minus debits for the wallet, 0 when it has no
// entries. Wallet existence is the caller's concern.
func (s *LedgerStore) GetBalance(ctx context.Context, walletID string) (int64, error) {
	return s.GetBalanceTx(ctx, s.db, walletID)
}

func (s *LedgerStore) GetBalanceTx(ctx context.Context, tx Getter, walletID string) (int64, error) {
	var balance int64
	if err := tx.GetContext(ctx, &balance, balanceQuery, walletID); err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *LedgerStore) CreateEntry(ctx context.Context, tx Getter, input LedgerEntryInput) (models.LedgerEntry, error) {
	if input.Amount <= 0 {
		return models.LedgerEntry{}, apperr.Validation("amount", "ledger entry amount must be positive")
	}
	if !input.Direction.Valid() {
		return models.LedgerEntry{}, apperr.Validation("direction", "direction must be credit or debit")
	}
	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM wallets WHERE id = $1)`, input.WalletID); err != nil {
		return models.LedgerEntry{}, err
	}
	if !exists {
		return models.LedgerEntry{}, apperr.WalletNotFound(input.WalletID)
	}
	var entry models.LedgerEntry
	err := tx.GetContext(ctx, &entry, `
		INSERT INTO ledger_entries (id, wallet_id, amount, direction, transaction_reference, transfer_id, external_payment_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+entryColumns,
		input.ID, input.WalletID, input.Amount, string(input.Direction), input.TransactionReference, input.TransferID, input.ExternalPaymentRef,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err, constraintExternalPaymentRef) && input.ExternalPaymentRef != nil:
			return models.LedgerEntry{}, apperr.DuplicatePaymentRef(*input.ExternalPaymentRef)
		case isForeignKeyViolation(err):
			return models.LedgerEntry{}, apperr.WalletNotFound(input.WalletID)
		}
		return models.LedgerEntry{}, err
	}
	return entry, nil
}

// GetEntries pages through a wallet's entries, most recent first.
func (s *LedgerStore) GetEntries(ctx context.Context, walletID string, limit, offset int) ([]models.LedgerEntry, error) {
	entries := []models.LedgerEntry{}
	err := s.db.SelectContext(ctx, &entries, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE wallet_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2 OFFSET $3
	`, walletID, limit, offset)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *LedgerStore) CountByWallet(ctx context.Context, walletID string) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM ledger_entries WHERE wallet_id = $1`, walletID)
	return count, err
}

// FindByExternalPaymentRef returns nil when no entry carries the reference.
func (s *LedgerStore) FindByExternalPaymentRef(ctx context.Context, tx Getter, ref string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := tx.GetContext(ctx, &entry, `SELECT `+entryColumns+` FROM ledger_entries WHERE external_payment_ref = $1`, ref)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetByExternalPaymentRef looks the reference up outside any transaction, so it
// sees every committed entry.
func (s *LedgerStore) GetByExternalPaymentRef(ctx context.Context, ref string) (*models.LedgerEntry, error) {
	return s.FindByExternalPaymentRef(ctx, s.db, ref)
}

func (s *LedgerStore) GetByTransactionReference(ctx context.Context, ref string) ([]models.LedgerEntry, error) {
	entries := []models.LedgerEntry{}
	err := s.db.SelectContext(ctx, &entries, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE transaction_reference = $1
		ORDER BY created_at ASC, seq ASC
	`, ref)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
