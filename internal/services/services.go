package services

import (
	"context"

	"go.uber.org/zap"

	"walletledger/internal/models"
	"walletledger/internal/money"
	"walletledger/internal/store"
	"walletledger/internal/websocket"
)

type OwnerStore interface {
	Create(ctx context.Context, tx store.Getter, owner models.Owner) (models.Owner, error)
	GetByEmail(ctx context.Context, email string) (models.Owner, error)
}

type WalletStore interface {
	Create(ctx context.Context, tx store.Getter, wallet models.Wallet) (models.Wallet, error)
	GetByID(ctx context.Context, walletID string) (models.Wallet, error)
	GetByOwner(ctx context.Context, ownerID string) (models.Wallet, error)
	GetForUpdate(ctx context.Context, tx store.Getter, walletID string) (models.Wallet, error)
}

type LedgerStore interface {
	GetBalance(ctx context.Context, walletID string) (int64, error)
	GetBalanceTx(ctx context.Context, tx store.Getter, walletID string) (int64, error)
	CreateEntry(ctx context.Context, tx store.Getter, input store.LedgerEntryInput) (models.LedgerEntry, error)
	GetEntries(ctx context.Context, walletID string, limit, offset int) ([]models.LedgerEntry, error)
	CountByWallet(ctx context.Context, walletID string) (int64, error)
	FindByExternalPaymentRef(ctx context.Context, tx store.Getter, ref string) (*models.LedgerEntry, error)
	GetByExternalPaymentRef(ctx context.Context, ref string) (*models.LedgerEntry, error)
	GetByTransactionReference(ctx context.Context, ref string) ([]models.LedgerEntry, error)
}

type TransferStore interface {
	Create(ctx context.Context, tx store.Getter, transfer models.Transfer) (models.Transfer, error)
	UpdateStatus(ctx context.Context, tx store.Execer, transferID string, status models.TransferStatus) error
	GetByID(ctx context.Context, transferID string) (models.Transfer, error)
}

type BalanceHub interface {
	BroadcastBalance(ownerID string, update websocket.BalanceUpdate)
}

// pushBalances sends freshly derived balances to the wallets' owners. It runs
// after commit and never fails the operation that triggered it.
func pushBalances(ctx context.Context, ledger LedgerStore, hub BalanceHub, logger *zap.Logger, wallets ...models.Wallet) {
	if hub == nil {
		return
	}
	for _, wallet := range wallets {
		balance, err := ledger.GetBalance(ctx, wallet.ID)
		if err != nil {
			logger.Warn("balance push skipped", zap.String("wallet_id", wallet.ID), zap.Error(err))
			continue
		}
		hub.BroadcastBalance(wallet.OwnerID, websocket.BalanceUpdate{
			WalletID:         wallet.ID,
			Balance:          balance,
			BalanceFormatted: money.FormatMinor(balance),
		})
	}
}

// lockTwoWallets locks both rows in a stable order so that opposing transfers
// between the same pair cannot deadlock, and returns them in argument order.
func lockTwoWallets(ctx context.Context, tx store.Getter, wallets WalletStore, firstID, secondID string) (models.Wallet, models.Wallet, error) {
	leftID, rightID := orderedIDs(firstID, secondID)
	left, err := wallets.GetForUpdate(ctx, tx, leftID)
	if err != nil {
		return models.Wallet{}, models.Wallet{}, err
	}
	right, err := wallets.GetForUpdate(ctx, tx, rightID)
	if err != nil {
		return models.Wallet{}, models.Wallet{}, err
	}
	if firstID == leftID {
		return left, right, nil
	}
	return right, left, nil
}

func orderedIDs(firstID, secondID string) (string, string) {
	if firstID <= secondID {
		return firstID, secondID
	}
	return secondID, firstID
}

func stringPtr(value string) *string {
	return &value
}
