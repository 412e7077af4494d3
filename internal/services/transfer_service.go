package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"walletledger/internal/apperr"
	"walletledger/internal/db"
	"walletledger/internal/metrics"
	"walletledger/internal/models"
	"walletledger/internal/store"
	"walletledger/internal/validator"
)

const transferReferencePrefix = "transfer:"

type TransferService struct {
	txRunner  db.TxRunner
	wallets   WalletStore
	ledger    LedgerStore
	transfers TransferStore
	hub       BalanceHub
	maxAmount int64
	logger    *zap.Logger
}

func NewTransferService(txRunner db.TxRunner, wallets WalletStore, ledger LedgerStore, transfers TransferStore, hub BalanceHub, maxAmount int64, logger *zap.Logger) *TransferService {
	return &TransferService{
		txRunner:  txRunner,
		wallets:   wallets,
		ledger:    ledger,
		transfers: transfers,
		hub:       hub,
		maxAmount: maxAmount,
		logger:    logger,
	}
}

type TransferRequest struct {
	SenderWalletID   string
	ReceiverWalletID string
	Amount           int64
}

// TransferResult is a completed transfer with its debit and credit entries.
type TransferResult struct {
	Transfer models.Transfer      `json:"transfer"`
	Entries  []models.LedgerEntry `json:"entries"`
}

func (s *TransferService) validate(req TransferRequest) error {
	if err := validator.ValidateID("sender_wallet_id", req.SenderWalletID); err != nil {
		return err
	}
	if err := validator.ValidateID("receiver_wallet_id", req.ReceiverWalletID); err != nil {
		return err
	}
	if req.Amount <= 0 {
		return apperr.Validation("amount", "amount must be positive")
	}
	if s.maxAmount > 0 && req.Amount > s.maxAmount {
		return apperr.Validation("amount", "amount exceeds the configured maximum")
	}
	if req.SenderWalletID == req.ReceiverWalletID {
		return apperr.Validation("receiver_wallet_id", "cannot transfer to the same wallet")
	}
	return nil
}

// Transfer moves funds between two wallets in a single serializable unit of
// work. Either the transfer record and both entries commit together or nothing
// is written.
func (s *TransferService) Transfer(ctx context.Context, req TransferRequest) (TransferResult, error) {
	if err := s.validate(req); err != nil {
		metrics.TransfersTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return TransferResult{}, err
	}

	var result TransferResult
	var sender, receiver models.Wallet
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		sender, receiver, err = lockTwoWallets(ctx, tx, s.wallets, req.SenderWalletID, req.ReceiverWalletID)
		if err != nil {
			return err
		}

		available, err := s.ledger.GetBalanceTx(ctx, tx, sender.ID)
		if err != nil {
			return err
		}
		if available < req.Amount {
			return apperr.InsufficientBalance(sender.ID, available, req.Amount)
		}

		transferID := uuid.NewString()
		reference := transferReferencePrefix + transferID
		transfer, err := s.transfers.Create(ctx, tx, models.Transfer{
			ID:                   transferID,
			SenderWalletID:       sender.ID,
			ReceiverWalletID:     receiver.ID,
			Amount:               req.Amount,
			Status:               models.TransferPending,
			TransactionReference: reference,
		})
		if err != nil {
			return err
		}

		debit, err := s.ledger.CreateEntry(ctx, tx, store.LedgerEntryInput{
			ID:                   uuid.NewString(),
			WalletID:             sender.ID,
			Amount:               req.Amount,
			Direction:            models.DirectionDebit,
			TransactionReference: reference,
			TransferID:           stringPtr(transferID),
		})
		if err != nil {
			return err
		}
		credit, err := s.ledger.CreateEntry(ctx, tx, store.LedgerEntryInput{
			ID:                   uuid.NewString(),
			WalletID:             receiver.ID,
			Amount:               req.Amount,
			Direction:            models.DirectionCredit,
			TransactionReference: reference,
			TransferID:           stringPtr(transferID),
		})
		if err != nil {
			return err
		}

		if err := s.transfers.UpdateStatus(ctx, tx, transferID, models.TransferCompleted); err != nil {
			return err
		}
		transfer.Status = models.TransferCompleted
		result = TransferResult{Transfer: transfer, Entries: []models.LedgerEntry{debit, credit}}
		return nil
	})
	metrics.TransfersTotal.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		return TransferResult{}, err
	}

	s.logger.Info("transfer completed",
		zap.String("transfer_id", result.Transfer.ID),
		zap.String("sender_wallet_id", sender.ID),
		zap.String("receiver_wallet_id", receiver.ID),
		zap.Int64("amount", req.Amount),
	)
	pushBalances(ctx, s.ledger, s.hub, s.logger, sender, receiver)
	return result, nil
}

// GetTransfer returns a transfer together with the entries it produced.
func (s *TransferService) GetTransfer(ctx context.Context, transferID string) (TransferResult, error) {
	if err := validator.ValidateID("transfer_id", transferID); err != nil {
		return TransferResult{}, err
	}
	transfer, err := s.transfers.GetByID(ctx, transferID)
	if err != nil {
		return TransferResult{}, err
	}
	entries, err := s.ledger.GetByTransactionReference(ctx, transfer.TransactionReference)
	if err != nil {
		return TransferResult{}, err
	}
	return TransferResult{Transfer: transfer, Entries: entries}, nil
}
