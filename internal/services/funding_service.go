package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"walletledger/internal/apperr"
	"walletledger/internal/db"
	"walletledger/internal/metrics"
	"walletledger/internal/models"
	"walletledger/internal/store"
	"walletledger/internal/validator"
)

const fundingReferencePrefix = "fund:"

type FundingService struct {
	txRunner  db.TxRunner
	wallets   WalletStore
	ledger    LedgerStore
	hub       BalanceHub
	maxAmount int64
	logger    *zap.Logger
}

func NewFundingService(txRunner db.TxRunner, wallets WalletStore, ledger LedgerStore, hub BalanceHub, maxAmount int64, logger *zap.Logger) *FundingService {
	return &FundingService{
		txRunner:  txRunner,
		wallets:   wallets,
		ledger:    ledger,
		hub:       hub,
		maxAmount: maxAmount,
		logger:    logger,
	}
}

type FundRequest struct {
	WalletID           string
	Amount             int64
	ExternalPaymentRef string
}

// FundWallet credits a wallet from an external payment. Each external payment
// reference is accepted at most once; the unique index on the reference settles
// races the look-up cannot see. Under serializable isolation the losing insert
// of such a race fails with a serialization error rather than a unique
// violation, so a transient failure is re-checked against committed entries.
func (s *FundingService) FundWallet(ctx context.Context, req FundRequest) (models.LedgerEntry, error) {
	if err := s.validate(req); err != nil {
		metrics.FundingsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return models.LedgerEntry{}, err
	}

	var entry models.LedgerEntry
	var wallet models.Wallet
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		wallet, err = s.wallets.GetForUpdate(ctx, tx, req.WalletID)
		if err != nil {
			return err
		}
		existing, err := s.ledger.FindByExternalPaymentRef(ctx, tx, req.ExternalPaymentRef)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.DuplicatePaymentRef(req.ExternalPaymentRef)
		}
		entry, err = s.ledger.CreateEntry(ctx, tx, store.LedgerEntryInput{
			ID:                   uuid.NewString(),
			WalletID:             wallet.ID,
			Amount:               req.Amount,
			Direction:            models.DirectionCredit,
			TransactionReference: fundingReferencePrefix + ulid.Make().String(),
			ExternalPaymentRef:   stringPtr(req.ExternalPaymentRef),
		})
		return err
	})
	if db.IsTransient(err) {
		err = s.duplicateAfterConflict(ctx, req.ExternalPaymentRef, err)
	}
	metrics.FundingsTotal.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		return models.LedgerEntry{}, err
	}

	s.logger.Info("wallet funded",
		zap.String("wallet_id", wallet.ID),
		zap.String("external_payment_ref", req.ExternalPaymentRef),
		zap.Int64("amount", req.Amount),
	)
	pushBalances(ctx, s.ledger, s.hub, s.logger, wallet)
	return entry, nil
}

// duplicateAfterConflict reports DuplicatePaymentRef when the reference was
// committed by the transaction that won the race, and txErr otherwise.
func (s *FundingService) duplicateAfterConflict(ctx context.Context, ref string, txErr error) error {
	existing, err := s.ledger.GetByExternalPaymentRef(ctx, ref)
	if err != nil {
		s.logger.Warn("payment reference re-check failed", zap.String("external_payment_ref", ref), zap.Error(err))
		return txErr
	}
	if existing == nil {
		return txErr
	}
	s.logger.Info("concurrent funding lost to an earlier payment",
		zap.String("external_payment_ref", ref),
		zap.String("entry_id", existing.ID),
	)
	return apperr.DuplicatePaymentRef(ref)
}

func (s *FundingService) validate(req FundRequest) error {
	if err := validator.ValidateID("wallet_id", req.WalletID); err != nil {
		return err
	}
	if req.Amount <= 0 {
		return apperr.Validation("amount", "amount must be positive")
	}
	if s.maxAmount > 0 && req.Amount > s.maxAmount {
		return apperr.Validation("amount", "amount exceeds the configured maximum")
	}
	return validator.ValidatePaymentRef(req.ExternalPaymentRef)
}
