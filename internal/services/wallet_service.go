package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"walletledger/internal/apperr"
	"walletledger/internal/auth"
	"walletledger/internal/db"
	"walletledger/internal/models"
	"walletledger/internal/validator"
)

type WalletService struct {
	txRunner db.TxRunner
	owners   OwnerStore
	wallets  WalletStore
	ledger   LedgerStore
	logger   *zap.Logger
}

func NewWalletService(txRunner db.TxRunner, owners OwnerStore, wallets WalletStore, ledger LedgerStore, logger *zap.Logger) *WalletService {
	return &WalletService{
		txRunner: txRunner,
		owners:   owners,
		wallets:  wallets,
		ledger:   ledger,
		logger:   logger,
	}
}

type CreateOwnerRequest struct {
	Name     string
	Email    string
	Password string
}

type Balance struct {
	WalletID string `json:"wallet_id"`
	OwnerID  string `json:"owner_id"`
	Balance  int64  `json:"balance"`
}

type History struct {
	WalletID string               `json:"wallet_id"`
	Entries  []models.LedgerEntry `json:"entries"`
	Limit    int                  `json:"limit"`
	Offset   int                  `json:"offset"`
	Total    int64                `json:"total"`
}

// CreateOwner registers an owner and opens their single wallet in one unit of
// work.
func (s *WalletService) CreateOwner(ctx context.Context, req CreateOwnerRequest) (models.Owner, models.Wallet, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validator.ValidateName(req.Name); err != nil {
		return models.Owner{}, models.Wallet{}, err
	}
	if err := validator.ValidateEmail(req.Email); err != nil {
		return models.Owner{}, models.Wallet{}, err
	}
	if err := validator.ValidatePassword(req.Password); err != nil {
		return models.Owner{}, models.Wallet{}, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return models.Owner{}, models.Wallet{}, err
	}

	var owner models.Owner
	var wallet models.Wallet
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		owner, err = s.owners.Create(ctx, tx, models.Owner{
			ID:           uuid.NewString(),
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: hash,
		})
		if err != nil {
			return err
		}
		wallet, err = s.wallets.Create(ctx, tx, models.Wallet{ID: uuid.NewString(), OwnerID: owner.ID})
		return err
	})
	if err != nil {
		return models.Owner{}, models.Wallet{}, err
	}
	s.logger.Info("owner created", zap.String("owner_id", owner.ID), zap.String("wallet_id", wallet.ID))
	return owner, wallet, nil
}

// Authenticate checks an owner's credentials. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *WalletService) Authenticate(ctx context.Context, email, password string) (models.Owner, error) {
	owner, err := s.owners.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperr.Is(err, apperr.KindUserNotFound) {
			return models.Owner{}, apperr.Unauthorized("invalid credentials")
		}
		return models.Owner{}, err
	}
	if !auth.CheckPassword(owner.PasswordHash, password) {
		return models.Owner{}, apperr.Unauthorized("invalid credentials")
	}
	return owner, nil
}

func (s *WalletService) GetWalletBalance(ctx context.Context, walletID string) (Balance, error) {
	if err := validator.ValidateID("wallet_id", walletID); err != nil {
		return Balance{}, err
	}
	wallet, err := s.wallets.GetByID(ctx, walletID)
	if err != nil {
		return Balance{}, err
	}
	return s.balanceOf(ctx, wallet)
}

func (s *WalletService) GetOwnerBalance(ctx context.Context, ownerID string) (Balance, error) {
	if err := validator.ValidateID("owner_id", ownerID); err != nil {
		return Balance{}, err
	}
	wallet, err := s.wallets.GetByOwner(ctx, ownerID)
	if err != nil {
		return Balance{}, err
	}
	return s.balanceOf(ctx, wallet)
}

func (s *WalletService) balanceOf(ctx context.Context, wallet models.Wallet) (Balance, error) {
	balance, err := s.ledger.GetBalance(ctx, wallet.ID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{WalletID: wallet.ID, OwnerID: wallet.OwnerID, Balance: balance}, nil
}

// ListHistory pages through a wallet's entries, newest first.
func (s *WalletService) ListHistory(ctx context.Context, walletID string, limit, offset int) (History, error) {
	if err := validator.ValidateID("wallet_id", walletID); err != nil {
		return History{}, err
	}
	limit, offset, err := validator.Pagination(limit, offset)
	if err != nil {
		return History{}, err
	}
	if _, err := s.wallets.GetByID(ctx, walletID); err != nil {
		return History{}, err
	}
	entries, err := s.ledger.GetEntries(ctx, walletID, limit, offset)
	if err != nil {
		return History{}, err
	}
	total, err := s.ledger.CountByWallet(ctx, walletID)
	if err != nil {
		return History{}, err
	}
	return History{WalletID: walletID, Entries: entries, Limit: limit, Offset: offset, Total: total}, nil
}
