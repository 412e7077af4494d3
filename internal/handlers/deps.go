package handlers

import (
	"context"

	"walletledger/internal/idempotency"
	"walletledger/internal/models"
	"walletledger/internal/services"
)

type WalletService interface {
	CreateOwner(ctx context.Context, req services.CreateOwnerRequest) (models.Owner, models.Wallet, error)
	Authenticate(ctx context.Context, email, password string) (models.Owner, error)
	GetWalletBalance(ctx context.Context, walletID string) (services.Balance, error)
	GetOwnerBalance(ctx context.Context, ownerID string) (services.Balance, error)
	ListHistory(ctx context.Context, walletID string, limit, offset int) (services.History, error)
}

type FundingService interface {
	FundWallet(ctx context.Context, req services.FundRequest) (models.LedgerEntry, error)
}

type TransferService interface {
	Transfer(ctx context.Context, req services.TransferRequest) (services.TransferResult, error)
	GetTransfer(ctx context.Context, transferID string) (services.TransferResult, error)
}

type Gate interface {
	Execute(ctx context.Context, key, fingerprint string, op idempotency.Operation) (idempotency.Result, error)
}
