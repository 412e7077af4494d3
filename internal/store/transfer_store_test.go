package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"walletledger/internal/apperr"
	"walletledger/internal/models"
)

func TestTransferStoreCreate(t *testing.T) {
	ctx := context.Background()
	store := NewTransferStore(stubDB{})
	tx := stubGetter{getFn: func(_ context.Context, dest any, query string, args ...any) error {
		if !strings.Contains(query, "INSERT INTO transfers") {
			t.Fatalf("unexpected query: %s", query)
		}
		if args[4] != "pending" || args[5] != "transfer:t1" {
			t.Fatalf("unexpected args: %#v", args)
		}
		*dest.(*models.Transfer) = models.Transfer{ID: "t1", Status: models.TransferPending}
		return nil
	}}
	transfer, err := store.Create(ctx, tx, models.Transfer{
		ID: "t1", SenderWalletID: "a", ReceiverWalletID: "b", Amount: 10,
		Status: models.TransferPending, TransactionReference: "transfer:t1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transfer.ID != "t1" {
		t.Fatalf("unexpected transfer: %#v", transfer)
	}
}

func TestTransferStoreUpdateStatus(t *testing.T) {
	ctx := context.Background()
	store := NewTransferStore(stubDB{})
	execer := stubExecer{execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
		if !strings.Contains(query, "UPDATE transfers") || args[0] != "completed" {
			t.Fatalf("unexpected call: %s %#v", query, args)
		}
		return stubResult{rows: 1}, nil
	}}
	if err := store.UpdateStatus(ctx, execer, "t1", models.TransferCompleted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	missing := stubExecer{execFn: func(context.Context, string, ...any) (sql.Result, error) {
		return stubResult{rows: 0}, nil
	}}
	if err := store.UpdateStatus(ctx, missing, "t2", models.TransferCompleted); !apperr.Is(err, apperr.KindTransferNotFound) {
		t.Fatalf("expected transfer not found, got %v", err)
	}
}

func TestTransferStoreGetByIDNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewTransferStore(stubDB{
		getFn: func(context.Context, any, string, ...any) error { return sql.ErrNoRows },
	})
	if _, err := store.GetByID(ctx, "t1"); !apperr.Is(err, apperr.KindTransferNotFound) {
		t.Fatalf("expected transfer not found, got %v", err)
	}
}
