package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"walletledger/internal/apperr"
	"walletledger/internal/auth"
	"walletledger/internal/config"
	"walletledger/internal/idempotency"
	"walletledger/internal/models"
	"walletledger/internal/services"
	"walletledger/internal/websocket"
)

type stubWalletService struct {
	createOwnerFn      func(ctx context.Context, req services.CreateOwnerRequest) (models.Owner, models.Wallet, error)
	authenticateFn     func(ctx context.Context, email, password string) (models.Owner, error)
	getWalletBalanceFn func(ctx context.Context, walletID string) (services.Balance, error)
	getOwnerBalanceFn  func(ctx context.Context, ownerID string) (services.Balance, error)
	listHistoryFn      func(ctx context.Context, walletID string, limit, offset int) (services.History, error)
}

func (s stubWalletService) CreateOwner(ctx context.Context, req services.CreateOwnerRequest) (models.Owner, models.Wallet, error) {
	return s.createOwnerFn(ctx, req)
}

func (s stubWalletService) Authenticate(ctx context.Context, email, password string) (models.Owner, error) {
	return s.authenticateFn(ctx, email, password)
}

func (s stubWalletService) GetWalletBalance(ctx context.Context, walletID string) (services.Balance, error) {
	return s.getWalletBalanceFn(ctx, walletID)
}

func (s stubWalletService) GetOwnerBalance(ctx context.Context, ownerID string) (services.Balance, error) {
	return s.getOwnerBalanceFn(ctx, ownerID)
}

func (s stubWalletService) ListHistory(ctx context.Context, walletID string, limit, offset int) (services.History, error) {
	return s.listHistoryFn(ctx, walletID, limit, offset)
}

type stubFundingService struct {
	fundWalletFn func(ctx context.Context, req services.FundRequest) (models.LedgerEntry, error)
}

func (s stubFundingService) FundWallet(ctx context.Context, req services.FundRequest) (models.LedgerEntry, error) {
	return s.fundWalletFn(ctx, req)
}

type stubTransferService struct {
	transferFn    func(ctx context.Context, req services.TransferRequest) (services.TransferResult, error)
	getTransferFn func(ctx context.Context, transferID string) (services.TransferResult, error)
}

func (s stubTransferService) Transfer(ctx context.Context, req services.TransferRequest) (services.TransferResult, error) {
	return s.transferFn(ctx, req)
}

func (s stubTransferService) GetTransfer(ctx context.Context, transferID string) (services.TransferResult, error) {
	return s.getTransferFn(ctx, transferID)
}

// memKeyStore is a first-writer-wins idempotency store for exercising the
// real gate through the HTTP layer.
type memKeyStore struct {
	mu   sync.Mutex
	rows map[string]models.IdempotencyKey
}

func newMemKeyStore() *memKeyStore {
	return &memKeyStore{rows: map[string]models.IdempotencyKey{}}
}

func (s *memKeyStore) CheckAndGetResponse(_ context.Context, key, hash string) (*models.IdempotencyKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[key]
	if !ok {
		return nil, nil
	}
	if row.RequestHash != hash {
		return nil, apperr.IdempotencyKeyConflict(key, "idempotency key was already used with a different request body")
	}
	return &row, nil
}

func (s *memKeyStore) StoreKey(_ context.Context, key, hash string, status int, body []byte) (models.IdempotencyKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[key]; ok {
		if row.RequestHash != hash {
			return models.IdempotencyKey{}, apperr.IdempotencyKeyConflict(key, "idempotency key was already used with a different request body")
		}
		return row, nil
	}
	row := models.IdempotencyKey{Key: key, RequestHash: hash, ResponseStatus: status, ResponseBody: body}
	s.rows[key] = row
	return row, nil
}

func testConfig() config.Config {
	return config.Config{
		AppEnv:         "test",
		Port:           "0",
		JWTSecret:      "secret",
		TokenTTL:       time.Minute,
		AllowedOrigins: "*",
		MaxAmount:      100_000_000,
	}
}

func newTestHandler(wallets WalletService, funding FundingService, transfers TransferService) *Handler {
	logger := zap.NewNop()
	gate := idempotency.NewGate(newMemKeyStore(), nil, time.Second, logger)
	return New(testConfig(), logger, wallets, funding, transfers, gate, websocket.NewHub())
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	token, err := auth.GenerateToken("secret", "owner-1", time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func doRequestNoAuth(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}
