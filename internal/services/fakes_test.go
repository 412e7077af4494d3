package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"walletledger/internal/apperr"
	"walletledger/internal/models"
	"walletledger/internal/store"
	"walletledger/internal/websocket"
)

// memLedger is an in-memory stand-in for the database. Each unit of work gets
// its own *sqlx.Tx handle so the stores can tell transactions apart: wallet rows
// are locked per id by GetForUpdate and held until commit or rollback, and a
// rollback undoes exactly the writes of the failed transaction while others
// keep running. A lock that cannot be taken within lockWait fails with a
// deadlock error the way Postgres would.
//
// With snapshotRefs set, payment references follow serializable snapshot
// rules: a transaction does not see references committed after it began, and
// inserting one of them fails with a serialization error instead of a
// duplicate.
type memLedger struct {
	mu        sync.Mutex
	owners    map[string]models.Owner
	wallets   map[string]models.Wallet
	entries   []models.LedgerEntry
	transfers map[string]models.Transfer
	locks     []string

	rowLocks map[string]*sync.Mutex
	txs      map[*sqlx.Tx]*memTx
	writers  map[string]*memTx
	clock    int64

	snapshotRefs  bool
	createEntryFn func(input store.LedgerEntryInput) error
}

const lockWait = 5 * time.Second

type memTx struct {
	start     int64
	committed int64
	held      []string
	undo      []func()
}

func (tx *memTx) holds(walletID string) bool {
	for _, id := range tx.held {
		if id == walletID {
			return true
		}
	}
	return false
}

// sees reports whether a write by writer is visible to tx; a nil tx reads
// committed data. Writes made
// outside any transaction count as committed before everything.
func (tx *memTx) sees(writer *memTx) bool {
	if writer == nil || writer == tx {
		return true
	}
	if writer.committed == 0 {
		return false
	}
	return tx == nil || writer.committed <= tx.start
}

func newMemLedger() *memLedger {
	return &memLedger{
		owners:    map[string]models.Owner{},
		wallets:   map[string]models.Wallet{},
		transfers: map[string]models.Transfer{},
		rowLocks:  map[string]*sync.Mutex{},
		txs:       map[*sqlx.Tx]*memTx{},
		writers:   map[string]*memTx{},
	}
}

// txFor resolves the transaction behind a store argument. l.mu must be held.
func (l *memLedger) txFor(q any) *memTx {
	handle, _ := q.(*sqlx.Tx)
	if handle == nil {
		return nil
	}
	return l.txs[handle]
}

// onRollback registers an undo step for tx. l.mu must be held.
func (l *memLedger) onRollback(tx *memTx, fn func()) {
	if tx != nil {
		tx.undo = append(tx.undo, fn)
	}
}

func (l *memLedger) begin() (*sqlx.Tx, *memTx) {
	l.mu.Lock()
	defer l.mu.Unlock()
	handle := &sqlx.Tx{}
	tx := &memTx{start: l.clock}
	l.txs[handle] = tx
	return handle, tx
}

func (l *memLedger) finish(handle *sqlx.Tx, tx *memTx, commit bool) {
	l.mu.Lock()
	if commit {
		l.clock++
		tx.committed = l.clock
	} else {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
	}
	delete(l.txs, handle)
	rows := make([]*sync.Mutex, 0, len(tx.held))
	for _, id := range tx.held {
		rows = append(rows, l.rowLocks[id])
	}
	l.mu.Unlock()
	for _, row := range rows {
		row.Unlock()
	}
}

func (l *memLedger) lockRow(ctx context.Context, q any, walletID string) error {
	l.mu.Lock()
	tx := l.txFor(q)
	if tx == nil || tx.holds(walletID) {
		l.mu.Unlock()
		return nil
	}
	row, ok := l.rowLocks[walletID]
	if !ok {
		row = &sync.Mutex{}
		l.rowLocks[walletID] = row
	}
	l.mu.Unlock()

	deadline := time.Now().Add(lockWait)
	for !row.TryLock() {
		if time.Now().After(deadline) {
			return &pq.Error{Code: "40P01", Message: "deadlock detected"}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Microsecond):
		}
	}
	l.mu.Lock()
	tx.held = append(tx.held, walletID)
	l.mu.Unlock()
	return nil
}

// removeEntry drops an entry written by a rolled back transaction. l.mu must be held.
func (l *memLedger) removeEntry(id string) {
	for i, e := range l.entries {
		if e.ID == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			break
		}
	}
	delete(l.writers, id)
}

func (l *memLedger) addWallet(id, ownerID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.wallets[id] = models.Wallet{ID: id, OwnerID: ownerID}
}

func (l *memLedger) balance(walletID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var sum int64
	for _, e := range l.entries {
		if e.WalletID != walletID {
			continue
		}
		if e.Direction == models.DirectionCredit {
			sum += e.Amount
		} else {
			sum -= e.Amount
		}
	}
	return sum
}

func (l *memLedger) entryCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *memLedger) transferCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.transfers)
}

type memTxRunner struct {
	ledger *memLedger
	mu     sync.Mutex
	calls  int
}

func (r *memTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	handle, tx := r.ledger.begin()
	err := fn(handle)
	r.ledger.finish(handle, tx, err == nil)
	return err
}

type failingTxRunner struct {
	err error
}

func (f failingTxRunner) WithTx(context.Context, func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return errors.New("unexpected unit of work")
}

type memOwnerStore struct{ l *memLedger }

func (s memOwnerStore) Create(_ context.Context, tx store.Getter, owner models.Owner) (models.Owner, error) {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	for _, existing := range s.l.owners {
		if existing.Email == owner.Email {
			return models.Owner{}, apperr.DuplicateEmail(owner.Email)
		}
	}
	s.l.owners[owner.ID] = owner
	s.l.onRollback(s.l.txFor(tx), func() { delete(s.l.owners, owner.ID) })
	return owner, nil
}

func (s memOwnerStore) GetByEmail(_ context.Context, email string) (models.Owner, error) {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	for _, owner := range s.l.owners {
		if owner.Email == email {
			return owner, nil
		}
	}
	return models.Owner{}, &apperr.Error{Kind: apperr.KindUserNotFound, Message: "no user registered with this email"}
}

type memWalletStore struct{ l *memLedger }

func (s memWalletStore) Create(_ context.Context, tx store.Getter, wallet models.Wallet) (models.Wallet, error) {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	if _, ok := s.l.owners[wallet.OwnerID]; !ok {
		return models.Wallet{}, apperr.UserNotFound(wallet.OwnerID)
	}
	s.l.wallets[wallet.ID] = wallet
	s.l.onRollback(s.l.txFor(tx), func() { delete(s.l.wallets, wallet.ID) })
	return wallet, nil
}

func (s memWalletStore) GetByID(_ context.Context, walletID string) (models.Wallet, error) {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	wallet, ok := s.l.wallets[walletID]
	if !ok {
		return models.Wallet{}, apperr.WalletNotFound(walletID)
	}
	return wallet, nil
}

func (s memWalletStore) GetByOwner(_ context.Context, ownerID string) (models.Wallet, error) {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	for _, wallet := range s.l.wallets {
		if wallet.OwnerID == ownerID {
			return wallet, nil
		}
	}
	return models.Wallet{}, apperr.UserNotFound(ownerID)
}

func (s memWalletStore) GetForUpdate(ctx context.Context, tx store.Getter, walletID string) (models.Wallet, error) {
	s.l.mu.Lock()
	s.l.locks = append(s.l.locks, walletID)
	_, exists := s.l.wallets[walletID]
	s.l.mu.Unlock()
	if !exists {
		return models.Wallet{}, apperr.WalletNotFound(walletID)
	}
	if err := s.l.lockRow(ctx, tx, walletID); err != nil {
		return models.Wallet{}, err
	}
	return s.GetByID(ctx, walletID)
}

type memLedgerStore struct{ l *memLedger }

func (s memLedgerStore) GetBalance(_ context.Context, walletID string) (int64, error) {
	return s.l.balance(walletID), nil
}

func (s memLedgerStore) GetBalanceTx(ctx context.Context, _ store.Getter, walletID string) (int64, error) {
	return s.GetBalance(ctx, walletID)
}

func (s memLedgerStore) CreateEntry(_ context.Context, q store.Getter, input store.LedgerEntryInput) (models.LedgerEntry, error) {
	if input.Amount <= 0 {
		return models.LedgerEntry{}, apperr.Validation("amount", "ledger entry amount must be positive")
	}
	if !input.Direction.Valid() {
		return models.LedgerEntry{}, apperr.Validation("direction", "direction must be credit or debit")
	}
	if s.l.createEntryFn != nil {
		if err := s.l.createEntryFn(input); err != nil {
			return models.LedgerEntry{}, err
		}
	}
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	tx := s.l.txFor(q)
	if _, ok := s.l.wallets[input.WalletID]; !ok {
		return models.LedgerEntry{}, apperr.WalletNotFound(input.WalletID)
	}
	if input.ExternalPaymentRef != nil {
		for _, e := range s.l.entries {
			if e.ExternalPaymentRef == nil || *e.ExternalPaymentRef != *input.ExternalPaymentRef {
				continue
			}
			if s.l.snapshotRefs && tx != nil && !tx.sees(s.l.writers[e.ID]) {
				return models.LedgerEntry{}, &pq.Error{Code: "40001", Message: "could not serialize access due to read/write dependencies among transactions"}
			}
			return models.LedgerEntry{}, apperr.DuplicatePaymentRef(*input.ExternalPaymentRef)
		}
	}
	entry := models.LedgerEntry{
		ID:                   input.ID,
		WalletID:             input.WalletID,
		Amount:               input.Amount,
		Direction:            input.Direction,
		TransactionReference: input.TransactionReference,
		TransferID:           input.TransferID,
		ExternalPaymentRef:   input.ExternalPaymentRef,
	}
	s.l.entries = append(s.l.entries, entry)
	s.l.writers[entry.ID] = tx
	s.l.onRollback(tx, func() { s.l.removeEntry(entry.ID) })
	return entry, nil
}

func (s memLedgerStore) GetEntries(_ context.Context, walletID string, limit, offset int) ([]models.LedgerEntry, error) {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	var mine []models.LedgerEntry
	for i := len(s.l.entries) - 1; i >= 0; i-- {
		if s.l.entries[i].WalletID == walletID {
			mine = append(mine, s.l.entries[i])
		}
	}
	if offset >= len(mine) {
		return []models.LedgerEntry{}, nil
	}
	mine = mine[offset:]
	if len(mine) > limit {
		mine = mine[:limit]
	}
	return mine, nil
}

func (s memLedgerStore) CountByWallet(_ context.Context, walletID string) (int64, error) {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	var n int64
	for _, e := range s.l.entries {
		if e.WalletID == walletID {
			n++
		}
	}
	return n, nil
}

func (s memLedgerStore) FindByExternalPaymentRef(_ context.Context, q store.Getter, ref string) (*models.LedgerEntry, error) {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	tx := s.l.txFor(q)
	for _, e := range s.l.entries {
		if e.ExternalPaymentRef == nil || *e.ExternalPaymentRef != ref {
			continue
		}
		if s.l.snapshotRefs && !tx.sees(s.l.writers[e.ID]) {
			continue
		}
		found := e
		return &found, nil
	}
	return nil, nil
}

func (s memLedgerStore) GetByExternalPaymentRef(_ context.Context, ref string) (*models.LedgerEntry, error) {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	for _, e := range s.l.entries {
		if e.ExternalPaymentRef == nil || *e.ExternalPaymentRef != ref {
			continue
		}
		if writer := s.l.writers[e.ID]; writer != nil && writer.committed == 0 {
			continue
		}
		found := e
		return &found, nil
	}
	return nil, nil
}

func (s memLedgerStore) GetByTransactionReference(_ context.Context, ref string) ([]models.LedgerEntry, error) {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	entries := []models.LedgerEntry{}
	for _, e := range s.l.entries {
		if e.TransactionReference == ref {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

type memTransferStore struct{ l *memLedger }

func (s memTransferStore) Create(_ context.Context, tx store.Getter, transfer models.Transfer) (models.Transfer, error) {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	s.l.transfers[transfer.ID] = transfer
	s.l.onRollback(s.l.txFor(tx), func() { delete(s.l.transfers, transfer.ID) })
	return transfer, nil
}

func (s memTransferStore) UpdateStatus(_ context.Context, tx store.Execer, transferID string, status models.TransferStatus) error {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	transfer, ok := s.l.transfers[transferID]
	if !ok {
		return apperr.TransferNotFound(transferID)
	}
	previous := transfer
	transfer.Status = status
	s.l.transfers[transferID] = transfer
	s.l.onRollback(s.l.txFor(tx), func() {
		if _, still := s.l.transfers[transferID]; still {
			s.l.transfers[transferID] = previous
		}
	})
	return nil
}

func (s memTransferStore) GetByID(_ context.Context, transferID string) (models.Transfer, error) {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	transfer, ok := s.l.transfers[transferID]
	if !ok {
		return models.Transfer{}, apperr.TransferNotFound(transferID)
	}
	return transfer, nil
}

type stubHub struct {
	mu      sync.Mutex
	updates map[string][]websocket.BalanceUpdate
}

func (h *stubHub) BroadcastBalance(ownerID string, update websocket.BalanceUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.updates == nil {
		h.updates = map[string][]websocket.BalanceUpdate{}
	}
	h.updates[ownerID] = append(h.updates[ownerID], update)
}
