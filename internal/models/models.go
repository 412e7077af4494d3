package models

import "time"

type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

func (d Direction) Valid() bool {
	return d == DirectionCredit || d == DirectionDebit
}

type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferCompleted TransferStatus = "completed"
	TransferFailed    TransferStatus = "failed"
)

type Owner struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Wallet is an identity record only; its balance is always derived from the
// ledger.
type Wallet struct {
	ID        string    `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type LedgerEntry struct {
	ID                   string    `db:"id" json:"id"`
	WalletID             string    `db:"wallet_id" json:"wallet_id"`
	Amount               int64     `db:"amount" json:"amount"`
	Direction            Direction `db:"direction" json:"direction"`
	TransactionReference string    `db:"transaction_reference" json:"transaction_reference"`
	TransferID           *string   `db:"transfer_id" json:"transfer_id"`
	ExternalPaymentRef   *string   `db:"external_payment_ref" json:"external_payment_ref"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
}

type Transfer struct {
	ID                   string         `db:"id" json:"id"`
	SenderWalletID       string         `db:"sender_wallet_id" json:"sender_wallet_id"`
	ReceiverWalletID     string         `db:"receiver_wallet_id" json:"receiver_wallet_id"`
	Amount               int64          `db:"amount" json:"amount"`
	Status               TransferStatus `db:"status" json:"status"`
	TransactionReference string         `db:"transaction_reference" json:"transaction_reference"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
}

type IdempotencyKey struct {
	Key            string    `db:"key" json:"key"`
	RequestHash    string    `db:"request_hash" json:"request_hash"`
	ResponseStatus int       `db:"response_status" json:"response_status"`
	ResponseBody   []byte    `db:"response_body" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	ExpiresAt      time.Time `db:"expires_at" json:"expires_at"`
}
