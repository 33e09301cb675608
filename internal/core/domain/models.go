package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account represents a merchant user of the API. Balances live in wallets,
// one per currency.
type Account struct {
	ID        uuid.UUID `json:"id"`
	OwnerName string    `json:"owner_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type TransactionKind string

const (
	KindDeposit TransactionKind = "DEPOSIT"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
	StatusCancelled TransactionStatus = "CANCELLED"
)

// Terminal reports whether no further transition may leave this status.
func (s TransactionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Transaction is the ledger-facing deposit record. Reference is the
// gateway-visible identifier, derived from UUID at intent creation and
// immutable afterwards. Amount is the ledger-unit decimal agreed at intent
// creation and is authoritative when validating gateway callbacks.
type Transaction struct {
	ID        int64             `json:"-"`
	UUID      uuid.UUID         `json:"id"`
	Reference string            `json:"reference"`
	AccountID uuid.UUID         `json:"account_id"`
	Kind      TransactionKind   `json:"kind"`
	Status    TransactionStatus `json:"status"`
	Amount    decimal.Decimal   `json:"amount"`
	Currency  string            `json:"currency"`
	Metadata  Metadata          `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type WalletType string

const (
	WalletFiat WalletType = "FIAT"
)

// Wallet holds an account's balance for one currency. It is credited exactly
// once per completed deposit.
type Wallet struct {
	ID        int64           `json:"-"`
	AccountID uuid.UUID       `json:"account_id"`
	Currency  string          `json:"currency"`
	Type      WalletType      `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
