package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrTransactionNotFound indicates that the record does not exist or belongs to another owner.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrDuplicateReference indicates that the generated reference is already taken.
	ErrDuplicateReference = errors.New("duplicate transaction reference")
	// ErrInvalidPagination indicates non-positive page size or page id.
	ErrInvalidPagination = errors.New("invalid pagination")
)

// TransactionKind is the ledger operation that produced a record.
type TransactionKind string

// Supported transaction kinds.
const (
	KindDeposit    TransactionKind = "DEPOSIT"
	KindWithdrawal TransactionKind = "WITHDRAWAL"
	KindTransfer   TransactionKind = "TRANSFER"
	KindReceived   TransactionKind = "RECEIVED"
)

// TransactionStatus is the outcome stored with a record.
type TransactionStatus string

// Supported transaction statuses.
const (
	StatusSuccess TransactionStatus = "success"
	StatusFailed  TransactionStatus = "failed"
	StatusPending TransactionStatus = "pending"
)

// Transaction is an immutable ledger record.
type Transaction struct {
	ID         int64             `json:"-"`
	Reference  string            `json:"reference"`
	Owner      string            `json:"owner"`
	Kind       TransactionKind   `json:"type"`
	Status     TransactionStatus `json:"status"`
	Amount     decimal.Decimal   `json:"amount"` // negative for debits
	NewBalance decimal.Decimal   `json:"new_balance"`
	// TransferID and Counterparty are set on both records of a transfer.
	TransferID   string    `json:"transfer_id,omitempty"`
	Counterparty string    `json:"counterparty,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AppendTransactionParams is the input data to append a record to the log.
type AppendTransactionParams struct {
	Reference    string
	Owner        string
	Kind         TransactionKind
	Status       TransactionStatus
	Amount       decimal.Decimal
	NewBalance   decimal.Decimal
	TransferID   string
	Counterparty string
}

// ListTransactionsParams is the input data to page through the records of an owner.
type ListTransactionsParams struct {
	Owner  string
	Limit  int32
	Offset int32
}
