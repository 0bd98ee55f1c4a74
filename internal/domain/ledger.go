package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount indicates a zero, negative, non-numeric or over-precise amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInsufficientFunds indicates that the available balance is below the requested debit.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrRecipientNotFound indicates that the transfer recipient has no balance record.
	ErrRecipientNotFound = errors.New("recipient not found")
	// ErrSelfTransfer indicates a transfer whose sender and recipient are the same owner.
	ErrSelfTransfer = errors.New("sender and recipient are the same")
)

// IsValidation reports whether err is a caller-side failure that must not be retried.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidAmount,
		ErrInsufficientFunds,
		ErrBalanceNotFound,
		ErrRecipientNotFound,
		ErrAccountInactive,
		ErrSelfTransfer,
		ErrInvalidOwner,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}

// DepositParams is the input data for the deposit transaction.
type DepositParams struct {
	Owner  string
	Amount decimal.Decimal
}

// WithdrawParams is the input data for the withdrawal transaction.
type WithdrawParams struct {
	Owner  string
	Amount decimal.Decimal
}

// TransferParams is the input data for the transfer transaction.
type TransferParams struct {
	Sender    string
	Recipient string
	Amount    decimal.Decimal
}

// LedgerResult is the result of a single-owner ledger transaction.
type LedgerResult struct {
	Balance     Balance     `json:"balance"`
	Transaction Transaction `json:"transaction"`
}

// TransferResult is the result of the transfer transaction.
type TransferResult struct {
	TransferID           string      `json:"transfer_id"`
	Sender               Balance     `json:"sender"`
	Recipient            Balance     `json:"recipient"`
	SenderTransaction    Transaction `json:"sender_transaction"`
	RecipientTransaction Transaction `json:"recipient_transaction"`
}
