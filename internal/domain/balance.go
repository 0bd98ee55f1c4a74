// Package domain provides defenitions of all ledger entities and their errors.
package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrBalanceNotFound indicates that the owner has no balance record.
	ErrBalanceNotFound = errors.New("balance not found")
	// ErrBalanceExists indicates that the owner already has a balance record.
	ErrBalanceExists = errors.New("balance already exists")
	// ErrAccountInactive indicates that the balance record is flagged inactive.
	ErrAccountInactive = errors.New("account inactive")
	// ErrConflict indicates that the balance was changed by another operation between read and write.
	ErrConflict = errors.New("concurrent balance update")
	// ErrInvalidOwner indicates that the caller may not act on or read the given owner.
	ErrInvalidOwner = errors.New("unauthorized owner")
	// ErrReactivationForbidden indicates that an owner tried to lift the inactive flag from their own balance.
	ErrReactivationForbidden = errors.New("balance reactivation is not allowed for the owner")
)

// Balance holds the monetary state of a single owner.
//
// BookBalance and AvailableBalance always move together; PreviousBalance keeps the
// available balance as it was before the latest mutation.
type Balance struct {
	Owner            string          `json:"owner"`
	BookBalance      decimal.Decimal `json:"book_balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	PreviousBalance  decimal.Decimal `json:"previous_balance"`
	Active           bool            `json:"active"`
	Version          int64           `json:"-"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
