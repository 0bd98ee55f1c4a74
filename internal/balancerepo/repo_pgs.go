// Package balancerepo manages repository layer of balances.
package balancerepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

const (
	uniqueViolation = "23505"
	checkViolation  = "23514"
	numericOverflow = "22003"
)

// RepoPGS facilitates balance repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns balance RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const balanceColumns = `owner, book_balance, available_balance, previous_balance, active, version, created_at, updated_at`

func scanBalance(row interface{ Scan(...any) error }) (domain.Balance, error) {
	var b domain.Balance

	err := row.Scan(
		&b.Owner,
		&b.BookBalance,
		&b.AvailableBalance,
		&b.PreviousBalance,
		&b.Active,
		&b.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	)

	return b, err
}

const createQuery = `
INSERT INTO
    balances (owner)
VALUES
    ($1)
RETURNING ` + balanceColumns

// Create provisions a zero, active balance for the owner.
func (r *RepoPGS) Create(ctx context.Context, owner string) (domain.Balance, error) {
	l := zerolog.Ctx(ctx)

	b, err := scanBalance(r.db.QueryRowContext(ctx, createQuery, owner))
	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx, %q)", owner)

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return b, domain.ErrBalanceExists
		}

		return b, errorspkg.ErrInternal
	}

	return b, nil
}

const insertIfAbsentQuery = `
INSERT INTO
    balances (owner)
VALUES
    ($1)
ON CONFLICT (owner) DO NOTHING
`

// GetOrCreate returns the owner's balance, creating a zero, active one first if absent.
//
// The insert and the read are separate statements so that a row committed by a concurrent
// creator is visible to the read.
func (r *RepoPGS) GetOrCreate(ctx context.Context, owner string) (domain.Balance, error) {
	l := zerolog.Ctx(ctx)

	if _, err := r.db.ExecContext(ctx, insertIfAbsentQuery, owner); err != nil {
		l.Error().Err(err).Msgf("GetOrCreate(ctx, %q)", owner)
		return domain.Balance{}, errorspkg.ErrInternal
	}

	return r.Get(ctx, owner)
}

const getQuery = `
SELECT ` + balanceColumns + `
FROM balances
WHERE owner = $1
`

// Get returns the balance of the given owner.
func (r *RepoPGS) Get(ctx context.Context, owner string) (domain.Balance, error) {
	l := zerolog.Ctx(ctx)

	b, err := scanBalance(r.db.QueryRowContext(ctx, getQuery, owner))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return b, domain.ErrBalanceNotFound
		}

		l.Error().Err(err).Send()

		return b, errorspkg.ErrInternal
	}

	return b, nil
}

const applyDeltaQuery = `
UPDATE balances
SET
    previous_balance = available_balance,
    book_balance = book_balance + $2,
    available_balance = available_balance + $2,
    version = version + 1,
    updated_at = now()
WHERE owner = $1 AND version = $3 AND active
RETURNING ` + balanceColumns

// ApplyDelta adds delta to the book and available balance of the owner.
//
// The update only applies if the row still carries expectedVersion and is active;
// otherwise it returns domain.ErrConflict and the caller must re-read before retrying.
func (r *RepoPGS) ApplyDelta(ctx context.Context, owner string, delta decimal.Decimal, expectedVersion int64) (domain.Balance, error) {
	l := zerolog.Ctx(ctx)

	b, err := scanBalance(r.db.QueryRowContext(ctx, applyDeltaQuery, owner, delta, expectedVersion))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			l.Info().Str("owner", owner).Int64("version", expectedVersion).Msg("balance version moved")
			return b, domain.ErrConflict
		}

		l.Error().Err(err).Msgf("ApplyDelta(ctx, %q, %s, %d)", owner, delta, expectedVersion)

		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch {
			case pqErr.Code == checkViolation && pqErr.Constraint == "balances_available_balance_check":
				return b, domain.ErrInsufficientFunds
			case pqErr.Code == numericOverflow:
				return b, domain.ErrInvalidAmount
			}
		}

		return b, errorspkg.ErrInternal
	}

	return b, nil
}

const setActiveQuery = `
UPDATE balances
SET
    active = $2,
    version = version + 1,
    updated_at = now()
WHERE owner = $1
RETURNING ` + balanceColumns

// SetActive flags the owner's balance active or inactive.
func (r *RepoPGS) SetActive(ctx context.Context, owner string, active bool) (domain.Balance, error) {
	l := zerolog.Ctx(ctx)

	b, err := scanBalance(r.db.QueryRowContext(ctx, setActiveQuery, owner, active))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return b, domain.ErrBalanceNotFound
		}

		l.Error().Err(err).Send()

		return b, errorspkg.ErrInternal
	}

	return b, nil
}
