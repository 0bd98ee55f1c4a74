// Package transactionrepo manages repository layer of the append-only transaction log.
package transactionrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// RepoPGS facilitates transaction repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns transaction RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{db: db}
}

const transactionColumns = `id, reference, owner, kind, status, amount, new_balance, transfer_id, counterparty, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (domain.Transaction, error) {
	var t domain.Transaction

	err := row.Scan(
		&t.ID,
		&t.Reference,
		&t.Owner,
		&t.Kind,
		&t.Status,
		&t.Amount,
		&t.NewBalance,
		&t.TransferID,
		&t.Counterparty,
		&t.CreatedAt,
	)

	return t, err
}

const appendQuery = `
INSERT INTO
    transactions (reference, owner, kind, status, amount, new_balance, transfer_id, counterparty)
VALUES
    ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + transactionColumns

// Append writes a new immutable record to the log and returns it.
func (r *RepoPGS) Append(ctx context.Context, arg domain.AppendTransactionParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, appendQuery,
		arg.Reference,
		arg.Owner,
		arg.Kind,
		arg.Status,
		arg.Amount,
		arg.NewBalance,
		arg.TransferID,
		arg.Counterparty,
	)

	t, err := scanTransaction(row)
	if err != nil {
		l.Error().Err(err).Msgf("Append(ctx, %+v)", arg)

		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch {
			case pqErr.Code == uniqueViolation && pqErr.Constraint == "transactions_reference_key":
				return t, domain.ErrDuplicateReference
			case pqErr.Code == foreignKeyViolation && pqErr.Constraint == "transactions_owner_fkey":
				return t, domain.ErrBalanceNotFound
			}
		}

		return t, errorspkg.ErrInternal
	}

	return t, nil
}

const getQuery = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE owner = $1 AND reference = $2
`

// Get returns the owner's record with the given reference.
//
// A record that belongs to another owner is reported as not found.
func (r *RepoPGS) Get(ctx context.Context, owner, reference string) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	t, err := scanTransaction(r.db.QueryRowContext(ctx, getQuery, owner, reference))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, domain.ErrTransactionNotFound
		}

		l.Error().Err(err).Send()

		return t, errorspkg.ErrInternal
	}

	return t, nil
}

const listQuery = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE owner = $1
ORDER BY created_at, id
LIMIT $2 OFFSET $3
`

// List returns a page of the owner's records, oldest first.
func (r *RepoPGS) List(ctx context.Context, arg domain.ListTransactionsParams) ([]domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery, arg.Owner, arg.Limit, arg.Offset)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Transaction{}

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, t)
	}

	if err := rows.Close(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}
