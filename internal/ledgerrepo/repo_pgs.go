// Package ledgerrepo runs the ledger operations as single database transactions.
package ledgerrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/balancerepo"
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/transactionrepo"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

// RepoPGS facilitates ledger repository layer logic.
type RepoPGS struct {
	conn   *sql.DB
	newRef func() string
}

// NewRepoPGS returns ledger RepoPGS with connection to start transactions.
func NewRepoPGS(conn *sql.DB) *RepoPGS {
	return &RepoPGS{
		conn:   conn,
		newRef: uuid.NewString,
	}
}

// execTx runs fn with both repositories bound to one transaction and commits if fn succeeds.
func (r *RepoPGS) execTx(ctx context.Context, fn func(*balancerepo.RepoPGS, *transactionrepo.RepoPGS) error) error {
	l := zerolog.Ctx(ctx)

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	defer func() {
		if err := dbpkg.RollbackUnlessCommitted(tx); err != nil {
			l.Error().Err(err).Send()
		}
	}()

	if err := fn(balancerepo.NewRepoPGS(tx), transactionrepo.NewRepoPGS(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	return nil
}

// Deposit credits amount to the owner, opening the balance on first use.
func (r *RepoPGS) Deposit(ctx context.Context, arg domain.DepositParams) (domain.LedgerResult, error) {
	var result domain.LedgerResult

	err := r.execTx(ctx, func(balances *balancerepo.RepoPGS, records *transactionrepo.RepoPGS) error {
		b, err := balances.GetOrCreate(ctx, arg.Owner)
		if err != nil {
			return err
		}

		if !b.Active {
			return domain.ErrAccountInactive
		}

		result.Balance, err = balances.ApplyDelta(ctx, arg.Owner, arg.Amount, b.Version)
		if err != nil {
			return err
		}

		result.Transaction, err = records.Append(ctx, domain.AppendTransactionParams{
			Reference:  r.newRef(),
			Owner:      arg.Owner,
			Kind:       domain.KindDeposit,
			Status:     domain.StatusSuccess,
			Amount:     arg.Amount,
			NewBalance: result.Balance.AvailableBalance,
		})

		return err
	})
	if err != nil {
		return domain.LedgerResult{}, err
	}

	return result, nil
}

// Withdraw debits amount from the owner's available balance.
func (r *RepoPGS) Withdraw(ctx context.Context, arg domain.WithdrawParams) (domain.LedgerResult, error) {
	var result domain.LedgerResult

	err := r.execTx(ctx, func(balances *balancerepo.RepoPGS, records *transactionrepo.RepoPGS) error {
		b, err := balances.Get(ctx, arg.Owner)
		if err != nil {
			return err
		}

		if !b.Active {
			return domain.ErrAccountInactive
		}

		if b.AvailableBalance.LessThan(arg.Amount) {
			return domain.ErrInsufficientFunds
		}

		debit := arg.Amount.Neg()

		result.Balance, err = balances.ApplyDelta(ctx, arg.Owner, debit, b.Version)
		if err != nil {
			return err
		}

		result.Transaction, err = records.Append(ctx, domain.AppendTransactionParams{
			Reference:  r.newRef(),
			Owner:      arg.Owner,
			Kind:       domain.KindWithdrawal,
			Status:     domain.StatusSuccess,
			Amount:     debit,
			NewBalance: result.Balance.AvailableBalance,
		})

		return err
	})
	if err != nil {
		return domain.LedgerResult{}, err
	}

	return result, nil
}

// Transfer moves amount from sender to recipient.
//
// Both balances are read and updated in ascending owner order so that concurrent transfers
// between the same pair touch rows in the same sequence.
func (r *RepoPGS) Transfer(ctx context.Context, arg domain.TransferParams) (domain.TransferResult, error) {
	var result domain.TransferResult

	if arg.Sender == arg.Recipient {
		return result, domain.ErrSelfTransfer
	}

	owners := [2]string{arg.Sender, arg.Recipient}
	if owners[1] < owners[0] {
		owners[0], owners[1] = owners[1], owners[0]
	}

	deltas := map[string]decimal.Decimal{
		arg.Sender:    arg.Amount.Neg(),
		arg.Recipient: arg.Amount,
	}

	err := r.execTx(ctx, func(balances *balancerepo.RepoPGS, records *transactionrepo.RepoPGS) error {
		read := make(map[string]domain.Balance, len(owners))

		for _, owner := range owners {
			b, err := balances.Get(ctx, owner)
			if err != nil {
				if errors.Is(err, domain.ErrBalanceNotFound) && owner == arg.Recipient {
					return domain.ErrRecipientNotFound
				}

				return err
			}

			if !b.Active {
				return domain.ErrAccountInactive
			}

			read[owner] = b
		}

		if read[arg.Sender].AvailableBalance.LessThan(arg.Amount) {
			return domain.ErrInsufficientFunds
		}

		updated := make(map[string]domain.Balance, len(owners))

		for _, owner := range owners {
			b, err := balances.ApplyDelta(ctx, owner, deltas[owner], read[owner].Version)
			if err != nil {
				return err
			}

			updated[owner] = b
		}

		result.TransferID = r.newRef()
		result.Sender = updated[arg.Sender]
		result.Recipient = updated[arg.Recipient]

		var err error

		result.SenderTransaction, err = records.Append(ctx, domain.AppendTransactionParams{
			Reference:    r.newRef(),
			Owner:        arg.Sender,
			Kind:         domain.KindTransfer,
			Status:       domain.StatusSuccess,
			Amount:       deltas[arg.Sender],
			NewBalance:   result.Sender.AvailableBalance,
			TransferID:   result.TransferID,
			Counterparty: arg.Recipient,
		})
		if err != nil {
			return err
		}

		result.RecipientTransaction, err = records.Append(ctx, domain.AppendTransactionParams{
			Reference:    r.newRef(),
			Owner:        arg.Recipient,
			Kind:         domain.KindReceived,
			Status:       domain.StatusSuccess,
			Amount:       deltas[arg.Recipient],
			NewBalance:   result.Recipient.AvailableBalance,
			TransferID:   result.TransferID,
			Counterparty: arg.Sender,
		})

		return err
	})
	if err != nil {
		return domain.TransferResult{}, err
	}

	return result, nil
}
