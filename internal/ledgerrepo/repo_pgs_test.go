package ledgerrepo

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

const (
	insertBalanceSQL = `ON CONFLICT \(owner\) DO NOTHING`
	getBalanceSQL    = `FROM balances WHERE owner = \$1`
	applyDeltaSQL    = `UPDATE balances SET previous_balance`
	appendSQL        = `INSERT INTO transactions`
)

func newMockRepo(t *testing.T, refs ...string) (*RepoPGS, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})

	repo := NewRepoPGS(db)

	next := 0
	repo.newRef = func() string {
		ref := refs[next]
		next++

		return ref
	}

	return repo, mock
}

func balanceRow(b domain.Balance) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"owner", "book_balance", "available_balance", "previous_balance",
		"active", "version", "created_at", "updated_at",
	}).AddRow(
		b.Owner,
		b.BookBalance.String(),
		b.AvailableBalance.String(),
		b.PreviousBalance.String(),
		b.Active,
		b.Version,
		b.CreatedAt,
		b.UpdatedAt,
	)
}

func noBalance() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"owner"})
}

func transactionRow(arg domain.AppendTransactionParams) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "reference", "owner", "kind", "status", "amount",
		"new_balance", "transfer_id", "counterparty", "created_at",
	}).AddRow(
		int64(1),
		arg.Reference,
		arg.Owner,
		string(arg.Kind),
		string(arg.Status),
		arg.Amount.String(),
		arg.NewBalance.String(),
		arg.TransferID,
		arg.Counterparty,
		time.Now().UTC(),
	)
}

func balanceOf(owner string, available int64, version int64) domain.Balance {
	now := time.Now().UTC().Truncate(time.Second)

	return domain.Balance{
		Owner:            owner,
		BookBalance:      decimal.NewFromInt(available),
		AvailableBalance: decimal.NewFromInt(available),
		Active:           true,
		Version:          version,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// applied returns b after delta has been committed against it.
func applied(b domain.Balance, delta decimal.Decimal) domain.Balance {
	b.PreviousBalance = b.AvailableBalance
	b.BookBalance = b.BookBalance.Add(delta)
	b.AvailableBalance = b.AvailableBalance.Add(delta)
	b.Version++

	return b
}

func expectAppend(mock sqlmock.Sqlmock, arg domain.AppendTransactionParams) *sqlmock.ExpectedQuery {
	return mock.ExpectQuery(appendSQL).WithArgs(
		arg.Reference, arg.Owner, arg.Kind, arg.Status,
		arg.Amount, arg.NewBalance, arg.TransferID, arg.Counterparty,
	)
}

func TestDeposit(t *testing.T) {
	ref := uuid.NewString()
	amount := decimal.RequireFromString("100.5")
	before := balanceOf("alice", 1000, 3)
	after := applied(before, amount)

	record := domain.AppendTransactionParams{
		Reference:  ref,
		Owner:      before.Owner,
		Kind:       domain.KindDeposit,
		Status:     domain.StatusSuccess,
		Amount:     amount,
		NewBalance: after.AvailableBalance,
	}

	inactive := before
	inactive.Active = false

	testCases := []struct {
		name       string
		buildStubs func(mock sqlmock.Sqlmock)
		wantErr    error
	}{
		{
			name: "OK",
			buildStubs: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(insertBalanceSQL).WithArgs(before.Owner).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(getBalanceSQL).WithArgs(before.Owner).WillReturnRows(balanceRow(before))
				mock.ExpectQuery(applyDeltaSQL).WithArgs(before.Owner, amount, before.Version).WillReturnRows(balanceRow(after))
				expectAppend(mock, record).WillReturnRows(transactionRow(record))
				mock.ExpectCommit()
			},
		},
		{
			name: "ErrAccountInactive",
			buildStubs: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(insertBalanceSQL).WithArgs(before.Owner).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(getBalanceSQL).WithArgs(before.Owner).WillReturnRows(balanceRow(inactive))
				mock.ExpectRollback()
			},
			wantErr: domain.ErrAccountInactive,
		},
		{
			name: "ErrConflict",
			buildStubs: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(insertBalanceSQL).WithArgs(before.Owner).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(getBalanceSQL).WithArgs(before.Owner).WillReturnRows(balanceRow(before))
				mock.ExpectQuery(applyDeltaSQL).WithArgs(before.Owner, amount, before.Version).WillReturnRows(noBalance())
				mock.ExpectRollback()
			},
			wantErr: domain.ErrConflict,
		},
		{
			name: "BalanceOverflow",
			buildStubs: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(insertBalanceSQL).WithArgs(before.Owner).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(getBalanceSQL).WithArgs(before.Owner).WillReturnRows(balanceRow(before))
				mock.ExpectQuery(applyDeltaSQL).WithArgs(before.Owner, amount, before.Version).
					WillReturnError(&pq.Error{Code: "22003", Message: "numeric field overflow"})
				mock.ExpectRollback()
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name: "ErrDuplicateReference",
			buildStubs: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(insertBalanceSQL).WithArgs(before.Owner).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(getBalanceSQL).WithArgs(before.Owner).WillReturnRows(balanceRow(before))
				mock.ExpectQuery(applyDeltaSQL).WithArgs(before.Owner, amount, before.Version).WillReturnRows(balanceRow(after))
				expectAppend(mock, record).
					WillReturnError(&pq.Error{Code: "23505", Constraint: "transactions_reference_key"})
				mock.ExpectRollback()
			},
			wantErr: domain.ErrDuplicateReference,
		},
		{
			name: "BeginFails",
			buildStubs: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(sql.ErrConnDone)
			},
			wantErr: errorspkg.ErrInternal,
		},
		{
			name: "CommitFails",
			buildStubs: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(insertBalanceSQL).WithArgs(before.Owner).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(getBalanceSQL).WithArgs(before.Owner).WillReturnRows(balanceRow(before))
				mock.ExpectQuery(applyDeltaSQL).WithArgs(before.Owner, amount, before.Version).WillReturnRows(balanceRow(after))
				expectAppend(mock, record).WillReturnRows(transactionRow(record))
				mock.ExpectCommit().WillReturnError(sql.ErrConnDone)
			},
			wantErr: errorspkg.ErrInternal,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockRepo(t, ref)
			tc.buildStubs(mock)

			got, err := repo.Deposit(context.Background(), domain.DepositParams{Owner: before.Owner, Amount: amount})
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.Equal(t, domain.LedgerResult{}, got)
				return
			}

			require.NoError(t, err)
			require.True(t, after.AvailableBalance.Equal(got.Balance.AvailableBalance))
			require.True(t, before.AvailableBalance.Equal(got.Balance.PreviousBalance))
			require.Equal(t, ref, got.Transaction.Reference)
			require.Equal(t, domain.KindDeposit, got.Transaction.Kind)
			require.True(t, amount.Equal(got.Transaction.Amount))
			require.True(t, got.Balance.AvailableBalance.Equal(got.Transaction.NewBalance))
		})
	}
}

func TestWithdraw(t *testing.T) {
	ref := uuid.NewString()
	amount := decimal.NewFromInt(60)
	before := balanceOf("alice", 100, 7)
	after := applied(before, amount.Neg())

	record := domain.AppendTransactionParams{
		Reference:  ref,
		Owner:      before.Owner,
		Kind:       domain.KindWithdrawal,
		Status:     domain.StatusSuccess,
		Amount:     amount.Neg(),
		NewBalance: after.AvailableBalance,
	}

	poor := balanceOf("alice", 40, 8)

	testCases := []struct {
		name       string
		buildStubs func(mock sqlmock.Sqlmock)
		wantErr    error
	}{
		{
			name: "OK",
			buildStubs: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(getBalanceSQL).WithArgs(before.Owner).WillReturnRows(balanceRow(before))
				mock.ExpectQuery(applyDeltaSQL).WithArgs(before.Owner, amount.Neg(), before.Version).WillReturnRows(balanceRow(after))
				expectAppend(mock, record).WillReturnRows(transactionRow(record))
				mock.ExpectCommit()
			},
		},
		{
			name: "ErrBalanceNotFound",
			buildStubs: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(getBalanceSQL).WithArgs(before.Owner).WillReturnRows(noBalance())
				mock.ExpectRollback()
			},
			wantErr: domain.ErrBalanceNotFound,
		},
		{
			name: "ErrInsufficientFunds",
			buildStubs: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(getBalanceSQL).WithArgs(before.Owner).WillReturnRows(balanceRow(poor))
				mock.ExpectRollback()
			},
			wantErr: domain.ErrInsufficientFunds,
		},
		{
			name: "CheckConstraint",
			buildStubs: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(getBalanceSQL).WithArgs(before.Owner).WillReturnRows(balanceRow(before))
				mock.ExpectQuery(applyDeltaSQL).WithArgs(before.Owner, amount.Neg(), before.Version).
					WillReturnError(&pq.Error{Code: "23514", Constraint: "balances_available_balance_check"})
				mock.ExpectRollback()
			},
			wantErr: domain.ErrInsufficientFunds,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockRepo(t, ref)
			tc.buildStubs(mock)

			got, err := repo.Withdraw(context.Background(), domain.WithdrawParams{Owner: before.Owner, Amount: amount})
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.True(t, decimal.NewFromInt(40).Equal(got.Balance.AvailableBalance))
			require.Equal(t, domain.KindWithdrawal, got.Transaction.Kind)
			require.True(t, amount.Neg().Equal(got.Transaction.Amount))
			require.True(t, got.Transaction.Amount.IsNegative())
		})
	}
}

func TestTransfer(t *testing.T) {
	transferID, senderRef, recipientRef := uuid.NewString(), uuid.NewString(), uuid.NewString()
	amount := decimal.NewFromInt(25)

	records := func(sender, recipient domain.Balance) (domain.AppendTransactionParams, domain.AppendTransactionParams) {
		return domain.AppendTransactionParams{
				Reference:    senderRef,
				Owner:        sender.Owner,
				Kind:         domain.KindTransfer,
				Status:       domain.StatusSuccess,
				Amount:       amount.Neg(),
				NewBalance:   sender.AvailableBalance,
				TransferID:   transferID,
				Counterparty: recipient.Owner,
			}, domain.AppendTransactionParams{
				Reference:    recipientRef,
				Owner:        recipient.Owner,
				Kind:         domain.KindReceived,
				Status:       domain.StatusSuccess,
				Amount:       amount,
				NewBalance:   recipient.AvailableBalance,
				TransferID:   transferID,
				Counterparty: sender.Owner,
			}
	}

	testCases := []struct {
		name       string
		sender     domain.Balance
		recipient  domain.Balance
		buildStubs func(mock sqlmock.Sqlmock, sender, recipient domain.Balance)
		wantErr    error
	}{
		{
			name:      "OK",
			sender:    balanceOf("alice", 100, 1),
			recipient: balanceOf("bob", 10, 5),
			buildStubs: func(mock sqlmock.Sqlmock, sender, recipient domain.Balance) {
				senderAfter, recipientAfter := applied(sender, amount.Neg()), applied(recipient, amount)
				senderRecord, recipientRecord := records(senderAfter, recipientAfter)

				mock.ExpectBegin()
				mock.ExpectQuery(getBalanceSQL).WithArgs(sender.Owner).WillReturnRows(balanceRow(sender))
				mock.ExpectQuery(getBalanceSQL).WithArgs(recipient.Owner).WillReturnRows(balanceRow(recipient))
				mock.ExpectQuery(applyDeltaSQL).WithArgs(sender.Owner, amount.Neg(), sender.Version).WillReturnRows(balanceRow(senderAfter))
				mock.ExpectQuery(applyDeltaSQL).WithArgs(recipient.Owner, amount, recipient.Version).WillReturnRows(balanceRow(recipientAfter))
				expectAppend(mock, senderRecord).WillReturnRows(transactionRow(senderRecord))
				expectAppend(mock, recipientRecord).WillReturnRows(transactionRow(recipientRecord))
				mock.ExpectCommit()
			},
		},
		{
			name:      "RecipientOrderedFirst",
			sender:    balanceOf("zed", 100, 1),
			recipient: balanceOf("amy", 10, 5),
			buildStubs: func(mock sqlmock.Sqlmock, sender, recipient domain.Balance) {
				senderAfter, recipientAfter := applied(sender, amount.Neg()), applied(recipient, amount)
				senderRecord, recipientRecord := records(senderAfter, recipientAfter)

				mock.ExpectBegin()
				mock.ExpectQuery(getBalanceSQL).WithArgs(recipient.Owner).WillReturnRows(balanceRow(recipient))
				mock.ExpectQuery(getBalanceSQL).WithArgs(sender.Owner).WillReturnRows(balanceRow(sender))
				mock.ExpectQuery(applyDeltaSQL).WithArgs(recipient.Owner, amount, recipient.Version).WillReturnRows(balanceRow(recipientAfter))
				mock.ExpectQuery(applyDeltaSQL).WithArgs(sender.Owner, amount.Neg(), sender.Version).WillReturnRows(balanceRow(senderAfter))
				expectAppend(mock, senderRecord).WillReturnRows(transactionRow(senderRecord))
				expectAppend(mock, recipientRecord).WillReturnRows(transactionRow(recipientRecord))
				mock.ExpectCommit()
			},
		},
		{
			name:      "ErrBalanceNotFound",
			sender:    balanceOf("alice", 100, 1),
			recipient: balanceOf("bob", 10, 5),
			buildStubs: func(mock sqlmock.Sqlmock, sender, recipient domain.Balance) {
				mock.ExpectBegin()
				mock.ExpectQuery(getBalanceSQL).WithArgs(sender.Owner).WillReturnRows(noBalance())
				mock.ExpectRollback()
			},
			wantErr: domain.ErrBalanceNotFound,
		},
		{
			name:      "ErrRecipientNotFound",
			sender:    balanceOf("alice", 100, 1),
			recipient: balanceOf("bob", 10, 5),
			buildStubs: func(mock sqlmock.Sqlmock, sender, recipient domain.Balance) {
				mock.ExpectBegin()
				mock.ExpectQuery(getBalanceSQL).WithArgs(sender.Owner).WillReturnRows(balanceRow(sender))
				mock.ExpectQuery(getBalanceSQL).WithArgs(recipient.Owner).WillReturnRows(noBalance())
				mock.ExpectRollback()
			},
			wantErr: domain.ErrRecipientNotFound,
		},
		{
			name:      "ErrInsufficientFunds",
			sender:    balanceOf("alice", 20, 1),
			recipient: balanceOf("bob", 10, 5),
			buildStubs: func(mock sqlmock.Sqlmock, sender, recipient domain.Balance) {
				mock.ExpectBegin()
				mock.ExpectQuery(getBalanceSQL).WithArgs(sender.Owner).WillReturnRows(balanceRow(sender))
				mock.ExpectQuery(getBalanceSQL).WithArgs(recipient.Owner).WillReturnRows(balanceRow(recipient))
				mock.ExpectRollback()
			},
			wantErr: domain.ErrInsufficientFunds,
		},
		{
			name:      "RecipientConflictRollsBack",
			sender:    balanceOf("alice", 100, 1),
			recipient: balanceOf("bob", 10, 5),
			buildStubs: func(mock sqlmock.Sqlmock, sender, recipient domain.Balance) {
				mock.ExpectBegin()
				mock.ExpectQuery(getBalanceSQL).WithArgs(sender.Owner).WillReturnRows(balanceRow(sender))
				mock.ExpectQuery(getBalanceSQL).WithArgs(recipient.Owner).WillReturnRows(balanceRow(recipient))
				mock.ExpectQuery(applyDeltaSQL).WithArgs(sender.Owner, amount.Neg(), sender.Version).
					WillReturnRows(balanceRow(applied(sender, amount.Neg())))
				mock.ExpectQuery(applyDeltaSQL).WithArgs(recipient.Owner, amount, recipient.Version).WillReturnRows(noBalance())
				mock.ExpectRollback()
			},
			wantErr: domain.ErrConflict,
		},
		{
			name:      "SecondAppendRollsBack",
			sender:    balanceOf("alice", 100, 1),
			recipient: balanceOf("bob", 10, 5),
			buildStubs: func(mock sqlmock.Sqlmock, sender, recipient domain.Balance) {
				senderAfter, recipientAfter := applied(sender, amount.Neg()), applied(recipient, amount)
				senderRecord, recipientRecord := records(senderAfter, recipientAfter)

				mock.ExpectBegin()
				mock.ExpectQuery(getBalanceSQL).WithArgs(sender.Owner).WillReturnRows(balanceRow(sender))
				mock.ExpectQuery(getBalanceSQL).WithArgs(recipient.Owner).WillReturnRows(balanceRow(recipient))
				mock.ExpectQuery(applyDeltaSQL).WithArgs(sender.Owner, amount.Neg(), sender.Version).WillReturnRows(balanceRow(senderAfter))
				mock.ExpectQuery(applyDeltaSQL).WithArgs(recipient.Owner, amount, recipient.Version).WillReturnRows(balanceRow(recipientAfter))
				expectAppend(mock, senderRecord).WillReturnRows(transactionRow(senderRecord))
				expectAppend(mock, recipientRecord).
					WillReturnError(&pq.Error{Code: "23505", Constraint: "transactions_reference_key"})
				mock.ExpectRollback()
			},
			wantErr: domain.ErrDuplicateReference,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockRepo(t, transferID, senderRef, recipientRef)
			tc.buildStubs(mock, tc.sender, tc.recipient)

			arg := domain.TransferParams{Sender: tc.sender.Owner, Recipient: tc.recipient.Owner, Amount: amount}

			got, err := repo.Transfer(context.Background(), arg)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.Empty(t, got.TransferID)
				return
			}

			require.NoError(t, err)
			require.Equal(t, transferID, got.TransferID)
			require.Equal(t, tc.sender.Owner, got.Sender.Owner)
			require.Equal(t, tc.recipient.Owner, got.Recipient.Owner)
			require.True(t, tc.sender.AvailableBalance.Sub(amount).Equal(got.Sender.AvailableBalance))
			require.True(t, tc.recipient.AvailableBalance.Add(amount).Equal(got.Recipient.AvailableBalance))

			require.Equal(t, domain.KindTransfer, got.SenderTransaction.Kind)
			require.Equal(t, domain.KindReceived, got.RecipientTransaction.Kind)
			require.Equal(t, transferID, got.SenderTransaction.TransferID)
			require.Equal(t, transferID, got.RecipientTransaction.TransferID)
			require.True(t, got.SenderTransaction.Amount.Add(got.RecipientTransaction.Amount).IsZero())
		})
	}
}

func TestTransferToSelf(t *testing.T) {
	repo, _ := newMockRepo(t)

	_, err := repo.Transfer(context.Background(), domain.TransferParams{
		Sender:    "alice",
		Recipient: "alice",
		Amount:    decimal.NewFromInt(1),
	})
	require.ErrorIs(t, err, domain.ErrSelfTransfer)
}
