// Package test provides shared test helpers.
package test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/balancerepo"
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/transactionrepo"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
)

// SeedBalance opens a balance for a random owner and funds it with amount.
func SeedBalance(t *testing.T, db dbpkg.SQLInterface, amount decimal.Decimal) domain.Balance {
	t.Helper()

	ctx := context.Background()
	balanceRepo := balancerepo.NewRepoPGS(db)

	owner := randompkg.Owner()

	b, err := balanceRepo.Create(ctx, owner)
	if err != nil {
		t.Fatalf("balanceRepo.Create(ctx, %q) returned error: %v", owner, err)
	}

	if amount.IsZero() {
		return b
	}

	b, err = balanceRepo.ApplyDelta(ctx, owner, amount, b.Version)
	if err != nil {
		t.Fatalf("balanceRepo.ApplyDelta(ctx, %q, %s, %d) returned error: %v", owner, amount, b.Version, err)
	}

	SeedTransaction(t, db, owner, domain.KindDeposit, amount, b.AvailableBalance)

	return b
}

// SeedTransaction appends a successful record for owner.
func SeedTransaction(t *testing.T, db dbpkg.SQLInterface, owner string, kind domain.TransactionKind,
	amount, newBalance decimal.Decimal) domain.Transaction {
	t.Helper()

	arg := domain.AppendTransactionParams{
		Reference:  uuid.NewString(),
		Owner:      owner,
		Kind:       kind,
		Status:     domain.StatusSuccess,
		Amount:     amount,
		NewBalance: newBalance,
	}

	tr, err := transactionrepo.NewRepoPGS(db).Append(context.Background(), arg)
	if err != nil {
		t.Fatalf("transactionRepo.Append(ctx, %+v) returned error: %v", arg, err)
	}

	return tr
}
