// Package transactionservice manages read access to the transaction log.
package transactionservice

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// MaxPageSize caps the number of records returned by one List call.
const MaxPageSize = 100

// Repo provides data access layer interface needed by transaction service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package transactionservice
type Repo interface {
	Get(ctx context.Context, owner, reference string) (domain.Transaction, error)
	List(ctx context.Context, arg domain.ListTransactionsParams) ([]domain.Transaction, error)
}

// Service facilitates transaction service layer logic.
type Service struct {
	repo Repo
}

// New returns transaction service struct to manage read access to the log.
func New(tr Repo) *Service {
	return &Service{repo: tr}
}

func checkOwner(ctx context.Context, requester, owner string) error {
	if requester == "" || requester != owner {
		zerolog.Ctx(ctx).Info().Str("requester", requester).Str("owner", owner).Msg("owner mismatch")
		return domain.ErrInvalidOwner
	}

	return nil
}

// List returns the page pageID of owner's records, oldest first.
func (s *Service) List(ctx context.Context, requester, owner string, pageSize, pageID int32) ([]domain.Transaction, error) {
	if err := checkOwner(ctx, requester, owner); err != nil {
		return nil, err
	}

	if pageSize <= 0 || pageSize > MaxPageSize || pageID <= 0 {
		return nil, domain.ErrInvalidPagination
	}

	return s.repo.List(ctx, domain.ListTransactionsParams{
		Owner:  owner,
		Limit:  pageSize,
		Offset: (pageID - 1) * pageSize,
	})
}

// Get returns owner's record with the given reference.
func (s *Service) Get(ctx context.Context, requester, owner, reference string) (domain.Transaction, error) {
	if err := checkOwner(ctx, requester, owner); err != nil {
		return domain.Transaction{}, err
	}

	if _, err := uuid.Parse(reference); err != nil {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}

	return s.repo.Get(ctx, owner, reference)
}
