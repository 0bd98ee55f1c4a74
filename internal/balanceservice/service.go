// Package balanceservice manages business logic layer of balances.
package balanceservice

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// Repo provides data access layer interface needed by balance service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package balanceservice
type Repo interface {
	Create(ctx context.Context, owner string) (domain.Balance, error)
	Get(ctx context.Context, owner string) (domain.Balance, error)
	SetActive(ctx context.Context, owner string, active bool) (domain.Balance, error)
}

// Service facilitates balance service layer logic.
type Service struct {
	repo Repo
}

// New returns balance service struct to manage balance bussines logic.
func New(br Repo) *Service {
	return &Service{repo: br}
}

func checkOwner(ctx context.Context, requester, owner string) error {
	if requester == "" || requester != owner {
		zerolog.Ctx(ctx).Info().Str("requester", requester).Str("owner", owner).Msg("owner mismatch")
		return domain.ErrInvalidOwner
	}

	return nil
}

// Open creates a zero, active balance for the requester.
func (s *Service) Open(ctx context.Context, requester, owner string) (domain.Balance, error) {
	if err := checkOwner(ctx, requester, owner); err != nil {
		return domain.Balance{}, err
	}

	return s.repo.Create(ctx, owner)
}

// Get returns the balance of owner if the requester owns it.
func (s *Service) Get(ctx context.Context, requester, owner string) (domain.Balance, error) {
	if err := checkOwner(ctx, requester, owner); err != nil {
		return domain.Balance{}, err
	}

	return s.repo.Get(ctx, owner)
}

// SetActive flags the balance of owner on behalf of the owner.
//
// Owners may only freeze their balance. Lifting the flag is an operator action done
// directly on the balance store, so it fails with domain.ErrReactivationForbidden here.
func (s *Service) SetActive(ctx context.Context, requester, owner string, active bool) (domain.Balance, error) {
	if err := checkOwner(ctx, requester, owner); err != nil {
		return domain.Balance{}, err
	}

	if active {
		zerolog.Ctx(ctx).Info().Str("owner", owner).Msg("reactivation refused")
		return domain.Balance{}, domain.ErrReactivationForbidden
	}

	b, err := s.repo.SetActive(ctx, owner, active)
	if err != nil {
		return b, err
	}

	zerolog.Ctx(ctx).Info().Str("owner", owner).Bool("active", active).Msg("balance state changed")

	return b, nil
}
