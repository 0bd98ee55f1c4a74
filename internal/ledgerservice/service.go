// Package ledgerservice manages business logic layer of ledger operations.
package ledgerservice

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/backoffpkg"
	"github.com/go-petr/pet-ledger/pkg/metricspkg"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
)

// Default retry policy.
const (
	DefaultMaxRetries = 5
	DefaultBaseDelay  = 10 * time.Millisecond
)

// Operation outcomes reported to metrics.
const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeConflict = "conflict"
	outcomeError    = "error"
)

// Repo provides data access layer interface needed by ledger service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package ledgerservice
type Repo interface {
	Deposit(ctx context.Context, arg domain.DepositParams) (domain.LedgerResult, error)
	Withdraw(ctx context.Context, arg domain.WithdrawParams) (domain.LedgerResult, error)
	Transfer(ctx context.Context, arg domain.TransferParams) (domain.TransferResult, error)
}

// Locker serializes work on the given owners across processes.
//
// Owners are passed in the order they must be acquired. The returned func releases them.
type Locker interface {
	Lock(ctx context.Context, owners []string) (func(), error)
}

// Service facilitates ledger service layer logic.
type Service struct {
	repo       Repo
	locker     Locker
	metrics    *metricspkg.Recorder
	maxRetries int
	baseDelay  time.Duration
}

// Option configures the Service.
type Option func(*Service)

// WithLocker makes every attempt take the owner lock first.
func WithLocker(l Locker) Option {
	return func(s *Service) {
		s.locker = l
	}
}

// WithMetrics records operation outcomes and retries on r.
func WithMetrics(r *metricspkg.Recorder) Option {
	return func(s *Service) {
		s.metrics = r
	}
}

// WithRetry overrides the retry policy. A negative maxRetries is treated as 0.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(s *Service) {
		if maxRetries < 0 {
			maxRetries = 0
		}

		s.maxRetries = maxRetries
		s.baseDelay = baseDelay
	}
}

// New returns ledger service struct to manage ledger bussines logic.
func New(repo Repo, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultBaseDelay,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func parseAmount(ctx context.Context, amount string) (decimal.Decimal, error) {
	d, err := moneypkg.ParseAmount(amount)
	if err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Str("amount", amount).Send()
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrInvalidAmount, err)
	}

	return d, nil
}

// Deposit credits amount to owner.
func (s *Service) Deposit(ctx context.Context, owner, amount string) (domain.LedgerResult, error) {
	if owner == "" {
		return domain.LedgerResult{}, domain.ErrInvalidOwner
	}

	d, err := parseAmount(ctx, amount)
	if err != nil {
		return domain.LedgerResult{}, err
	}

	arg := domain.DepositParams{Owner: owner, Amount: d}

	return run(ctx, s, domain.KindDeposit, []string{owner}, func() (domain.LedgerResult, error) {
		return s.repo.Deposit(ctx, arg)
	})
}

// Withdraw debits amount from owner.
func (s *Service) Withdraw(ctx context.Context, owner, amount string) (domain.LedgerResult, error) {
	if owner == "" {
		return domain.LedgerResult{}, domain.ErrInvalidOwner
	}

	d, err := parseAmount(ctx, amount)
	if err != nil {
		return domain.LedgerResult{}, err
	}

	arg := domain.WithdrawParams{Owner: owner, Amount: d}

	return run(ctx, s, domain.KindWithdrawal, []string{owner}, func() (domain.LedgerResult, error) {
		return s.repo.Withdraw(ctx, arg)
	})
}

// Transfer moves amount from sender to recipient.
func (s *Service) Transfer(ctx context.Context, sender, recipient, amount string) (domain.TransferResult, error) {
	if sender == "" || recipient == "" {
		return domain.TransferResult{}, domain.ErrInvalidOwner
	}

	if sender == recipient {
		return domain.TransferResult{}, domain.ErrSelfTransfer
	}

	d, err := parseAmount(ctx, amount)
	if err != nil {
		return domain.TransferResult{}, err
	}

	arg := domain.TransferParams{Sender: sender, Recipient: recipient, Amount: d}

	owners := []string{sender, recipient}
	sort.Strings(owners)

	return run(ctx, s, domain.KindTransfer, owners, func() (domain.TransferResult, error) {
		return s.repo.Transfer(ctx, arg)
	})
}

// retryReason names the retryable failure, or returns "" if err must surface as is.
func retryReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrDuplicateReference):
		return "duplicate_reference"
	default:
		return ""
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case domain.IsValidation(err):
		return outcomeRejected
	case retryReason(err) != "":
		return outcomeConflict
	default:
		return outcomeError
	}
}

// run executes op until it succeeds, fails for good, or the retry budget is spent.
// Each attempt re-reads state inside op, so a retry never reuses a stale balance.
func run[T any](ctx context.Context, s *Service, kind domain.TransactionKind, owners []string, op func() (T, error)) (T, error) {
	l := zerolog.Ctx(ctx)
	start := time.Now()

	var (
		res T
		err error
	)

	for attempt := 0; ; attempt++ {
		res, err = attemptLocked(ctx, s.locker, owners, op)

		reason := retryReason(err)
		if reason == "" || attempt >= s.maxRetries {
			break
		}

		s.metrics.RecordRetry(ctx, string(kind), reason)
		l.Info().Str("kind", string(kind)).Int("attempt", attempt+1).Str("reason", reason).Msg("retrying ledger operation")

		if sleepErr := backoffpkg.Sleep(ctx, backoffpkg.ExponentialWithJitter(s.baseDelay, attempt)); sleepErr != nil {
			l.Info().Err(sleepErr).Msg("retry abandoned")
			break
		}
	}

	s.metrics.RecordOperation(ctx, string(kind), outcome(err), time.Since(start))

	if err != nil {
		var zero T
		return zero, err
	}

	return res, nil
}

func attemptLocked[T any](ctx context.Context, locker Locker, owners []string, op func() (T, error)) (T, error) {
	if locker != nil {
		unlock, err := locker.Lock(ctx, owners)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Strs("owners", owners).Msg("owner lock not acquired")
		} else {
			defer unlock()
		}
	}

	return op()
}
