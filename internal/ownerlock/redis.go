// Package ownerlock provides cross-process owner locks backed by Redis.
package ownerlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "ledger:owner:"

// ErrEmptyOwners is returned when Lock is called without owners.
var ErrEmptyOwners = errors.New("no owners to lock")

// Options tune the redsync mutexes.
type Options struct {
	Expiry     time.Duration
	Tries      int
	RetryDelay time.Duration
}

// DefaultOptions returns the options used when a field is left zero.
func DefaultOptions() Options {
	return Options{
		Expiry:     5 * time.Second,
		Tries:      8,
		RetryDelay: 25 * time.Millisecond,
	}
}

// RedisLocker locks owners with one redsync mutex per owner.
type RedisLocker struct {
	rs   *redsync.Redsync
	opts Options
}

// NewRedisLocker returns a RedisLocker using client.
func NewRedisLocker(client goredislib.UniversalClient, opts Options) *RedisLocker {
	def := DefaultOptions()

	if opts.Expiry <= 0 {
		opts.Expiry = def.Expiry
	}

	if opts.Tries <= 0 {
		opts.Tries = def.Tries
	}

	if opts.RetryDelay <= 0 {
		opts.RetryDelay = def.RetryDelay
	}

	return &RedisLocker{
		rs:   redsync.New(goredis.NewPool(client)),
		opts: opts,
	}
}

// Key returns the Redis key guarding owner.
func Key(owner string) string {
	return keyPrefix + owner
}

// Lock acquires the owners in the given order and returns a func releasing them in reverse.
// If any acquisition fails, the locks already held are released before returning.
func (l *RedisLocker) Lock(ctx context.Context, owners []string) (func(), error) {
	if len(owners) == 0 {
		return nil, ErrEmptyOwners
	}

	held := make([]*redsync.Mutex, 0, len(owners))

	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			if ok, err := held[i].UnlockContext(context.WithoutCancel(ctx)); !ok || err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Str("key", held[i].Name()).Msg("owner lock not released")
			}
		}
	}

	for _, owner := range owners {
		m := l.rs.NewMutex(Key(owner),
			redsync.WithExpiry(l.opts.Expiry),
			redsync.WithTries(l.opts.Tries),
			redsync.WithRetryDelay(l.opts.RetryDelay),
		)

		if err := m.LockContext(ctx); err != nil {
			release()
			return nil, fmt.Errorf("lock %s: %w", owner, err)
		}

		held = append(held, m)
	}

	return release, nil
}
