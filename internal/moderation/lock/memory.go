// Package lock serialises the count-then-append sequence per user.
//
// Three backends share the ports.Locker contract:
//   - Keyed: an in-process mutex per user, for single-node deployments and tests.
//   - Redis: a SET NX PX lease with a token-checked release, for multi-node
//     deployments that keep the ledger elsewhere.
//   - Postgres: a transaction holding pg_advisory_xact_lock. The transaction is
//     placed in the context so the ledger and user directory join it, making
//     count, append and suspend one atomic unit.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chatguard/internal/moderation/config"
	id "chatguard/pkg/domain"
	"chatguard/pkg/platform/sentinel"
)

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

// Keyed holds one mutex per user. Entries are reference counted and removed
// when the last waiter leaves, so the map does not grow with the user base.
type Keyed struct {
	mu          sync.Mutex
	locks       map[id.UserID]*keyedEntry
	waitTimeout time.Duration
}

// KeyedOption configures a Keyed lock.
type KeyedOption func(*Keyed)

// WithWaitTimeout bounds how long a caller queues behind the current holder
// before giving up with sentinel.ErrLockHeld. Zero waits on ctx alone.
func WithWaitTimeout(d time.Duration) KeyedOption {
	return func(k *Keyed) {
		k.waitTimeout = d
	}
}

func NewKeyed(opts ...KeyedOption) *Keyed {
	k := &Keyed{
		locks:       make(map[id.UserID]*keyedEntry),
		waitTimeout: config.DefaultConfig().Lock.WaitTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(k)
		}
	}
	return k
}

func (k *Keyed) WithUserLock(ctx context.Context, userID id.UserID, fn func(ctx context.Context) error) error {
	entry := k.acquireRef(userID)
	defer k.releaseRef(userID, entry)

	var expired <-chan time.Time
	if k.waitTimeout > 0 {
		timer := time.NewTimer(k.waitTimeout)
		defer timer.Stop()
		expired = timer.C
	}

	// The channel has capacity one; a successful send is ownership.
	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-expired:
		return fmt.Errorf("acquire user lock: %w", sentinel.ErrLockHeld)
	}
	defer func() { <-entry.ch }()

	return fn(ctx)
}

func (k *Keyed) acquireRef(userID id.UserID) *keyedEntry {
	k.mu.Lock()
	defer k.mu.Unlock()
	entry, ok := k.locks[userID]
	if !ok {
		entry = &keyedEntry{ch: make(chan struct{}, 1)}
		k.locks[userID] = entry
	}
	entry.refs++
	return entry
}

func (k *Keyed) releaseRef(userID id.UserID, entry *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(k.locks, userID)
	}
}

// size reports tracked users; used by tests.
func (k *Keyed) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
