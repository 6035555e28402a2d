// Package sentinel holds the infrastructure errors that stores and lockers
// return (usually wrapped). Services match them with errors.Is and translate
// them into domain-errors codes; they never reach HTTP callers directly.
package sentinel

import "errors"

var (
	// ErrInvalidState means a write conflicts with what is already stored,
	// such as appending a violation whose ID the ledger already holds.
	ErrInvalidState = errors.New("invalid state")

	// ErrLockHeld means the per-user violation lock could not be acquired
	// before the caller's deadline.
	ErrLockHeld = errors.New("lock held")

	// ErrLockExpired means the critical section outlived its lock lease, so
	// another holder may have run concurrently.
	ErrLockExpired = errors.New("lock expired")
)
