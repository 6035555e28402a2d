package users

import (
	"context"
	"sync"
	"time"

	"chatguard/internal/moderation/models"
	id "chatguard/pkg/domain"
)

type record struct {
	status      models.UserStatus
	suspendedAt *time.Time
	reason      string
}

// InMemoryDirectory is a user directory for tests and single-node dev.
// Writes and reads share one mutex, so a Status call always observes the
// latest completed Suspend.
type InMemoryDirectory struct {
	mu    sync.RWMutex
	users map[id.UserID]*record
}

func New() *InMemoryDirectory {
	return &InMemoryDirectory{users: make(map[id.UserID]*record)}
}

func (d *InMemoryDirectory) Status(_ context.Context, userID id.UserID) (models.UserStatus, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if r, ok := d.users[userID]; ok {
		return r.status, nil
	}
	return models.UserStatusActive, nil
}

func (d *InMemoryDirectory) Suspend(_ context.Context, userID id.UserID, reason string, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.users[userID]
	if !ok {
		r = &record{status: models.UserStatusActive}
		d.users[userID] = r
	}
	if r.status == models.UserStatusSuspended {
		return nil
	}
	r.status = models.UserStatusSuspended
	r.suspendedAt = &at
	r.reason = reason
	return nil
}

// SuspendedAt returns when the user was suspended, or nil.
func (d *InMemoryDirectory) SuspendedAt(userID id.UserID) *time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if r, ok := d.users[userID]; ok {
		return r.suspendedAt
	}
	return nil
}
