// Package ports defines the collaborator interfaces of the moderation module.
// Interfaces live here because the escalator, executor and gate all consume them.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"chatguard/internal/moderation/models"
	id "chatguard/pkg/domain"
)

// Ledger is the append-only record of violation events.
type Ledger interface {
	// Append durably stores one event. Events are never updated or deleted.
	Append(ctx context.Context, event *models.ViolationEvent) error

	// CountSince returns the number of events for userID with CreatedAt >= since.
	CountSince(ctx context.Context, userID id.UserID, since time.Time) (int, error)

	// ListByUser returns up to limit events for userID, newest first.
	ListByUser(ctx context.Context, userID id.UserID, limit int) ([]*models.ViolationEvent, error)
}

// UserDirectory is the external owner of account status.
type UserDirectory interface {
	// Status returns the current status. Reads must observe the latest Suspend.
	// Unknown users are ACTIVE.
	Status(ctx context.Context, userID id.UserID) (models.UserStatus, error)

	// Suspend transitions the user to SUSPENDED. Suspending an already
	// suspended user is a no-op.
	Suspend(ctx context.Context, userID id.UserID, reason string, at time.Time) error
}

// Notice is the structured payload handed to the dispatcher. Rendering and
// delivery (push, email, SMS) belong to downstream consumers.
type Notice struct {
	Type          models.NoticeType   `json:"notice_type"`
	UserID        id.UserID           `json:"user_id"`
	ViolationID   id.ViolationID      `json:"violation_id"`
	ViolationType models.Category     `json:"violation_type"`
	StrikeNumber  models.StrikeNumber `json:"strike_number"`
	Final         bool                `json:"final"`
	Timestamp     time.Time           `json:"timestamp"`
	Evidence      models.Evidence     `json:"evidence"`
}

// NotificationDispatcher accepts notices for downstream delivery.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, notice Notice) error
}

// Locker serialises the count-then-append sequence per user.
type Locker interface {
	// WithUserLock runs fn while holding userID's lock. Implementations may
	// hand fn a derived context (for example one carrying a SQL transaction
	// that stores join). An error from fn is returned unchanged.
	WithUserLock(ctx context.Context, userID id.UserID, fn func(ctx context.Context) error) error
}
