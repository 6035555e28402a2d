// Package enforcement maps a recorded violation to its side effects: account
// suspension at the final strike and the notices for every strike.
package enforcement

import (
	"context"
	"errors"
	"log/slog"

	"chatguard/internal/moderation/config"
	"chatguard/internal/moderation/metrics"
	"chatguard/internal/moderation/models"
	"chatguard/internal/moderation/observability"
	"chatguard/internal/moderation/ports"
	dErrors "chatguard/pkg/domain-errors"
	"chatguard/pkg/requestcontext"
)

// Executor applies enforcement for a ViolationEvent.
//
// Apply changes account state and must run under the user's lock, in the same
// unit of work as the ledger append. Notify is best-effort and should run after
// the lock is released; its failures never reach the caller.
type Executor struct {
	users      ports.UserDirectory
	dispatcher ports.NotificationDispatcher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	config     config.EnforcementConfig
}

type Option func(*Executor)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

func WithConfig(cfg config.EnforcementConfig) Option {
	return func(e *Executor) {
		e.config = cfg
	}
}

func New(users ports.UserDirectory, dispatcher ports.NotificationDispatcher, opts ...Option) (*Executor, error) {
	if users == nil {
		return nil, errors.New("user directory is required")
	}
	if dispatcher == nil {
		return nil, errors.New("notification dispatcher is required")
	}
	e := &Executor{
		users:      users,
		dispatcher: dispatcher,
		config:     config.DefaultConfig().Enforcement,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Apply performs the account-state change for the event's strike. Only the
// final strike changes state; it suspends the user.
func (e *Executor) Apply(ctx context.Context, event *models.ViolationEvent) error {
	if event == nil {
		return dErrors.New(dErrors.CodeBadRequest, "violation event is required")
	}
	if event.StrikeNumber < e.config.MaxStrike {
		return nil
	}

	if err := e.users.Suspend(ctx, event.UserID, event.Description, requestcontext.Now(ctx)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to suspend user")
	}
	e.metrics.IncrementSuspensions()
	observability.LogAudit(ctx, e.logger, observability.EventAccountSuspended,
		"user_id", event.UserID.String(),
		"violation_id", event.ID.String(),
		"category", event.Category,
		"strike", int(event.StrikeNumber),
		"severity", "critical",
	)
	return nil
}

// Notices returns the notices owed for an event, in dispatch order.
//
//	strike 1: CONTACT_SHARING_ATTEMPT
//	strike 2: CONTACT_SHARING_ATTEMPT, SUSPENSION_WARNING
//	strike 3: CONTACT_SHARING_ATTEMPT, SUSPENSION_FINAL (final)
func (e *Executor) Notices(event *models.ViolationEvent) []ports.Notice {
	base := ports.Notice{
		Type:          models.NoticeContactSharingAttempt,
		UserID:        event.UserID,
		ViolationID:   event.ID,
		ViolationType: event.Category,
		StrikeNumber:  event.StrikeNumber,
		Timestamp:     event.CreatedAt,
		Evidence:      event.Evidence,
	}
	notices := []ports.Notice{base}

	switch {
	case event.StrikeNumber >= e.config.MaxStrike:
		final := base
		final.Type = models.NoticeSuspensionFinal
		final.Final = true
		notices = append(notices, final)
	case event.StrikeNumber == e.config.MaxStrike-1:
		warning := base
		warning.Type = models.NoticeSuspensionWarning
		notices = append(notices, warning)
	}
	return notices
}

// Notify dispatches every notice owed for the event. Failures are logged and
// counted, then dropped.
func (e *Executor) Notify(ctx context.Context, event *models.ViolationEvent) {
	if event == nil {
		return
	}
	for _, notice := range e.Notices(event) {
		if err := e.dispatcher.Dispatch(ctx, notice); err != nil {
			e.metrics.IncrementNoticeFailure(notice.Type)
			observability.LogAudit(ctx, e.logger, observability.EventNoticeFailed,
				"user_id", event.UserID.String(),
				"violation_id", event.ID.String(),
				"notice_type", notice.Type,
				"error", err,
			)
			continue
		}
		e.metrics.IncrementNoticeSent(notice.Type)
	}
}

// Enforce runs Apply then Notify. Callers that hold a lock around Apply should
// call the two halves separately.
func (e *Executor) Enforce(ctx context.Context, event *models.ViolationEvent) error {
	if err := e.Apply(ctx, event); err != nil {
		return err
	}
	e.Notify(ctx, event)
	return nil
}
