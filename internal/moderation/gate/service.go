// Package gate is the single entry point for moderating an outgoing message.
//
// Every send flows through Evaluate before the message is persisted:
//
//	status check -> detect -> [lock: re-check, escalate, apply] -> notify
//
// Clean messages never take the lock or touch the ledger. Violations are
// counted and recorded under the sender's lock so strike numbers stay
// monotonic under concurrent sends. Notices are dispatched after the lock is
// released, in the background, and never affect the decision.
//
// Spans come from otel.Tracer unless WithTracer is given, so they are only
// exported once the host installs a provider (see internal/platform/tracing).
package gate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chatguard/internal/moderation/config"
	"chatguard/internal/moderation/detector"
	"chatguard/internal/moderation/enforcement"
	"chatguard/internal/moderation/escalator"
	"chatguard/internal/moderation/metrics"
	"chatguard/internal/moderation/models"
	"chatguard/internal/moderation/observability"
	"chatguard/internal/moderation/ports"
	id "chatguard/pkg/domain"
	dErrors "chatguard/pkg/domain-errors"
	"chatguard/pkg/platform/sentinel"
)

const (
	tracerName = "chatguard/moderation/gate"

	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type Service struct {
	users     ports.UserDirectory
	ledger    ports.Ledger
	locker    ports.Locker
	detector  *detector.Detector
	escalator *escalator.Service
	executor  *enforcement.Executor
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	config    *config.Config

	notices sync.WaitGroup
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

func WithDetector(d *detector.Detector) Option {
	return func(s *Service) {
		s.detector = d
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func New(users ports.UserDirectory, ledger ports.Ledger, locker ports.Locker, dispatcher ports.NotificationDispatcher, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, errors.New("user directory is required")
	}
	if ledger == nil {
		return nil, errors.New("violation ledger is required")
	}
	if locker == nil {
		return nil, errors.New("user locker is required")
	}

	svc := &Service{
		users:  users,
		ledger: ledger,
		locker: locker,
		config: config.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.detector == nil {
		svc.detector = detector.New(nil)
	}
	if svc.tracer == nil {
		svc.tracer = otel.Tracer(tracerName)
	}

	var err error
	svc.escalator, err = escalator.New(ledger,
		escalator.WithLogger(svc.logger),
		escalator.WithMetrics(svc.metrics),
		escalator.WithConfig(svc.config.Enforcement),
	)
	if err != nil {
		return nil, err
	}
	svc.executor, err = enforcement.New(users, dispatcher,
		enforcement.WithLogger(svc.logger),
		enforcement.WithMetrics(svc.metrics),
		enforcement.WithConfig(svc.config.Enforcement),
	)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// Evaluate decides whether senderID may send text.
//
// On an infrastructure failure the returned decision is the fail-closed
// RejectUnavailable and the error carries CodeUnavailable. Callers must not
// persist the message unless decision.Allowed is true.
func (s *Service) Evaluate(ctx context.Context, senderID id.UserID, text string) (*models.Decision, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "gate.Evaluate",
		trace.WithAttributes(attribute.String("user_id", senderID.String())))
	defer span.End()

	decision, err := s.evaluate(ctx, senderID, text)

	if decision != nil {
		s.metrics.IncrementEvaluation(decision.Outcome)
		span.SetAttributes(
			attribute.String("outcome", string(decision.Outcome)),
			attribute.Int("strike", int(decision.StrikeNumber)),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if s.logger != nil && dErrors.HasCode(err, dErrors.CodeUnavailable) {
			s.logger.ErrorContext(ctx, "message evaluation failed closed",
				"user_id", senderID.String(),
				"error", err,
			)
		}
	}
	s.metrics.ObserveEvaluateDuration(time.Since(start).Seconds())
	return decision, err
}

func (s *Service) evaluate(ctx context.Context, senderID id.UserID, text string) (*models.Decision, error) {
	if senderID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "sender id is required")
	}

	status, err := s.users.Status(ctx, senderID)
	if err != nil {
		return models.RejectUnavailable(), dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read account status")
	}
	if status == models.UserStatusSuspended {
		return s.rejectSuspended(ctx, senderID), nil
	}

	result := s.detect(ctx, text)
	if result.Empty() {
		return models.Allow(), nil
	}

	var (
		event                 *models.ViolationEvent
		suspendedWhileWaiting bool
	)
	lockRequested := time.Now()
	err = s.locker.WithUserLock(ctx, senderID, func(ctx context.Context) error {
		s.metrics.ObserveLockWait(time.Since(lockRequested).Seconds())

		// A concurrent strike 3 may have landed while this send waited.
		status, err := s.users.Status(ctx, senderID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read account status")
		}
		if status == models.UserStatusSuspended {
			suspendedWhileWaiting = true
			return nil
		}

		event, err = s.escalator.Escalate(ctx, senderID, result)
		if err != nil {
			return err
		}
		return s.executor.Apply(ctx, event)
	})
	if err != nil {
		return models.RejectUnavailable(), unavailable(err)
	}
	if suspendedWhileWaiting {
		return s.rejectSuspended(ctx, senderID), nil
	}

	s.notifyAsync(ctx, event)

	observability.LogAudit(ctx, s.logger, observability.EventMessageBlocked,
		"user_id", senderID.String(),
		"violation_id", event.ID.String(),
		"category", event.Category,
		"categories", result.Categories,
		"strike", int(event.StrikeNumber),
	)
	return models.RejectPolicy(
		s.config.Enforcement.ReasonFor(event.Category),
		result.Categories,
		event.StrikeNumber,
		event.ID,
	), nil
}

func (s *Service) detect(ctx context.Context, text string) detector.Result {
	_, span := s.tracer.Start(ctx, "gate.Detect")
	defer span.End()
	result := s.detector.Detect(text)
	span.SetAttributes(attribute.Int("categories", len(result.Categories)))
	return result
}

func (s *Service) rejectSuspended(ctx context.Context, senderID id.UserID) *models.Decision {
	observability.LogAudit(ctx, s.logger, observability.EventSuspendedRejected,
		"user_id", senderID.String(),
	)
	return models.RejectSuspended(s.config.Enforcement.AppealURL)
}

// notifyAsync dispatches notices off the request path. The derived context
// keeps request values for log correlation but not the request deadline.
func (s *Service) notifyAsync(ctx context.Context, event *models.ViolationEvent) {
	ctx = context.WithoutCancel(ctx)
	s.notices.Add(1)
	go func() {
		defer s.notices.Done()
		s.executor.Notify(ctx, event)
	}()
}

// Drain waits for in-flight notices or until ctx is done.
func (s *Service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.notices.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the derived enforcement standing of userID.
func (s *Service) Status(ctx context.Context, userID id.UserID) (*models.EnforcementStatus, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	status, err := s.users.Status(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read account status")
	}
	standing, err := s.escalator.NextStrike(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.EnforcementStatus{
		UserID:      userID,
		Status:      status,
		WindowCount: standing.PriorCount,
		NextStrike:  standing.NextStrike,
		WindowStart: standing.WindowStart,
	}, nil
}

// History returns the user's most recent violations, newest first. A limit of
// zero uses the default page size.
func (s *Service) History(ctx context.Context, userID id.UserID, limit int) ([]*models.ViolationEvent, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	if limit == 0 {
		limit = defaultHistoryLimit
	}
	if limit < 0 || limit > maxHistoryLimit {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "limit must be between 1 and 100")
	}
	events, err := s.ledger.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list violations")
	}
	return events, nil
}

func unavailable(err error) error {
	if dErrors.HasCode(err, dErrors.CodeUnavailable) {
		return err
	}
	if errors.Is(err, sentinel.ErrLockHeld) || errors.Is(err, sentinel.ErrLockExpired) ||
		errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "user lock unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "enforcement failed")
}
