// Package escalator turns a user's windowed violation count into a strike and
// records the resulting ViolationEvent.
package escalator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chatguard/internal/moderation/config"
	"chatguard/internal/moderation/detector"
	"chatguard/internal/moderation/metrics"
	"chatguard/internal/moderation/models"
	"chatguard/internal/moderation/ports"
	id "chatguard/pkg/domain"
	dErrors "chatguard/pkg/domain-errors"
	"chatguard/pkg/requestcontext"
)

// Service computes strikes against the ledger.
//
// Escalate is a read-then-write sequence. Callers must hold the user's lock
// (ports.Locker) for its duration, otherwise two concurrent violations can
// observe the same prior count.
type Service struct {
	ledger  ports.Ledger
	logger  *slog.Logger
	metrics *metrics.Metrics
	config  config.EnforcementConfig
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

func WithConfig(cfg config.EnforcementConfig) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

func New(ledger ports.Ledger, opts ...Option) (*Service, error) {
	if ledger == nil {
		return nil, errors.New("violation ledger is required")
	}
	svc := &Service{
		ledger: ledger,
		config: config.DefaultConfig().Enforcement,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Standing is the user's position on the strike ladder at a point in time.
type Standing struct {
	WindowStart time.Time
	PriorCount  int
	NextStrike  models.StrikeNumber
}

// NextStrike counts the user's violations in the window ending at the request
// time and returns the strike the next violation would receive.
func (s *Service) NextStrike(ctx context.Context, userID id.UserID) (*Standing, error) {
	windowStart := s.config.WindowStart(requestcontext.Now(ctx))
	count, err := s.ledger.CountSince(ctx, userID, windowStart)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to count prior violations")
	}
	return &Standing{
		WindowStart: windowStart,
		PriorCount:  count,
		NextStrike:  s.config.StrikeFor(count),
	}, nil
}

// Escalate records a new violation for a non-empty detection result and
// returns the stored event. Past the cap every violation is still recorded and
// reported at the final strike.
func (s *Service) Escalate(ctx context.Context, userID id.UserID, result detector.Result) (*models.ViolationEvent, error) {
	if result.Empty() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "cannot escalate an empty detection result")
	}

	standing, err := s.NextStrike(ctx, userID)
	if err != nil {
		return nil, err
	}

	event := &models.ViolationEvent{
		ID:           id.NewViolationID(),
		UserID:       userID,
		Category:     result.Primary(),
		StrikeNumber: standing.NextStrike,
		StrikeLabel:  standing.NextStrike.Label(),
		Description:  describe(result, standing.NextStrike),
		Evidence:     result.Evidence(),
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.ledger.Append(ctx, event); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to record violation")
	}

	s.metrics.IncrementViolation(event.Category, event.StrikeNumber)
	if s.logger != nil {
		s.logger.DebugContext(ctx, "violation recorded",
			"user_id", userID.String(),
			"violation_id", event.ID.String(),
			"category", event.Category,
			"strike", int(event.StrikeNumber),
			"prior_count", standing.PriorCount,
		)
	}
	return event, nil
}

func describe(result detector.Result, strike models.StrikeNumber) string {
	names := make([]string, len(result.Categories))
	for i, c := range result.Categories {
		names[i] = strings.ToLower(c.String())
	}
	return fmt.Sprintf("Contact sharing attempt (%s), strike %d", strings.Join(names, ", "), strike)
}
