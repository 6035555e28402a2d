package ledger

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"chatguard/internal/moderation/models"
	id "chatguard/pkg/domain"
	"chatguard/pkg/platform/sentinel"
)

// InMemoryLedger is an append-only event log for tests and single-node dev.
// Stored events are copied in and out so callers cannot mutate history.
type InMemoryLedger struct {
	mu     sync.RWMutex
	events map[id.UserID][]models.ViolationEvent
	ids    map[id.ViolationID]struct{}
}

func New() *InMemoryLedger {
	return &InMemoryLedger{
		events: make(map[id.UserID][]models.ViolationEvent),
		ids:    make(map[id.ViolationID]struct{}),
	}
}

func (l *InMemoryLedger) Append(_ context.Context, event *models.ViolationEvent) error {
	if event == nil {
		return fmt.Errorf("violation event is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.ids[event.ID]; exists {
		return fmt.Errorf("append violation %s: %w", event.ID, sentinel.ErrInvalidState)
	}
	l.ids[event.ID] = struct{}{}
	l.events[event.UserID] = append(l.events[event.UserID], cloneEvent(event))
	return nil
}

func (l *InMemoryLedger) CountSince(_ context.Context, userID id.UserID, since time.Time) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	count := 0
	for _, e := range l.events[userID] {
		if !e.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (l *InMemoryLedger) ListByUser(_ context.Context, userID id.UserID, limit int) ([]*models.ViolationEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	history := l.events[userID]
	out := make([]*models.ViolationEvent, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		e := cloneEvent(&history[i])
		out = append(out, &e)
	}
	slices.SortStableFunc(out, func(a, b *models.ViolationEvent) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len returns the total number of stored events across all users.
func (l *InMemoryLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ids)
}

func cloneEvent(e *models.ViolationEvent) models.ViolationEvent {
	c := *e
	c.Evidence.Categories = slices.Clone(e.Evidence.Categories)
	if e.Evidence.Matches != nil {
		c.Evidence.Matches = make(map[models.Category][]string, len(e.Evidence.Matches))
		for k, v := range e.Evidence.Matches {
			c.Evidence.Matches[k] = slices.Clone(v)
		}
	}
	return c
}
