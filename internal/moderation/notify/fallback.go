package notify

import (
	"context"
	"errors"
	"log/slog"

	"chatguard/internal/moderation/ports"
	"chatguard/pkg/platform/circuit"
)

// Circuit routes notices to primary while it is healthy and to fallback once
// primary has failed repeatedly. An open circuit still probes primary after
// its cooldown.
type Circuit struct {
	primary  ports.NotificationDispatcher
	fallback ports.NotificationDispatcher
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

func NewCircuit(primary, fallback ports.NotificationDispatcher, breaker *circuit.Breaker, logger *slog.Logger) (*Circuit, error) {
	if primary == nil || fallback == nil {
		return nil, errors.New("primary and fallback dispatchers are required")
	}
	if breaker == nil {
		breaker = circuit.New("notices")
	}
	return &Circuit{primary: primary, fallback: fallback, breaker: breaker, logger: logger}, nil
}

func (c *Circuit) Dispatch(ctx context.Context, notice ports.Notice) error {
	if !c.breaker.AllowPrimary() {
		return c.fallback.Dispatch(ctx, notice)
	}

	err := c.primary.Dispatch(ctx, notice)
	if err == nil {
		if _, change := c.breaker.RecordSuccess(); change.Closed && c.logger != nil {
			c.logger.InfoContext(ctx, "notice circuit closed", "breaker", c.breaker.Name())
		}
		return nil
	}

	useFallback, change := c.breaker.RecordFailure()
	if change.Opened && c.logger != nil {
		c.logger.WarnContext(ctx, "notice circuit opened", "breaker", c.breaker.Name(), "error", err)
	}
	if !useFallback {
		return err
	}
	return c.fallback.Dispatch(ctx, notice)
}
