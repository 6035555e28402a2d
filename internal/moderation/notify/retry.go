package notify

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"chatguard/internal/moderation/config"
	"chatguard/internal/moderation/ports"
)

// Retrying retries a dispatcher with exponential backoff. Each attempt gets
// its own timeout; the whole sequence is bounded by MaxRetries.
type Retrying struct {
	next ports.NotificationDispatcher
	cfg  config.NoticeConfig
}

func NewRetrying(next ports.NotificationDispatcher, cfg config.NoticeConfig) (*Retrying, error) {
	if next == nil {
		return nil, errors.New("dispatcher is required")
	}
	return &Retrying{next: next, cfg: cfg}, nil
}

func (r *Retrying) Dispatch(ctx context.Context, notice ports.Notice) error {
	backoff := retry.WithMaxRetries(r.cfg.MaxRetries, retry.NewExponential(r.backoffBase()))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx := ctx
		if r.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
			defer cancel()
		}
		if err := r.next.Dispatch(attemptCtx, notice); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (r *Retrying) backoffBase() time.Duration {
	if r.cfg.RetryBackoff <= 0 {
		return 10 * time.Millisecond
	}
	return r.cfg.RetryBackoff
}
