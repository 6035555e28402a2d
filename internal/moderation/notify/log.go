package notify

import (
	"context"
	"log/slog"

	"chatguard/internal/moderation/ports"
)

// Log writes notices to the structured log. It is the dispatcher when no
// broker is configured and the fallback when the broker is down.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Dispatch(ctx context.Context, notice ports.Notice) error {
	l.logger.InfoContext(ctx, "enforcement notice",
		"notice_type", notice.Type,
		"user_id", notice.UserID.String(),
		"violation_id", notice.ViolationID.String(),
		"violation_type", notice.ViolationType,
		"strike", int(notice.StrikeNumber),
		"final", notice.Final,
		"timestamp", notice.Timestamp,
	)
	return nil
}
