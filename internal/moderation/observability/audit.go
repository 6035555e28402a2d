// Package observability provides audit logging helpers for the moderation module.
package observability

import (
	"context"
	"log/slog"

	"chatguard/pkg/platform/attrs"
	"chatguard/pkg/requestcontext"
)

// Audit event names emitted by the moderation module.
const (
	EventMessageBlocked    = "moderation_message_blocked"
	EventSuspendedRejected = "moderation_suspended_sender_rejected"
	EventAccountSuspended  = "moderation_account_suspended"
	EventNoticeFailed      = "moderation_notice_failed"
)

var redactedKeys = []string{"text", "message"}

// LogAudit logs a security-relevant moderation event with request correlation.
// Message text is never logged: "text" and "message" pairs are stripped before
// the record is written.
func LogAudit(ctx context.Context, logger *slog.Logger, event string, attrList ...any) {
	if logger == nil {
		return
	}
	attrList = attrs.Drop(attrList, redactedKeys...)
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrList = append(attrList, "request_id", requestID)
	}
	if caller := requestcontext.Caller(ctx); caller != "" {
		attrList = append(attrList, "caller", caller)
	}
	args := append(attrList, "event", event, "log_type", "audit")

	level := slog.LevelInfo
	if attrs.String(attrList, "severity") == "critical" {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, event, args...)
}
