package logger

import (
	"context"
	"log/slog"
)

// Audit event types
const (
	EventLoginSuccess   = "login_success"
	EventLoginFailure   = "login_failure"
	EventAccountLocked  = "account_locked"
	EventAccountUnlock  = "account_unlocked"
	EventCodeIssued     = "code_issued"
	EventCodeVerified   = "code_verified"
	EventCodeRejected   = "code_rejected"
	EventSessionCreated = "session_created"
	EventSessionEnded   = "session_ended"
	EventSessionDenied  = "session_denied"
	EventPasswordChange = "password_change"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	AccountID     string
	Role          string
	Email         string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes audit records through the application logger
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// Log emits one audit record. Failures are logged at warn so they stand out.
func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
	}

	if event.AccountID != "" {
		attrs = append(attrs, slog.String("account_id", event.AccountID))
	}
	if event.Role != "" {
		attrs = append(attrs, slog.String("role", event.Role))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

// LogAccountAction records an administrative action on an account
func (al *AuditLogger) LogAccountAction(ctx context.Context, eventType, accountID string, metadata map[string]string) {
	al.Log(ctx, AuditEvent{
		EventType: eventType,
		AccountID: accountID,
		Success:   true,
		Metadata:  metadata,
	})
}
