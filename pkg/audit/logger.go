package audit

import (
	"context"
	"time"

	"github.com/mobelwerk/gatehouse/pkg/contextkeys"
)

// Logger is the audit sink contract. Emission is best-effort by convention:
// callers log failures and continue, a broken sink must never fail the
// operation being audited.
type Logger interface {
	// Log records an audit event.
	Log(ctx context.Context, event *Event) error

	// Close flushes and releases the sink.
	Close() error
}

// contextKey is the type for context keys
type contextKey string

// loggerKey is the context key for the audit logger
const loggerKey contextKey = "audit_logger"

// WithLogger adds an audit logger to the context
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the audit logger from context, or a no-op logger if
// none is set.
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerKey).(Logger); ok {
		return logger
	}
	return &noOpLogger{}
}

// NewEvent creates an event stamped with the current time and the request id
// from ctx, when present.
func NewEvent(ctx context.Context, action Action, status EventStatus) *Event {
	return &Event{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Status:    status,
		RequestID: contextkeys.GetRequestID(ctx),
	}
}

// NewNoOpLogger returns a logger that discards everything. Used when
// auditing is disabled and as the FromContext fallback.
func NewNoOpLogger() Logger {
	return &noOpLogger{}
}

type noOpLogger struct{}

func (l *noOpLogger) Log(ctx context.Context, event *Event) error { return nil }
func (l *noOpLogger) Close() error                                { return nil }
