package ports

import (
	"context"

	"warden/internal/security/models"
)

// LogSink is the durable, append-only destination for security records.
// One call submits one batch to one stream; the sink owns durability.
// Implementations return internal/sentinel errors wrapped with context.
type LogSink interface {
	SubmitBatch(ctx context.Context, stream string, records []models.LogRecord) error
}

// AlertChannel delivers high-severity notifications. Delivery is
// fire-and-forget from the monitor's perspective; errors are only logged.
type AlertChannel interface {
	Notify(ctx context.Context, alert models.Alert) error
}
