package adapters

import (
	"context"
	"log/slog"

	"warden/internal/security/models"
)

// LogChannel writes alerts to the structured log. It is the channel for
// deployments without a broker.
type LogChannel struct {
	logger *slog.Logger
}

func NewLogChannel(logger *slog.Logger) *LogChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Notify(ctx context.Context, alert models.Alert) error {
	level := slog.LevelWarn
	if alert.Severity >= models.LevelCritical {
		level = slog.LevelError
	}
	c.logger.Log(ctx, level, "security_alert",
		"severity", alert.Severity.String(),
		"subject", alert.Subject,
		"body", alert.Body,
		"event_id", alert.EventID,
	)
	return nil
}
