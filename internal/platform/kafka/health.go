package kafka

import (
	"context"
	"fmt"
)

// Pinger is satisfied by the producer.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports broker reachability through the producer's own
// client, so it fails exactly when produce calls would.
type HealthChecker struct {
	client Pinger
}

func NewHealthChecker(client Pinger) *HealthChecker {
	return &HealthChecker{client: client}
}

// Check returns nil if at least one broker answered.
func (h *HealthChecker) Check(ctx context.Context) error {
	if h.client == nil {
		return fmt.Errorf("kafka producer not configured")
	}
	if err := h.client.Ping(ctx); err != nil {
		return fmt.Errorf("no kafka brokers reachable: %w", err)
	}
	return nil
}

// Name returns the check name for health reporting.
func (h *HealthChecker) Name() string {
	return "kafka"
}
