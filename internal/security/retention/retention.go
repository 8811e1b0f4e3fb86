// Package retention bounds the in-memory window: it periodically purges old
// events and audit trails and forgets idle rate-limiter identifiers.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"warden/internal/security/metrics"
	"warden/internal/security/store"
)

// EventStore exposes purging of records older than a cutoff.
type EventStore interface {
	Purge(cutoff time.Time) store.PurgeResult
	Now() time.Time
}

// IdentifierSweeper exposes cleanup of idle rate-limit state.
type IdentifierSweeper interface {
	Sweep(now time.Time) int
}

// Result summarizes the work done by one sweep.
type Result struct {
	PurgedEvents      int
	PurgedAuditTrails int
	SweptIdentifiers  int
	Cutoff            time.Time
	Duration          time.Duration
}

// Worker periodically enforces the retention window.
type Worker struct {
	store    EventStore
	limiter  IdentifierSweeper
	window   time.Duration
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures Worker.
type Option func(*Worker)

// WithWindow overrides how long records stay in memory when greater than zero.
func WithWindow(window time.Duration) Option {
	return func(w *Worker) {
		if window > 0 {
			w.window = window
		}
	}
}

// WithInterval overrides the sweep interval when greater than zero.
func WithInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

// WithLimiter also sweeps idle identifiers from the rate limiter.
func WithLimiter(l IdentifierSweeper) Option {
	return func(w *Worker) {
		w.limiter = l
	}
}

// New constructs a Worker. The store is required.
func New(s EventStore, opts ...Option) (*Worker, error) {
	if s == nil {
		return nil, fmt.Errorf("store is required")
	}
	w := &Worker{
		store:    s,
		window:   24 * time.Hour,
		interval: 5 * time.Minute,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Start runs a sweep periodically until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.RunOnce(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce purges everything older than the retention window, measured from
// the store's clock.
func (w *Worker) RunOnce(ctx context.Context) Result {
	start := time.Now()
	now := w.store.Now()
	res := Result{Cutoff: now.Add(-w.window)}

	purged := w.store.Purge(res.Cutoff)
	res.PurgedEvents = purged.Events
	res.PurgedAuditTrails = purged.Audits
	if w.limiter != nil {
		res.SweptIdentifiers = w.limiter.Sweep(now)
	}
	res.Duration = time.Since(start)

	w.metrics.AddRetentionPurged("event", res.PurgedEvents)
	w.metrics.AddRetentionPurged("audit_trail", res.PurgedAuditTrails)
	w.metrics.AddRetentionPurged("rate_limit_identifier", res.SweptIdentifiers)
	w.metrics.IncRetentionRuns("success")

	w.logger.InfoContext(ctx, "retention_sweep_completed",
		"purged_events", res.PurgedEvents,
		"purged_audit_trails", res.PurgedAuditTrails,
		"swept_identifiers", res.SweptIdentifiers,
		"cutoff", res.Cutoff,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res
}
