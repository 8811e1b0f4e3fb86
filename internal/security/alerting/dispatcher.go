// Package alerting delivers alerts to the alert channel from a bounded
// in-memory queue, so raising an alert never blocks the detector or the
// ingestion path.
package alerting

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"warden/internal/security/metrics"
	"warden/internal/security/models"
	"warden/internal/security/ports"
	"warden/pkg/platform/circuit"
)

type Dispatcher struct {
	channel ports.AlertChannel
	queue   chan models.Alert
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *metrics.Metrics

	timeout         time.Duration
	shutdownTimeout time.Duration

	sent    atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
	skipped atomic.Int64
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithQueueSize bounds the number of undelivered alerts. Default 256.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan models.Alert, n)
		}
	}
}

// WithTimeout bounds each Notify call. Default 5s.
func WithTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

func WithShutdownTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.shutdownTimeout = t
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(d *Dispatcher) {
		if b != nil {
			d.breaker = b
		}
	}
}

func New(channel ports.AlertChannel, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		channel:         channel,
		queue:           make(chan models.Alert, 256),
		breaker:         circuit.New("alert_channel", circuit.WithFailureThreshold(3)),
		logger:          slog.Default(),
		timeout:         5 * time.Second,
		shutdownTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch enqueues an alert without blocking. A full queue drops the alert
// and returns false.
func (d *Dispatcher) Dispatch(alert models.Alert) bool {
	select {
	case d.queue <- alert:
		return true
	default:
		d.dropped.Add(1)
		d.metrics.IncAlert("dropped")
		d.logger.Warn("alert dropped, queue full",
			"severity", alert.Severity.String(),
			"event_id", alert.EventID,
		)
		return false
	}
}

// Run delivers queued alerts until ctx is cancelled, then drains what is
// left under the shutdown deadline.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case alert := <-d.queue:
			d.deliver(ctx, alert)
		case <-ctx.Done():
			d.logger.Info("alert dispatcher stopping", "reason", ctx.Err(), "queued", len(d.queue))
			drainCtx, cancel := context.WithTimeout(context.Background(), d.shutdownTimeout)
			defer cancel()
			d.drain(drainCtx)
			return nil
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case alert := <-d.queue:
			if ctx.Err() != nil {
				d.dropped.Add(1)
				d.metrics.IncAlert("dropped")
				continue
			}
			d.deliver(ctx, alert)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, alert models.Alert) {
	if !d.breaker.Allow() {
		d.skipped.Add(1)
		d.metrics.IncAlert("skipped")
		d.logger.Warn("alert skipped, channel circuit open",
			"breaker", d.breaker.Name(),
			"event_id", alert.EventID,
		)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	err := d.channel.Notify(callCtx, alert)
	cancel()
	if err != nil {
		d.failed.Add(1)
		d.metrics.IncAlert("failed")
		change := d.breaker.RecordFailure()
		d.logger.Error("alert delivery failed",
			"error", err,
			"severity", alert.Severity.String(),
			"event_id", alert.EventID,
			"circuit_opened", change.Opened,
		)
		return
	}
	d.sent.Add(1)
	d.metrics.IncAlert("sent")
	if change := d.breaker.RecordSuccess(); change.Closed {
		d.logger.Info("alert channel recovered", "breaker", d.breaker.Name())
	}
}

// Stats holds delivery outcomes.
type Stats struct {
	Sent    int64
	Failed  int64
	Dropped int64
	Skipped int64
	Queued  int
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Sent:    d.sent.Load(),
		Failed:  d.failed.Load(),
		Dropped: d.dropped.Load(),
		Skipped: d.skipped.Load(),
		Queued:  len(d.queue),
	}
}
