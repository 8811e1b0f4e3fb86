// Package monitor is the single entry point other subsystems use to record
// security events and audit trails, run anomaly detection and produce
// compliance reports. A Monitor is constructed once per process and passed by
// reference; Run owns its background tasks.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"warden/internal/security/alerting"
	"warden/internal/security/anomaly"
	"warden/internal/security/audittrail"
	"warden/internal/security/compliance"
	"warden/internal/security/flusher"
	"warden/internal/security/metrics"
	"warden/internal/security/ports"
	"warden/internal/security/ratelimit"
	"warden/internal/security/retention"
	"warden/internal/security/store"
)

// Config tunes every component. Zero values keep the component defaults.
type Config struct {
	FlushInterval     time.Duration
	FlushThreshold    int
	FlushMaxAttempts  int
	FlushRetryBackoff time.Duration
	SinkTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxRetryBatches   int
	MaxBatchRecords   int
	StreamPrefix      string

	RateLimitPerMinute int
	RateLimitPerHour   int

	ScanInterval time.Duration
	DedupeSize   int
	Anomaly      *anomaly.Config
	Compliance   *compliance.Config

	RetentionWindow   time.Duration
	RetentionInterval time.Duration

	AlertQueueSize int
	AlertTimeout   time.Duration
}

type Monitor struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time

	store      *store.Store
	limiter    *ratelimit.Limiter
	detector   *anomaly.Detector
	recorder   *audittrail.Recorder
	reporter   *compliance.Reporter
	flusher    *flusher.Flusher
	dispatcher *alerting.Dispatcher
	retention  *retention.Worker
}

type Option func(*Monitor)

func WithConfig(cfg Config) Option {
	return func(m *Monitor) {
		m.cfg = cfg
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Monitor) {
		m.metrics = mt
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(m *Monitor) {
		if t != nil {
			m.tracer = t
		}
	}
}

// WithClock replaces the wall clock for every component. Tests only.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// New wires the monitor's components. Both collaborators are required.
func New(sink ports.LogSink, channel ports.AlertChannel, opts ...Option) (*Monitor, error) {
	if sink == nil || channel == nil {
		return nil, fmt.Errorf("log sink and alert channel are required")
	}
	m := &Monitor{
		logger: slog.Default(),
		tracer: otel.Tracer("warden/monitor"),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	cfg := m.cfg

	m.store = store.New(
		store.WithClock(m.now),
		store.WithFlushThreshold(cfg.FlushThreshold),
		store.WithMetrics(m.metrics),
	)
	m.limiter = ratelimit.New(
		ratelimit.WithClock(m.now),
		ratelimit.WithLimits(cfg.RateLimitPerMinute, cfg.RateLimitPerHour),
		ratelimit.WithMetrics(m.metrics),
	)
	m.dispatcher = alerting.New(channel,
		alerting.WithLogger(m.logger),
		alerting.WithMetrics(m.metrics),
		alerting.WithQueueSize(cfg.AlertQueueSize),
		alerting.WithTimeout(cfg.AlertTimeout),
		alerting.WithShutdownTimeout(cfg.ShutdownTimeout),
	)

	detectorOpts := []anomaly.Option{
		anomaly.WithInterval(cfg.ScanInterval),
		anomaly.WithLogger(m.logger),
		anomaly.WithMetrics(m.metrics),
		anomaly.WithDedupeSize(cfg.DedupeSize),
	}
	if cfg.Anomaly != nil {
		detectorOpts = append(detectorOpts, anomaly.WithConfig(*cfg.Anomaly))
	}
	m.detector = anomaly.New(m.store, m.dispatcher, detectorOpts...)

	m.recorder = audittrail.New(m.store)

	reporterOpts := []compliance.Option{compliance.WithMetrics(m.metrics)}
	if cfg.Compliance != nil {
		reporterOpts = append(reporterOpts, compliance.WithConfig(*cfg.Compliance))
	}
	m.reporter = compliance.New(m.store, reporterOpts...)

	m.flusher = flusher.New(m.store, sink,
		flusher.WithLogger(m.logger),
		flusher.WithMetrics(m.metrics),
		flusher.WithInterval(cfg.FlushInterval),
		flusher.WithMaxAttempts(cfg.FlushMaxAttempts),
		flusher.WithRetryBackoff(cfg.FlushRetryBackoff),
		flusher.WithCallTimeout(cfg.SinkTimeout),
		flusher.WithShutdownTimeout(cfg.ShutdownTimeout),
		flusher.WithMaxRetryBatches(cfg.MaxRetryBatches),
		flusher.WithMaxBatchRecords(cfg.MaxBatchRecords),
		flusher.WithStreamPrefix(cfg.StreamPrefix),
	)

	var err error
	m.retention, err = retention.New(m.store,
		retention.WithLimiter(m.limiter),
		retention.WithWindow(cfg.RetentionWindow),
		retention.WithInterval(cfg.RetentionInterval),
		retention.WithLogger(m.logger),
		retention.WithMetrics(m.metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("retention worker: %w", err)
	}
	return m, nil
}

// Run drives the flusher, the periodic anomaly scan, alert delivery and the
// retention sweep until ctx is cancelled. It returns once the final flush
// and the alert drain have finished.
func (m *Monitor) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.flusher.Run(gctx) })
	g.Go(func() error { return m.detector.Run(gctx) })
	g.Go(func() error { return m.dispatcher.Run(gctx) })
	g.Go(func() error {
		if err := m.retention.Start(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	m.logger.InfoContext(ctx, "security monitor started")
	err := g.Wait()
	m.logger.Info("security monitor stopped", "flush_stats", m.flusher.Stats(), "alert_stats", m.dispatcher.Stats())
	return err
}

// Flush forces every pending record to the log sink. A failure is also
// surfaced through the drop diagnostics; callers may ignore it.
func (m *Monitor) Flush(ctx context.Context) error {
	ctx, end := m.startSpan(ctx, "security.flush")
	err := m.flusher.Flush(ctx)
	end(err)
	return err
}

// FlushStats exposes delivery counters for health reporting.
func (m *Monitor) FlushStats() flusher.Stats {
	return m.flusher.Stats()
}

// AlertStats exposes alert delivery counters for health reporting.
func (m *Monitor) AlertStats() alerting.Stats {
	return m.dispatcher.Stats()
}

// Sweep runs one retention pass immediately.
func (m *Monitor) Sweep(ctx context.Context) retention.Result {
	return m.retention.RunOnce(ctx)
}
