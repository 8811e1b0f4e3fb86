// Package flusher moves pending records from the event store to the log sink
// in batches, off the ingestion path. Failed batches are retried with
// exponential backoff and then requeued; when the retry queue overflows the
// oldest batch is dropped and the loss is itself recorded as a CRITICAL alert.
package flusher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"warden/internal/security/metrics"
	"warden/internal/security/models"
	"warden/internal/security/ports"
	dErrors "warden/pkg/domain-errors"
)

const (
	StreamSecurityEvents = "security-events"
	StreamAuditTrails    = "audit-trails"
)

// Source is the part of the event store the flusher relies on.
type Source interface {
	DrainPending(max int) []models.LogRecord
	PendingSignal() <-chan struct{}
	Append(ctx context.Context, e models.SecurityEvent) (string, error)
}

type batch struct {
	stream  string
	records []models.LogRecord
}

// Flusher runs flush cycles on a ticker, on the store's pending signal and on
// demand. Cycles are serialized.
type Flusher struct {
	source  Source
	sink    ports.LogSink
	logger  *slog.Logger
	metrics *metrics.Metrics

	interval        time.Duration
	maxBatchRecords int
	maxAttempts     int
	retryBackoff    time.Duration
	callTimeout     time.Duration
	shutdownTimeout time.Duration
	maxRetryBatches int
	streamPrefix    string

	flushMu sync.Mutex
	retry   []batch

	flushed  atomic.Int64
	retries  atomic.Int64
	dropped  atomic.Int64
	retryLen atomic.Int64
}

type Option func(*Flusher)

func WithLogger(logger *slog.Logger) Option {
	return func(f *Flusher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Flusher) {
		f.metrics = m
	}
}

func WithInterval(d time.Duration) Option {
	return func(f *Flusher) {
		if d > 0 {
			f.interval = d
		}
	}
}

// WithMaxAttempts sets how many times one batch is submitted per cycle.
func WithMaxAttempts(n int) Option {
	return func(f *Flusher) {
		if n > 0 {
			f.maxAttempts = n
		}
	}
}

// WithRetryBackoff sets the base backoff; attempt n waits base*2^(n-1).
func WithRetryBackoff(d time.Duration) Option {
	return func(f *Flusher) {
		if d > 0 {
			f.retryBackoff = d
		}
	}
}

func WithCallTimeout(d time.Duration) Option {
	return func(f *Flusher) {
		if d > 0 {
			f.callTimeout = d
		}
	}
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(f *Flusher) {
		if d > 0 {
			f.shutdownTimeout = d
		}
	}
}

func WithMaxRetryBatches(n int) Option {
	return func(f *Flusher) {
		if n > 0 {
			f.maxRetryBatches = n
		}
	}
}

func WithMaxBatchRecords(n int) Option {
	return func(f *Flusher) {
		if n > 0 {
			f.maxBatchRecords = n
		}
	}
}

// WithStreamPrefix namespaces stream names, typically by environment.
func WithStreamPrefix(prefix string) Option {
	return func(f *Flusher) {
		f.streamPrefix = prefix
	}
}

func New(source Source, sink ports.LogSink, opts ...Option) *Flusher {
	f := &Flusher{
		source:          source,
		sink:            sink,
		logger:          slog.Default(),
		interval:        5 * time.Second,
		maxBatchRecords: 500,
		maxAttempts:     3,
		retryBackoff:    500 * time.Millisecond,
		callTimeout:     5 * time.Second,
		shutdownTimeout: 15 * time.Second,
		maxRetryBatches: 10,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// StreamFor maps a record type to its stream name.
func (f *Flusher) StreamFor(t models.RecordType) string {
	name := StreamSecurityEvents
	if t == models.RecordAuditTrail {
		name = StreamAuditTrails
	}
	if f.streamPrefix == "" {
		return name
	}
	return f.streamPrefix + "." + name
}

// Run flushes until ctx is cancelled, then performs one final cycle under a
// fresh deadline so records accepted before shutdown still reach the sink.
func (f *Flusher) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.runCycle(ctx)
		case <-f.source.PendingSignal():
			f.runCycle(ctx)
		case <-ctx.Done():
			f.logger.Info("log flusher stopping", "reason", ctx.Err())
			finalCtx, cancel := context.WithTimeout(context.Background(), f.shutdownTimeout)
			defer cancel()
			f.runCycle(finalCtx)
			return nil
		}
	}
}

func (f *Flusher) runCycle(ctx context.Context) {
	start := time.Now()
	res, err := f.cycle(ctx)
	duration := time.Since(start)
	f.metrics.ObserveFlushDuration(duration.Seconds())
	if err != nil {
		f.logger.Warn("flush_failed",
			"error", err,
			"batches_failed", res.Failed,
			"records_dropped", res.Dropped,
			"duration_ms", duration.Milliseconds(),
		)
		return
	}
	if res.Records > 0 {
		f.logger.Debug("flush_completed",
			"records", res.Records,
			"batches", res.Batches,
			"duration_ms", duration.Milliseconds(),
		)
	}
}

// Flush forces one cycle and reports whether everything was delivered.
func (f *Flusher) Flush(ctx context.Context) error {
	_, err := f.cycle(ctx)
	return err
}

// CycleResult summarizes one flush cycle.
type CycleResult struct {
	Batches int
	Records int
	Failed  int
	Dropped int
}

func (f *Flusher) cycle(ctx context.Context) (CycleResult, error) {
	f.flushMu.Lock()
	batches := append(f.retry, f.split(f.source.DrainPending(0))...)
	f.retry = nil

	var res CycleResult
	var failed []batch
	var lastErr error
	for _, b := range batches {
		if err := f.submit(ctx, b); err != nil {
			failed = append(failed, b)
			lastErr = err
			continue
		}
		res.Batches++
		res.Records += len(b.records)
		f.flushed.Add(int64(len(b.records)))
	}

	f.retry = failed
	var lost []batch
	for len(f.retry) > f.maxRetryBatches {
		lost = append(lost, f.retry[0])
		f.retry = f.retry[1:]
	}
	f.retryLen.Store(int64(len(f.retry)))
	f.metrics.SetRetryQueueDepth(len(f.retry))
	f.flushMu.Unlock()

	res.Failed = len(failed)
	for _, b := range lost {
		res.Dropped += len(b.records)
		f.recordLoss(b)
	}
	if lastErr != nil {
		return res, dErrors.Wrap(lastErr, dErrors.CodeSinkUnavailable, "log sink unavailable")
	}
	return res, nil
}

// split groups records per stream, keeping their order, in chunks of at most
// maxBatchRecords.
func (f *Flusher) split(records []models.LogRecord) []batch {
	if len(records) == 0 {
		return nil
	}
	var out []batch
	open := make(map[string]int)
	for _, r := range records {
		stream := f.StreamFor(r.Type)
		i, ok := open[stream]
		if !ok || len(out[i].records) >= f.maxBatchRecords {
			out = append(out, batch{stream: stream})
			i = len(out) - 1
			open[stream] = i
		}
		out[i].records = append(out[i].records, r)
	}
	return out
}

func (f *Flusher) submit(ctx context.Context, b batch) error {
	var err error
	for attempt := range f.maxAttempts {
		if attempt > 0 {
			f.retries.Add(1)
			f.metrics.IncFlushRetries()
			backoff := f.retryBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		callCtx, cancel := context.WithTimeout(ctx, f.callTimeout)
		err = f.sink.SubmitBatch(callCtx, b.stream, b.records)
		cancel()
		if err == nil {
			f.metrics.IncFlushBatch(b.stream, "success")
			return nil
		}
		f.metrics.IncFlushBatch(b.stream, "failed")
		f.logger.Warn("log sink submit failed",
			"stream", b.stream,
			"records", len(b.records),
			"attempt", attempt+1,
			"error", err,
		)
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}

// recordLoss writes the loss of a batch back into the timeline. The alert
// itself goes through the normal pending path.
func (f *Flusher) recordLoss(b batch) {
	f.dropped.Add(int64(len(b.records)))
	f.metrics.AddFlushDropped(len(b.records))
	f.logger.Error("log_records_dropped", "stream", b.stream, "records", len(b.records))

	_, err := f.source.Append(context.Background(), models.SecurityEvent{
		Kind:    models.KindAlert,
		Level:   models.LevelCritical,
		Action:  "log_records_dropped",
		Success: false,
		Metadata: map[string]any{
			"alert_type":      "log_records_dropped",
			"description":     fmt.Sprintf("retry queue overflow dropped %d records for stream %s", len(b.records), b.stream),
			"stream":          b.stream,
			"dropped_records": len(b.records),
		},
	})
	if err != nil {
		f.logger.Error("failed to record log loss alert", "error", err)
	}
}

// Stats holds delivery statistics.
type Stats struct {
	Flushed    int64 // records delivered
	Retries    int64 // retried submissions
	Dropped    int64 // records lost to retry queue overflow
	RetryQueue int64 // batches waiting for the next cycle
}

func (f *Flusher) Stats() Stats {
	return Stats{
		Flushed:    f.flushed.Load(),
		Retries:    f.retries.Load(),
		Dropped:    f.dropped.Load(),
		RetryQueue: f.retryLen.Load(),
	}
}
