// Package anomaly scans the event store for behavioural anomalies over
// sliding windows. Each (rule, subject) pair fires at most once per window:
// after firing it stays quiet until the rule's window has elapsed.
package anomaly

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"warden/internal/platform/privacy"
	"warden/internal/security/metrics"
	"warden/internal/security/models"
)

// Source is the part of the event store the detector reads and writes.
type Source interface {
	Query(ctx context.Context, f models.EventFilter) ([]models.SecurityEvent, error)
	QueryAudits(ctx context.Context, f models.AuditFilter) ([]models.AuditTrail, error)
	Append(ctx context.Context, e models.SecurityEvent) (string, error)
	Now() time.Time
}

// Alerter accepts alerts without blocking.
type Alerter interface {
	Dispatch(alert models.Alert) bool
}

const (
	defaultDedupeSize = 10_000
	defaultRecentSize = 100
)

type Detector struct {
	source   Source
	alerter  Alerter
	cfg      Config
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu     sync.Mutex
	fired  *lru.Cache[string, time.Time]
	recent []models.SecurityAnomaly

	skipped  atomic.Int64
	detected atomic.Int64
}

type Option func(*Detector)

func WithConfig(cfg Config) Option {
	return func(d *Detector) {
		d.cfg = cfg
	}
}

// WithInterval sets the period of the background scan. Default 60s.
func WithInterval(interval time.Duration) Option {
	return func(d *Detector) {
		if interval > 0 {
			d.interval = interval
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Detector) {
		d.metrics = m
	}
}

// WithDedupeSize bounds how many (rule, subject) firings are remembered.
func WithDedupeSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.fired, _ = lru.New[string, time.Time](n)
		}
	}
}

func New(source Source, alerter Alerter, opts ...Option) *Detector {
	fired, _ := lru.New[string, time.Time](defaultDedupeSize)
	d := &Detector{
		source:   source,
		alerter:  alerter,
		cfg:      DefaultConfig(),
		interval: time.Minute,
		logger:   slog.Default(),
		fired:    fired,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Scan evaluates every rule over the whole store and returns the anomalies
// raised by this call.
func (d *Detector) Scan(ctx context.Context) ([]models.SecurityAnomaly, error) {
	return d.scan(ctx, scope{})
}

// ScanSubject evaluates only the rules that concern userID and ip. It is
// meant to run inline right after an ingestion call.
func (d *Detector) ScanSubject(ctx context.Context, userID, ip string) ([]models.SecurityAnomaly, error) {
	if userID == "" && ip == "" {
		return nil, nil
	}
	return d.scan(ctx, scope{userID: userID, ip: ip})
}

func (d *Detector) scan(ctx context.Context, sc scope) ([]models.SecurityAnomaly, error) {
	start := time.Now()
	now := d.source.Now()
	findings, skipped, err := d.evaluate(ctx, now, sc)
	d.skipped.Add(int64(skipped))
	d.metrics.AddRecordsSkipped(skipped)
	if err != nil {
		return nil, fmt.Errorf("anomaly scan: %w", err)
	}

	var raised []models.SecurityAnomaly
	for _, f := range findings {
		if !d.claim(f, now) {
			continue
		}
		a, err := d.raise(ctx, f, now)
		if err != nil {
			return raised, fmt.Errorf("record anomaly: %w", err)
		}
		raised = append(raised, a)
	}
	if sc.all() {
		d.metrics.ObserveScanDuration(time.Since(start).Seconds())
	}
	return raised, nil
}

// claim marks (rule, subject) as fired unless it already fired within the
// rule's window.
func (d *Detector) claim(f finding, now time.Time) bool {
	key := string(f.kind) + "|" + f.subject()
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.fired.Get(key); ok && now.Sub(last) < f.window {
		return false
	}
	d.fired.Add(key, now)
	return true
}

func (d *Detector) raise(ctx context.Context, f finding, now time.Time) (models.SecurityAnomaly, error) {
	level := models.LevelForConfidence(f.confidence)
	a := models.SecurityAnomaly{
		ID:                    uuid.NewString(),
		DetectedAt:            now,
		Type:                  f.kind,
		Confidence:            f.confidence,
		Level:                 level,
		AffectedUser:          f.user,
		AffectedResource:      f.resource,
		EvidenceEventIDs:      f.evidence,
		RecommendedMitigation: mitigations[f.kind],
	}

	event := models.SecurityEvent{
		Kind:    models.KindAnomaly,
		Level:   level,
		UserID:  f.user,
		Action:  string(f.kind),
		Success: false,
		Metadata: map[string]any{
			"anomaly_id":     a.ID,
			"anomaly_type":   string(f.kind),
			"confidence":     f.confidence,
			"evidence_count": len(f.evidence),
		},
	}
	if f.kind == models.AnomalySuspiciousIP {
		event.SourceIP = f.resource
	}
	id, err := d.source.Append(ctx, event)
	if err != nil {
		return a, err
	}
	a.EventID = id

	d.mu.Lock()
	d.recent = append(d.recent, a)
	if len(d.recent) > defaultRecentSize {
		d.recent = d.recent[len(d.recent)-defaultRecentSize:]
	}
	d.mu.Unlock()
	d.detected.Add(1)
	d.metrics.IncAnomaly(string(f.kind), level.String())

	d.logger.Warn("anomaly_detected",
		"anomaly_id", a.ID,
		"anomaly_type", string(a.Type),
		"level", level.String(),
		"confidence", a.Confidence,
		"affected_user", a.AffectedUser,
		"affected_resource", displaySubject(a),
		"evidence_count", len(a.EvidenceEventIDs),
	)

	if level >= models.LevelHigh && d.alerter != nil {
		d.alerter.Dispatch(models.Alert{
			Severity: level,
			Subject:  fmt.Sprintf("[%s] %s detected for %s", level, a.Type, displaySubject(a)),
			Body: fmt.Sprintf("confidence %s over %d records. %s",
				strconv.FormatFloat(a.Confidence, 'f', 2, 64), len(a.EvidenceEventIDs), a.RecommendedMitigation),
			EventID: a.EventID,
		})
	}
	return a, nil
}

// displaySubject anonymizes IP subjects for logs and outbound alerts.
func displaySubject(a models.SecurityAnomaly) string {
	if a.Type == models.AnomalySuspiciousIP {
		return privacy.AnonymizeIP(a.AffectedResource)
	}
	if a.AffectedUser != "" {
		return a.AffectedUser
	}
	return a.AffectedResource
}

// Recent returns up to n of the latest anomalies, newest first.
func (d *Detector) Recent(n int) []models.SecurityAnomaly {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n <= 0 || n > len(d.recent) {
		n = len(d.recent)
	}
	out := make([]models.SecurityAnomaly, 0, n)
	for i := len(d.recent) - 1; i >= len(d.recent)-n; i-- {
		out = append(out, d.recent[i])
	}
	return out
}

// Diagnostics reports detector counters.
type Diagnostics struct {
	Detected int64
	Skipped  int64
}

func (d *Detector) Diagnostics() Diagnostics {
	return Diagnostics{Detected: d.detected.Load(), Skipped: d.skipped.Load()}
}

// Run scans on a ticker until ctx is cancelled.
func (d *Detector) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			raised, err := d.Scan(ctx)
			duration := time.Since(start)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				d.logger.Error("anomaly_scan_failed",
					"error", err,
					"duration_ms", duration.Milliseconds(),
				)
				continue
			}
			d.logger.Info("anomaly_scan_completed",
				"anomalies", len(raised),
				"skipped_total", d.skipped.Load(),
				"duration_ms", duration.Milliseconds(),
			)
		case <-ctx.Done():
			d.logger.Info("anomaly detector stopping", "reason", ctx.Err())
			return nil
		}
	}
}
