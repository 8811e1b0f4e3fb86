package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the security monitor. All methods are
// safe on a nil receiver so components can run without instrumentation.
type Metrics struct {
	EventsIngested      *prometheus.CounterVec
	RateLimited         prometheus.Counter
	PendingDepth        prometheus.Gauge
	RetryQueueDepth     prometheus.Gauge
	FlushBatches        *prometheus.CounterVec
	FlushRetries        prometheus.Counter
	FlushDropped        prometheus.Counter
	FlushDuration       prometheus.Histogram
	AnomaliesDetected   *prometheus.CounterVec
	RecordsSkipped      prometheus.Counter
	ScanDuration        prometheus.Histogram
	Alerts              *prometheus.CounterVec
	RetentionPurged     *prometheus.CounterVec
	RetentionRuns       *prometheus.CounterVec
	ComplianceReports   *prometheus.CounterVec
	ComplianceViolation *prometheus.CounterVec
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

// New returns the singleton Metrics instance. Safe to call multiple times;
// metrics are only registered once.
func New() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			EventsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "warden_security_events_ingested_total",
				Help: "Total number of security events accepted by the store",
			}, []string{"kind"}),
			RateLimited: promauto.NewCounter(prometheus.CounterOpts{
				Name: "warden_security_rate_limited_total",
				Help: "Total number of ingestion calls rejected by the rate limiter",
			}),
			PendingDepth: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "warden_security_pending_records",
				Help: "Current number of records waiting to be flushed to the log sink",
			}),
			RetryQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "warden_security_retry_queue_batches",
				Help: "Current number of failed batches waiting for the next flush cycle",
			}),
			FlushBatches: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "warden_security_flush_batches_total",
				Help: "Total number of batches submitted to the log sink",
			}, []string{"stream", "status"}),
			FlushRetries: promauto.NewCounter(prometheus.CounterOpts{
				Name: "warden_security_flush_retries_total",
				Help: "Total number of retried batch submissions",
			}),
			FlushDropped: promauto.NewCounter(prometheus.CounterOpts{
				Name: "warden_security_flush_dropped_records_total",
				Help: "Total number of records dropped after the retry queue overflowed",
			}),
			FlushDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "warden_security_flush_duration_seconds",
				Help:    "Time taken by one flush cycle",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			}),
			AnomaliesDetected: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "warden_security_anomalies_detected_total",
				Help: "Total number of anomalies raised by the detector",
			}, []string{"type", "level"}),
			RecordsSkipped: promauto.NewCounter(prometheus.CounterOpts{
				Name: "warden_security_anomaly_records_skipped_total",
				Help: "Total number of records the detector could not correlate",
			}),
			ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "warden_security_anomaly_scan_duration_seconds",
				Help:    "Time taken by one anomaly scan",
				Buckets: prometheus.DefBuckets,
			}),
			Alerts: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "warden_security_alerts_total",
				Help: "Total number of alerts by delivery outcome",
			}, []string{"status"}),
			RetentionPurged: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "warden_security_retention_purged_total",
				Help: "Total number of entries removed by the retention worker",
			}, []string{"kind"}),
			RetentionRuns: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "warden_security_retention_runs_total",
				Help: "Total number of retention sweeps",
			}, []string{"status"}),
			ComplianceReports: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "warden_security_compliance_reports_total",
				Help: "Total number of compliance reports generated",
			}, []string{"framework"}),
			ComplianceViolation: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "warden_security_compliance_violations_total",
				Help: "Total number of violations found across generated reports",
			}, []string{"framework", "rule"}),
		}
	})
	return metricsInstance
}

func (m *Metrics) IncEventsIngested(kind string) {
	if m == nil {
		return
	}
	m.EventsIngested.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}

// SetPendingDepth sets the current pending buffer size.
func (m *Metrics) SetPendingDepth(depth int) {
	if m == nil {
		return
	}
	m.PendingDepth.Set(float64(depth))
}

func (m *Metrics) SetRetryQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.RetryQueueDepth.Set(float64(depth))
}

// IncFlushBatch counts a batch submission; status is "success" or "failed".
func (m *Metrics) IncFlushBatch(stream, status string) {
	if m == nil {
		return
	}
	m.FlushBatches.WithLabelValues(stream, status).Inc()
}

func (m *Metrics) IncFlushRetries() {
	if m == nil {
		return
	}
	m.FlushRetries.Inc()
}

func (m *Metrics) AddFlushDropped(records int) {
	if m == nil {
		return
	}
	m.FlushDropped.Add(float64(records))
}

func (m *Metrics) ObserveFlushDuration(durationSeconds float64) {
	if m == nil {
		return
	}
	m.FlushDuration.Observe(durationSeconds)
}

func (m *Metrics) IncAnomaly(anomalyType, level string) {
	if m == nil {
		return
	}
	m.AnomaliesDetected.WithLabelValues(anomalyType, level).Inc()
}

func (m *Metrics) AddRecordsSkipped(n int) {
	if m == nil || n == 0 {
		return
	}
	m.RecordsSkipped.Add(float64(n))
}

func (m *Metrics) ObserveScanDuration(durationSeconds float64) {
	if m == nil {
		return
	}
	m.ScanDuration.Observe(durationSeconds)
}

// IncAlert counts an alert outcome: sent, failed, dropped or skipped.
func (m *Metrics) IncAlert(status string) {
	if m == nil {
		return
	}
	m.Alerts.WithLabelValues(status).Inc()
}

func (m *Metrics) AddRetentionPurged(kind string, n int) {
	if m == nil {
		return
	}
	m.RetentionPurged.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) IncRetentionRuns(status string) {
	if m == nil {
		return
	}
	m.RetentionRuns.WithLabelValues(status).Inc()
}

func (m *Metrics) IncComplianceReport(framework string) {
	if m == nil {
		return
	}
	m.ComplianceReports.WithLabelValues(framework).Inc()
}

func (m *Metrics) IncComplianceViolation(framework, rule string) {
	if m == nil {
		return
	}
	m.ComplianceViolation.WithLabelValues(framework, rule).Inc()
}
