package request

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

// NewMetrics returns the process-wide HTTP metrics.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "warden_http_request_duration_seconds",
				Help:    "Latency of HTTP endpoints in seconds",
				Buckets: prometheus.DefBuckets,
			}, []string{"method", "route"}),
			RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "warden_http_requests_total",
				Help: "HTTP requests by route and status code",
			}, []string{"method", "route", "status"}),
		}
	})
	return metricsInstance
}

func (m *Metrics) ObserveRequest(method, route string, status int, durationSeconds float64) {
	m.RequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
