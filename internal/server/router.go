// Package server assembles the HTTP router: middleware chain, security routes,
// health probes and the metrics endpoint.
package server

import (
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"warden/internal/platform/health"
	"warden/internal/security/handler"
	"warden/pkg/platform/middleware/metadata"
	"warden/pkg/platform/middleware/request"
)

const defaultMaxBodyBytes = 1 << 20

type Deps struct {
	Service        handler.Service
	Health         *health.Handler
	Logger         *slog.Logger
	TrustedProxies []netip.Prefix
	MaxBodyBytes   int64
	// Metrics enables the /metrics endpoint and request latency histograms.
	Metrics bool
}

func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := d.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(metadata.NewMiddleware(metadata.Config{TrustedProxies: d.TrustedProxies}).Handler)
	r.Use(request.Logger(logger))
	r.Use(request.ContentTypeJSON)
	r.Use(request.BodyLimit(maxBody))
	if d.Metrics {
		r.Use(request.LatencyMiddleware(request.NewMetrics()))
		r.Handle("/metrics", promhttp.Handler())
	}

	if d.Health != nil {
		d.Health.Register(r)
	}
	handler.New(d.Service, logger).Register(r)
	return r
}
