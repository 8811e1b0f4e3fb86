// Package handler exposes the security monitor over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"warden/internal/security/models"
	"warden/internal/security/monitor"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/httputil"
	"warden/pkg/requestcontext"
)

// Service is the part of the monitor served over HTTP.
type Service interface {
	LogAuthenticationEvent(ctx context.Context, req monitor.AuthenticationRequest) (string, error)
	LogAuthorizationEvent(ctx context.Context, req monitor.AuthorizationRequest) (string, error)
	LogDataAccessEvent(ctx context.Context, req monitor.DataAccessRequest) (string, error)
	LogSecurityAlert(ctx context.Context, req monitor.SecurityAlertRequest) (string, error)
	CreateAuditTrail(ctx context.Context, req monitor.AuditTrailRequest) (string, error)
	QueryEvents(ctx context.Context, q monitor.EventQuery) ([]models.SecurityEvent, error)
	QueryAuditTrails(ctx context.Context, q monitor.AuditQuery) ([]models.AuditTrail, error)
	VerifyAuditTrails(ctx context.Context) error
	DetectAnomalies(ctx context.Context) ([]models.SecurityAnomaly, error)
	RecentAnomalies(n int) []models.SecurityAnomaly
	GenerateComplianceReport(ctx context.Context, framework string, start, end time.Time) (*models.ComplianceReport, error)
	SecuritySummary(ctx context.Context) (*models.SecuritySummary, error)
}

const (
	defaultAnomalyLimit = 20
	defaultReportPeriod = 24 * time.Hour
)

type Handler struct {
	svc    Service
	logger *slog.Logger
	now    func() time.Time
}

func New(svc Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger, now: time.Now}
}

// Register mounts the security routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/security", func(r chi.Router) {
		r.Post("/events/authentication", h.HandleAuthentication)
		r.Post("/events/authorization", h.HandleAuthorization)
		r.Post("/events/data-access", h.HandleDataAccess)
		r.Post("/alerts", h.HandleAlert)
		r.Get("/events", h.HandleQueryEvents)

		r.Post("/audit-trails", h.HandleCreateAuditTrail)
		r.Get("/audit-trails", h.HandleQueryAuditTrails)
		r.Get("/audit-trails/verify", h.HandleVerifyAuditTrails)

		r.Get("/anomalies", h.HandleRecentAnomalies)
		r.Post("/anomalies/scan", h.HandleScan)
		r.Get("/compliance/{framework}", h.HandleComplianceReport)
		r.Get("/summary", h.HandleSummary)
	})
}

type createdResponse struct {
	ID string `json:"id"`
}

// HandleAuthentication implements POST /security/events/authentication.
func (h *Handler) HandleAuthentication(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[monitor.AuthenticationRequest](w, r, h.logger)
	if !ok {
		return
	}
	fillClient(r.Context(), &req.SourceIP, &req.UserAgent)
	h.created(w, r, "authentication")(h.svc.LogAuthenticationEvent(r.Context(), *req))
}

// HandleAuthorization implements POST /security/events/authorization.
func (h *Handler) HandleAuthorization(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[monitor.AuthorizationRequest](w, r, h.logger)
	if !ok {
		return
	}
	fillClient(r.Context(), &req.SourceIP, &req.UserAgent)
	h.created(w, r, "authorization")(h.svc.LogAuthorizationEvent(r.Context(), *req))
}

// HandleDataAccess implements POST /security/events/data-access.
func (h *Handler) HandleDataAccess(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[monitor.DataAccessRequest](w, r, h.logger)
	if !ok {
		return
	}
	fillClient(r.Context(), &req.SourceIP, &req.UserAgent)
	h.created(w, r, "data_access")(h.svc.LogDataAccessEvent(r.Context(), *req))
}

// HandleAlert implements POST /security/alerts. The source IP is never
// inferred: an alert is usually raised by a service, not the offending client.
func (h *Handler) HandleAlert(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[monitor.SecurityAlertRequest](w, r, h.logger)
	if !ok {
		return
	}
	h.created(w, r, "alert")(h.svc.LogSecurityAlert(r.Context(), *req))
}

// HandleCreateAuditTrail implements POST /security/audit-trails.
func (h *Handler) HandleCreateAuditTrail(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[monitor.AuditTrailRequest](w, r, h.logger)
	if !ok {
		return
	}
	var ua string
	fillClient(r.Context(), &req.SourceIP, &ua)
	h.created(w, r, "audit_trail")(h.svc.CreateAuditTrail(r.Context(), *req))
}

// created returns a completion func for the (id, err) result of an ingest
// call.
func (h *Handler) created(w http.ResponseWriter, r *http.Request, kind string) func(string, error) {
	return func(id string, err error) {
		if err != nil {
			h.fail(w, r, "security ingest rejected", err, "kind", kind)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, createdResponse{ID: id})
	}
}

// HandleQueryEvents implements GET /security/events.
func (h *Handler) HandleQueryEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := monitor.EventQuery{
		UserID:   q.Get("user_id"),
		SourceIP: q.Get("source_ip"),
		Resource: q.Get("resource"),
		Kinds:    q["kind"],
		MinLevel: q.Get("min_level"),
	}
	var err error
	if query.Since, err = parseTime(q, "since"); err == nil {
		if query.Until, err = parseTime(q, "until"); err == nil {
			if query.Limit, err = parseInt(q, "limit"); err == nil {
				query.Success, err = parseBool(q, "success")
			}
		}
	}
	if err != nil {
		h.fail(w, r, "invalid event query", err)
		return
	}
	events, err := h.svc.QueryEvents(r.Context(), query)
	if err != nil {
		h.fail(w, r, "event query failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": nonNil(events), "count": len(events)})
}

// HandleQueryAuditTrails implements GET /security/audit-trails.
func (h *Handler) HandleQueryAuditTrails(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := monitor.AuditQuery{
		UserID:       q.Get("user_id"),
		Resource:     q.Get("resource"),
		ResourceType: q.Get("resource_type"),
		Action:       q.Get("action"),
	}
	var err error
	if query.Since, err = parseTime(q, "since"); err == nil {
		if query.Until, err = parseTime(q, "until"); err == nil {
			query.Limit, err = parseInt(q, "limit")
		}
	}
	if err != nil {
		h.fail(w, r, "invalid audit query", err)
		return
	}
	trails, err := h.svc.QueryAuditTrails(r.Context(), query)
	if err != nil {
		h.fail(w, r, "audit query failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"audit_trails": nonNil(trails), "count": len(trails)})
}

// HandleVerifyAuditTrails implements GET /security/audit-trails/verify.
func (h *Handler) HandleVerifyAuditTrails(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.VerifyAuditTrails(r.Context()); err != nil {
		h.fail(w, r, "audit chain verification failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// HandleRecentAnomalies implements GET /security/anomalies.
func (h *Handler) HandleRecentAnomalies(w http.ResponseWriter, r *http.Request) {
	limit, err := parseInt(r.URL.Query(), "limit")
	if err != nil {
		h.fail(w, r, "invalid anomaly query", err)
		return
	}
	if limit == 0 {
		limit = defaultAnomalyLimit
	}
	anomalies := h.svc.RecentAnomalies(limit)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"anomalies": nonNil(anomalies), "count": len(anomalies)})
}

// HandleScan implements POST /security/anomalies/scan.
func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	raised, err := h.svc.DetectAnomalies(r.Context())
	if err != nil {
		h.fail(w, r, "anomaly scan failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"anomalies": nonNil(raised), "count": len(raised)})
}

// HandleComplianceReport implements GET /security/compliance/{framework}.
// The period defaults to the 24 hours before end, and end to now.
func (h *Handler) HandleComplianceReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	end, err := parseTime(q, "end")
	if err != nil {
		h.fail(w, r, "invalid compliance query", err)
		return
	}
	if end.IsZero() {
		end = h.now()
	}
	start, err := parseTime(q, "start")
	if err != nil {
		h.fail(w, r, "invalid compliance query", err)
		return
	}
	if start.IsZero() {
		start = end.Add(-defaultReportPeriod)
	}

	report, err := h.svc.GenerateComplianceReport(r.Context(), chi.URLParam(r, "framework"), start, end)
	if err != nil {
		h.fail(w, r, "compliance report failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleSummary implements GET /security/summary.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.SecuritySummary(r.Context())
	if err != nil {
		h.fail(w, r, "security summary failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error, attrs ...any) {
	ctx := r.Context()
	attrs = append(attrs, "error", err, "request_id", requestcontext.RequestID(ctx))
	if status := httputil.DomainCodeToHTTPStatus(codeOf(err)); status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}

func codeOf(err error) dErrors.Code {
	var e *dErrors.Error
	if errors.As(err, &e) {
		return e.Code
	}
	return dErrors.CodeInternal
}

// fillClient defaults the IP and user agent to what the middleware resolved.
func fillClient(ctx context.Context, ip, ua *string) {
	if *ip == "" {
		*ip = requestcontext.ClientIP(ctx)
	}
	if *ua == "" {
		*ua = requestcontext.UserAgent(ctx)
	}
}

func parseTime(q url.Values, key string) (time.Time, error) {
	v := q.Get(key)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, dErrors.Validation(key, "must be an RFC 3339 timestamp")
	}
	return t, nil
}

func parseInt(q url.Values, key string) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, dErrors.Validation(key, "must be a non-negative integer")
	}
	return n, nil
}

func parseBool(q url.Values, key string) (*bool, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, dErrors.Validation(key, "must be true or false")
	}
	return &b, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
