package monitor

import (
	"context"
	"maps"
	"strings"

	"github.com/mssola/useragent"
	"go.opentelemetry.io/otel/attribute"

	"warden/internal/platform/privacy"
	"warden/internal/security/audittrail"
	"warden/internal/security/models"
	"warden/internal/security/sanitize"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/validation"
)

// LogAuthenticationEvent records a login attempt. Failures trigger an
// immediate anomaly scan of the user and source IP.
func (m *Monitor) LogAuthenticationEvent(ctx context.Context, req AuthenticationRequest) (string, error) {
	ctx, end := m.startSpan(ctx, "security.log_authentication",
		attribute.Bool("security.success", req.Success))
	id, err := m.logAuthentication(ctx, req)
	end(err)
	return id, err
}

func (m *Monitor) logAuthentication(ctx context.Context, req AuthenticationRequest) (string, error) {
	if err := validation.Validate(req); err != nil {
		return "", err
	}
	if err := m.admit(ctx, req.UserID, req.SourceIP); err != nil {
		return "", err
	}

	level := models.LevelLow
	meta := maps.Clone(req.Metadata)
	if !req.Success {
		level = models.LevelMedium
		meta = withMeta(meta, "reason", req.FailureReason)
	}
	meta = withMeta(meta, "method", req.Method)

	id, err := m.store.Append(ctx, models.SecurityEvent{
		Kind:      models.KindAuthentication,
		Level:     level,
		UserID:    req.UserID,
		UserEmail: req.UserEmail,
		SourceIP:  req.SourceIP,
		UserAgent: req.UserAgent,
		Action:    "login",
		Success:   req.Success,
		Metadata:  enrichUserAgent(meta, req.UserAgent),
		SessionID: req.SessionID,
		TraceID:   traceID(ctx, req.TraceID),
	})
	if err != nil {
		return "", err
	}
	if !req.Success {
		m.scanSubject(ctx, id)
	}
	return id, nil
}

// LogAuthorizationEvent records an access-control decision. Privilege
// changes are logged at HIGH regardless of outcome.
func (m *Monitor) LogAuthorizationEvent(ctx context.Context, req AuthorizationRequest) (string, error) {
	ctx, end := m.startSpan(ctx, "security.log_authorization",
		attribute.Bool("security.granted", req.Granted))
	id, err := m.logAuthorization(ctx, req)
	end(err)
	return id, err
}

func (m *Monitor) logAuthorization(ctx context.Context, req AuthorizationRequest) (string, error) {
	if err := validation.Validate(req); err != nil {
		return "", err
	}
	if err := m.admit(ctx, req.UserID, req.SourceIP); err != nil {
		return "", err
	}

	level := models.LevelLow
	switch {
	case models.IsPrivilegeChange(req.Action, req.ResourceType):
		level = models.LevelHigh
	case !req.Granted:
		level = models.LevelMedium
	}
	meta := withMeta(maps.Clone(req.Metadata), "reason", req.Reason)

	return m.store.Append(ctx, models.SecurityEvent{
		Kind:         models.KindAuthorization,
		Level:        level,
		UserID:       req.UserID,
		SourceIP:     req.SourceIP,
		UserAgent:    req.UserAgent,
		Resource:     req.Resource,
		ResourceType: req.ResourceType,
		Action:       req.Action,
		Success:      req.Granted,
		Metadata:     enrichUserAgent(meta, req.UserAgent),
		SessionID:    req.SessionID,
		TraceID:      traceID(ctx, req.TraceID),
	})
}

// LogDataAccessEvent records access to a data resource and scans the user
// for unusual access patterns.
func (m *Monitor) LogDataAccessEvent(ctx context.Context, req DataAccessRequest) (string, error) {
	ctx, end := m.startSpan(ctx, "security.log_data_access",
		attribute.Bool("security.sensitive", req.Sensitive))
	id, err := m.logDataAccess(ctx, req)
	end(err)
	return id, err
}

func (m *Monitor) logDataAccess(ctx context.Context, req DataAccessRequest) (string, error) {
	if err := validation.Validate(req); err != nil {
		return "", err
	}
	if err := m.admit(ctx, req.UserID, req.SourceIP); err != nil {
		return "", err
	}

	action := req.Action
	if action == "" {
		action = "read"
	}
	class := strings.ToLower(req.DataClassification)
	sensitive := req.Sensitive || models.IsPersonalData(class) || models.IsPHI(class) ||
		models.IsPersonalData(req.ResourceType) || models.IsPHI(req.ResourceType)
	level := models.LevelLow
	if sensitive {
		level = models.LevelHigh
	}

	meta := maps.Clone(req.Metadata)
	if req.Sensitive {
		meta = withMeta(meta, "sensitive", true)
	}
	meta = withMeta(meta, "data_classification", class)
	if req.Consent != nil {
		meta = withMeta(meta, "consent", *req.Consent)
	}
	if req.RecordCount > 0 {
		meta = withMeta(meta, "record_count", req.RecordCount)
	}

	id, err := m.store.Append(ctx, models.SecurityEvent{
		Kind:         models.KindDataAccess,
		Level:        level,
		UserID:       req.UserID,
		SourceIP:     req.SourceIP,
		UserAgent:    req.UserAgent,
		Resource:     req.Resource,
		ResourceType: req.ResourceType,
		Action:       action,
		Success:      !req.Denied,
		Metadata:     enrichUserAgent(meta, req.UserAgent),
		SessionID:    req.SessionID,
		TraceID:      traceID(ctx, req.TraceID),
	})
	if err != nil {
		return "", err
	}
	m.scanSubject(ctx, id)
	return id, nil
}

// CreateAuditTrail records a hash-chained audit entry. Nothing is stored when
// validation fails.
func (m *Monitor) CreateAuditTrail(ctx context.Context, req AuditTrailRequest) (string, error) {
	ctx, end := m.startSpan(ctx, "security.create_audit_trail",
		attribute.String("security.action", req.Action))
	id, err := m.createAuditTrail(ctx, req)
	end(err)
	return id, err
}

func (m *Monitor) createAuditTrail(ctx context.Context, req AuditTrailRequest) (string, error) {
	if err := validation.Validate(req); err != nil {
		return "", err
	}
	if err := m.admit(ctx, req.UserID, req.SourceIP); err != nil {
		return "", err
	}
	return m.recorder.Record(ctx, audittrail.Entry{
		UserID:              req.UserID,
		Action:              req.Action,
		Resource:            req.Resource,
		ResourceType:        req.ResourceType,
		BeforeValue:         req.BeforeValue,
		AfterValue:          req.AfterValue,
		SourceIP:            req.SourceIP,
		SessionID:           req.SessionID,
		TraceID:             traceID(ctx, req.TraceID),
		RetentionPeriodDays: req.RetentionPeriodDays,
	})
}

// LogSecurityAlert records an ALERT event. HIGH and CRITICAL alerts are also
// pushed to the alert channel.
func (m *Monitor) LogSecurityAlert(ctx context.Context, req SecurityAlertRequest) (string, error) {
	ctx, end := m.startSpan(ctx, "security.log_alert",
		attribute.String("security.alert_type", req.AlertType),
		attribute.String("security.level", req.Level))
	id, err := m.logSecurityAlert(ctx, req)
	end(err)
	return id, err
}

func (m *Monitor) logSecurityAlert(ctx context.Context, req SecurityAlertRequest) (string, error) {
	if err := validation.Validate(req); err != nil {
		return "", err
	}
	if err := m.admit(ctx, req.UserID, req.SourceIP); err != nil {
		return "", err
	}
	level, _ := models.ParseLevel(req.Level)

	meta := maps.Clone(req.Metadata)
	meta = withMeta(meta, "alert_type", req.AlertType)
	meta = withMeta(meta, "description", req.Description)

	id, err := m.store.Append(ctx, models.SecurityEvent{
		Kind:     models.KindAlert,
		Level:    level,
		UserID:   req.UserID,
		SourceIP: req.SourceIP,
		Resource: req.Resource,
		Action:   req.AlertType,
		Success:  true,
		Metadata: meta,
		TraceID:  traceID(ctx, req.TraceID),
	})
	if err != nil {
		return "", err
	}
	if level >= models.LevelHigh {
		subject := req.AlertType
		if req.SourceIP != "" {
			subject += " from " + privacy.AnonymizeIP(req.SourceIP)
		}
		m.dispatcher.Dispatch(models.Alert{
			Severity: level,
			Subject:  subject,
			Body:     req.Description,
			EventID:  id,
		})
	}
	return id, nil
}

// admit applies the rate limits of the user and the source IP. The first
// rejection of an identifier is recorded as a single marker event; later
// rejections are only counted.
func (m *Monitor) admit(ctx context.Context, userID, ip string) error {
	for _, ident := range identifiers(userID, ip) {
		d := m.limiter.Allow(ident.key)
		if d.Allowed {
			continue
		}
		if d.FirstDenial {
			m.recordRateLimited(ctx, ident)
		}
		return dErrors.RateLimited(ident.key)
	}
	return nil
}

type identifier struct {
	key, userID, ip string
}

func identifiers(userID, ip string) []identifier {
	var out []identifier
	if userID = strings.TrimSpace(userID); userID != "" {
		out = append(out, identifier{key: "user:" + userID, userID: userID})
	}
	if ip = strings.TrimSpace(ip); ip != "" {
		if canonical, err := sanitize.IP(ip); err == nil {
			ip = canonical
		}
		out = append(out, identifier{key: "ip:" + ip, ip: ip})
	}
	return out
}

func (m *Monitor) recordRateLimited(ctx context.Context, ident identifier) {
	_, err := m.store.Append(ctx, models.SecurityEvent{
		Kind:     models.KindAlert,
		Level:    models.LevelMedium,
		UserID:   ident.userID,
		SourceIP: ident.ip,
		Action:   "rate_limit_exceeded",
		Success:  false,
		Metadata: map[string]any{
			"alert_type":  "rate_limit_exceeded",
			"description": "ingestion rate limit exceeded; further events are rejected until the window rolls over",
			"identifier":  ident.key,
		},
		TraceID: traceID(ctx, ""),
	})
	if err != nil {
		m.logger.WarnContext(ctx, "rate limit marker not recorded", "error", err)
		return
	}
	m.logger.WarnContext(ctx, "rate_limit_exceeded",
		"user_id", ident.userID,
		"source_ip", privacy.AnonymizeIP(ident.ip),
	)
}

// scanSubject runs detection inline for the subject of a stored event. The
// stored user id and IP are the sanitized ones the indexes hold. Failures
// never fail the caller.
func (m *Monitor) scanSubject(ctx context.Context, eventID string) {
	e, err := m.store.Get(eventID)
	if err != nil {
		m.logger.WarnContext(ctx, "inline anomaly scan skipped", "event_id", eventID, "error", err)
		return
	}
	if _, err := m.detector.ScanSubject(ctx, e.UserID, e.SourceIP); err != nil {
		m.logger.WarnContext(ctx, "inline anomaly scan failed", "user_id", e.UserID, "error", err)
	}
}

func withMeta(meta map[string]any, key string, value any) map[string]any {
	if s, ok := value.(string); ok && s == "" {
		return meta
	}
	if meta == nil {
		meta = make(map[string]any)
	}
	meta[key] = value
	return meta
}

// enrichUserAgent adds the parsed browser, OS and bot flag of ua.
func enrichUserAgent(meta map[string]any, ua string) map[string]any {
	if strings.TrimSpace(ua) == "" {
		return meta
	}
	parsed := useragent.New(ua)
	browser, version := parsed.Browser()
	if browser != "" {
		if major, _, _ := strings.Cut(version, "."); major != "" {
			browser += " " + major
		}
		meta = withMeta(meta, "ua_browser", browser)
	}
	meta = withMeta(meta, "ua_os", parsed.OS())
	return withMeta(meta, "ua_bot", parsed.Bot())
}
