// Package compliance scores a time period against one regulatory framework.
// Reports are computed from the event store on demand and are read-only.
package compliance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"warden/internal/security/metrics"
	"warden/internal/security/models"
	dErrors "warden/pkg/domain-errors"
)

// Source is the read side of the event store.
type Source interface {
	Query(ctx context.Context, f models.EventFilter) ([]models.SecurityEvent, error)
	QueryAudits(ctx context.Context, f models.AuditFilter) ([]models.AuditTrail, error)
	Now() time.Time
}

// Config holds rule parameters.
type Config struct {
	// AuthLookback is how far before an authorization a successful login
	// must exist.
	AuthLookback time.Duration
	// AlertAuditWindow is how soon after a critical alert an audit trail
	// must reference it.
	AlertAuditWindow time.Duration
	// PHIAuditWindow pairs PHI access with audit trails when sessions are
	// unknown.
	PHIAuditWindow time.Duration
	// GDPRRetention is the longest personal-data events may be held.
	GDPRRetention time.Duration
}

func DefaultConfig() Config {
	return Config{
		AuthLookback:     8 * time.Hour,
		AlertAuditWindow: time.Hour,
		PHIAuditWindow:   time.Hour,
		GDPRRetention:    30 * 24 * time.Hour,
	}
}

type Reporter struct {
	source  Source
	cfg     Config
	metrics *metrics.Metrics
}

type Option func(*Reporter)

func WithConfig(cfg Config) Option {
	return func(r *Reporter) {
		r.cfg = cfg
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reporter) {
		r.metrics = m
	}
}

func New(source Source, opts ...Option) *Reporter {
	r := &Reporter{source: source, cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// period is the evaluation input shared by every rule of one report.
type period struct {
	start, end, now time.Time
	events          []models.SecurityEvent
	audits          []models.AuditTrail
}

type rule struct {
	name           string
	severity       models.Level
	recommendation string
	check          func(ctx context.Context, p *period) ([]models.Violation, error)
}

func (r *Reporter) rules(f models.Framework) []rule {
	switch f {
	case models.FrameworkSOC2:
		return []rule{
			{"orphaned_authorization", models.LevelHigh,
				"Require an authenticated session before any authorization decision and investigate authorizations without a preceding login.",
				r.orphanedAuthorization},
			{"unaudited_critical_alert", models.LevelHigh,
				"Record an audit trail for every critical alert within one hour, referencing the alert event.",
				r.unauditedCriticalAlert},
			{"insufficient_logging", models.LevelLow,
				"Include a failure reason in every authentication failure event.",
				r.insufficientLogging},
		}
	case models.FrameworkGDPR:
		return []rule{
			{"missing_consent", models.LevelHigh,
				"Verify and record data subject consent before accessing personal data.",
				r.missingConsent},
			{"retention_exceeded", models.LevelMedium,
				"Purge or anonymize personal data events older than the retention policy.",
				r.retentionExceeded},
		}
	case models.FrameworkHIPAA:
		return []rule{
			{"unaudited_phi_access", models.LevelHigh,
				"Create an audit trail for every access to protected health information.",
				r.unauditedPHIAccess},
		}
	case models.FrameworkISO27001:
		return []rule{
			{"unmitigated_critical_event", models.LevelCritical,
				"Document the response to every critical security event in an audit trail.",
				r.unmitigatedCriticalEvent},
		}
	}
	return nil
}

// Generate builds the report for framework over [start, end).
func (r *Reporter) Generate(ctx context.Context, framework models.Framework, start, end time.Time) (*models.ComplianceReport, error) {
	framework, ok := models.ParseFramework(string(framework))
	if !ok {
		return nil, dErrors.Validation("framework", "unsupported compliance framework")
	}
	if !start.Before(end) {
		return nil, dErrors.Validation("period", "start must be before end")
	}

	events, err := r.source.Query(ctx, models.EventFilter{Framework: framework, Since: start, Until: end})
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	audits, err := r.source.QueryAudits(ctx, models.AuditFilter{Framework: framework, Since: start, Until: end})
	if err != nil {
		return nil, fmt.Errorf("query audit trails: %w", err)
	}
	p := &period{start: start, end: end, now: r.source.Now(), events: events, audits: audits}

	report := &models.ComplianceReport{
		ID:               uuid.NewString(),
		Framework:        framework,
		PeriodStart:      start,
		PeriodEnd:        end,
		GeneratedAt:      p.now,
		TotalEvents:      len(events),
		TotalAuditTrails: len(audits),
		Violations:       []models.Violation{},
		Recommendations:  []string{},
	}

	penalty := 0.0
	for _, rl := range r.rules(framework) {
		found, err := rl.check(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rl.name, err)
		}
		if len(found) == 0 {
			continue
		}
		for i := range found {
			found[i].Rule = rl.name
			found[i].Severity = rl.severity
			penalty += models.SeverityWeight(rl.severity)
			r.metrics.IncComplianceViolation(string(framework), rl.name)
		}
		report.Violations = append(report.Violations, found...)
		report.Recommendations = append(report.Recommendations, rl.recommendation)
	}

	relevant := max(1, len(events)+len(audits))
	report.ComplianceScore = max(0, min(1, 1-penalty/float64(relevant)))
	r.metrics.IncComplianceReport(string(framework))
	return report, nil
}

func violation(e models.SecurityEvent, format string, args ...any) models.Violation {
	return models.Violation{
		Description: fmt.Sprintf(format, args...),
		EvidenceIDs: []string{e.ID},
		OccurredAt:  e.Timestamp,
	}
}
