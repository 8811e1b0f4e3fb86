package monitor

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"warden/internal/security/audittrail"
	"warden/internal/security/models"
	"warden/pkg/validation"
)

// DetectAnomalies runs every detection rule over the in-memory window and
// returns the anomalies raised by this call.
func (m *Monitor) DetectAnomalies(ctx context.Context) ([]models.SecurityAnomaly, error) {
	ctx, end := m.startSpan(ctx, "security.detect_anomalies")
	raised, err := m.detector.Scan(ctx)
	end(err)
	return raised, err
}

// RecentAnomalies returns up to n of the latest anomalies, newest first.
func (m *Monitor) RecentAnomalies(n int) []models.SecurityAnomaly {
	return m.detector.Recent(n)
}

// GenerateComplianceReport scores [start, end) against framework.
func (m *Monitor) GenerateComplianceReport(ctx context.Context, framework string, start, end time.Time) (*models.ComplianceReport, error) {
	ctx, endSpan := m.startSpan(ctx, "security.compliance_report",
		attribute.String("security.framework", framework))
	report, err := m.reporter.Generate(ctx, models.Framework(framework), start, end)
	endSpan(err)
	return report, err
}

// QueryEvents returns matching events in timestamp order.
func (m *Monitor) QueryEvents(ctx context.Context, q EventQuery) ([]models.SecurityEvent, error) {
	if err := validation.Validate(q); err != nil {
		return nil, err
	}
	f := models.EventFilter{
		UserID:   q.UserID,
		SourceIP: q.SourceIP,
		Resource: q.Resource,
		Success:  q.Success,
		Since:    q.Since,
		Until:    q.Until,
		Limit:    q.Limit,
	}
	for _, k := range q.Kinds {
		f.Kinds = append(f.Kinds, models.EventKind(k))
	}
	if q.MinLevel != "" {
		f.MinLevel, _ = models.ParseLevel(q.MinLevel)
	}
	return m.store.Query(ctx, f)
}

// QueryAuditTrails returns matching audit trails in timestamp order.
func (m *Monitor) QueryAuditTrails(ctx context.Context, q AuditQuery) ([]models.AuditTrail, error) {
	if err := validation.Validate(q); err != nil {
		return nil, err
	}
	return m.store.QueryAudits(ctx, models.AuditFilter{
		UserID:       q.UserID,
		Resource:     q.Resource,
		ResourceType: q.ResourceType,
		Action:       q.Action,
		Since:        q.Since,
		Until:        q.Until,
		Limit:        q.Limit,
	})
}

// VerifyAuditTrails checks the hash chain of every audit trail still held in
// memory.
func (m *Monitor) VerifyAuditTrails(ctx context.Context) error {
	trails, err := m.store.QueryAudits(ctx, models.AuditFilter{})
	if err != nil {
		return err
	}
	return audittrail.Verify(trails)
}

const summaryAnomalies = 10

// SecuritySummary describes the current in-memory window.
func (m *Monitor) SecuritySummary(ctx context.Context) (*models.SecuritySummary, error) {
	events, err := m.store.Query(ctx, models.EventFilter{})
	if err != nil {
		return nil, err
	}
	stats := m.store.Stats()
	summary := &models.SecuritySummary{
		GeneratedAt:      m.now(),
		TotalEvents:      len(events),
		TotalAuditTrails: stats.Audits,
		EventsByKind:     make(map[models.EventKind]int),
		RecentAnomalies:  m.detector.Recent(summaryAnomalies),
		PendingFlush:     stats.Pending,
	}
	for _, e := range events {
		summary.EventsByKind[e.Kind]++
		if e.Level >= models.LevelHigh {
			summary.HighSeverityEvents++
		}
		switch {
		case e.Kind == models.KindAuthentication && !e.Success:
			summary.FailedAuthentications++
		case e.Kind == models.KindDataAccess:
			summary.DataAccessEvents++
		}
	}
	return summary, nil
}
