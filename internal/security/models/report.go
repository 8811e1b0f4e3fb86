package models

import "time"

// Violation is one failed rule check with the records that evidence it.
type Violation struct {
	Rule        string    `json:"rule"`
	Description string    `json:"description"`
	EvidenceIDs []string  `json:"evidence_ids"`
	Severity    Level     `json:"severity"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// ComplianceReport scores a half-open period [PeriodStart, PeriodEnd) against
// one framework. Reports are built on demand and never stored by the monitor.
type ComplianceReport struct {
	ID               string      `json:"id"`
	Framework        Framework   `json:"framework"`
	PeriodStart      time.Time   `json:"period_start"`
	PeriodEnd        time.Time   `json:"period_end"`
	GeneratedAt      time.Time   `json:"generated_at"`
	TotalEvents      int         `json:"total_events"`
	TotalAuditTrails int         `json:"total_audit_trails"`
	Violations       []Violation `json:"violations"`
	ComplianceScore  float64     `json:"compliance_score"`
	Recommendations  []string    `json:"recommendations"`
}

// SeverityWeight is the score penalty of a violation at the given severity.
func SeverityWeight(l Level) float64 {
	switch l {
	case LevelCritical:
		return 3
	case LevelHigh:
		return 2
	case LevelMedium:
		return 1
	case LevelLow:
		return 0.5
	}
	return 0
}

// SecuritySummary is a point-in-time overview of the in-memory window.
type SecuritySummary struct {
	GeneratedAt           time.Time         `json:"generated_at"`
	TotalEvents           int               `json:"total_events"`
	TotalAuditTrails      int               `json:"total_audit_trails"`
	EventsByKind          map[EventKind]int `json:"events_by_kind"`
	HighSeverityEvents    int               `json:"high_severity_events"`
	FailedAuthentications int               `json:"failed_authentications"`
	DataAccessEvents      int               `json:"data_access_events"`
	RecentAnomalies       []SecurityAnomaly `json:"recent_anomalies"`
	PendingFlush          int               `json:"pending_flush"`
}
