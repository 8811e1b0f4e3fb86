package models

import "time"

// AnomalyType names a detection rule.
type AnomalyType string

const (
	AnomalyExcessiveFailedAuth  AnomalyType = "EXCESSIVE_FAILED_AUTH"
	AnomalySuspiciousIP         AnomalyType = "SUSPICIOUS_IP"
	AnomalyPrivilegeEscalation  AnomalyType = "PRIVILEGE_ESCALATION"
	AnomalyUnusualAccessPattern AnomalyType = "UNUSUAL_ACCESS_PATTERN"
)

// SecurityAnomaly is created only by the detector and never mutated.
type SecurityAnomaly struct {
	ID                    string      `json:"id"`
	DetectedAt            time.Time   `json:"detected_at"`
	Type                  AnomalyType `json:"anomaly_type"`
	Confidence            float64     `json:"confidence"`
	Level                 Level       `json:"level"`
	AffectedUser          string      `json:"affected_user,omitempty"`
	AffectedResource      string      `json:"affected_resource,omitempty"`
	EvidenceEventIDs      []string    `json:"evidence_event_ids"`
	RecommendedMitigation string      `json:"recommended_mitigation"`
	// EventID is the ANOMALY event written to the timeline for this anomaly.
	EventID string `json:"event_id,omitempty"`
}

// Alert is a notification handed to the alert channel.
type Alert struct {
	Severity Level
	Subject  string
	Body     string
	// EventID links the alert back to the timeline.
	EventID string
}
