package models

import "time"

// RecordType tells the sink which sequence a log record came from.
type RecordType string

const (
	RecordSecurityEvent RecordType = "security_event"
	RecordAuditTrail    RecordType = "audit_trail"
)

// LogRecord is the structured, timestamped entry handed to the log sink.
// Exactly one of Event and Audit is set.
type LogRecord struct {
	ID        string         `json:"id"`
	Type      RecordType     `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Event     *SecurityEvent `json:"event,omitempty"`
	Audit     *AuditTrail    `json:"audit,omitempty"`
}

// EventRecord wraps a stored event for the sink.
func EventRecord(e SecurityEvent) LogRecord {
	c := e.Clone()
	return LogRecord{ID: c.ID, Type: RecordSecurityEvent, Timestamp: c.Timestamp, Event: &c}
}

// AuditRecord wraps a stored audit trail for the sink.
func AuditRecord(a AuditTrail) LogRecord {
	c := a.Clone()
	return LogRecord{ID: c.ID, Type: RecordAuditTrail, Timestamp: c.Timestamp, Audit: &c}
}
