package monitor

import "time"

// AuthenticationRequest describes a login attempt.
type AuthenticationRequest struct {
	UserID    string `json:"user_id" validate:"notblank,max=256"`
	UserEmail string `json:"user_email" validate:"omitempty,email,max=320"`
	SourceIP  string `json:"source_ip" validate:"omitempty,ip"`
	UserAgent string `json:"user_agent" validate:"max=1024"`
	// Method is the credential used, e.g. password, mfa, sso.
	Method        string         `json:"method" validate:"max=64"`
	Success       bool           `json:"success"`
	FailureReason string         `json:"failure_reason" validate:"max=256"`
	SessionID     string         `json:"session_id" validate:"max=128"`
	TraceID       string         `json:"trace_id" validate:"max=128"`
	Metadata      map[string]any `json:"metadata"`
}

// AuthorizationRequest describes an access-control decision.
type AuthorizationRequest struct {
	UserID       string         `json:"user_id" validate:"notblank,max=256"`
	SourceIP     string         `json:"source_ip" validate:"omitempty,ip"`
	UserAgent    string         `json:"user_agent" validate:"max=1024"`
	Resource     string         `json:"resource" validate:"notblank,max=500"`
	ResourceType string         `json:"resource_type" validate:"max=64"`
	Action       string         `json:"action" validate:"notblank,max=128"`
	Granted      bool           `json:"granted"`
	Reason       string         `json:"reason" validate:"max=256"`
	SessionID    string         `json:"session_id" validate:"max=128"`
	TraceID      string         `json:"trace_id" validate:"max=128"`
	Metadata     map[string]any `json:"metadata"`
}

// DataAccessRequest describes a read or write of a data resource.
type DataAccessRequest struct {
	UserID       string `json:"user_id" validate:"notblank,max=256"`
	SourceIP     string `json:"source_ip" validate:"omitempty,ip"`
	UserAgent    string `json:"user_agent" validate:"max=1024"`
	Resource     string `json:"resource" validate:"notblank,max=500"`
	ResourceType string `json:"resource_type" validate:"max=64"`
	// Action defaults to read.
	Action             string `json:"action" validate:"max=128"`
	Sensitive          bool   `json:"sensitive"`
	DataClassification string `json:"data_classification" validate:"max=64"`
	// Consent records whether the data subject consented; nil when unknown.
	Consent     *bool          `json:"consent"`
	RecordCount int            `json:"record_count" validate:"min=0"`
	Denied      bool           `json:"denied"`
	SessionID   string         `json:"session_id" validate:"max=128"`
	TraceID     string         `json:"trace_id" validate:"max=128"`
	Metadata    map[string]any `json:"metadata"`
}

// AuditTrailRequest describes a change to a resource.
type AuditTrailRequest struct {
	UserID              string `json:"user_id" validate:"notblank,max=256"`
	Action              string `json:"action" validate:"notblank,max=128"`
	Resource            string `json:"resource" validate:"max=500"`
	ResourceType        string `json:"resource_type" validate:"max=64"`
	BeforeValue         any    `json:"before_value"`
	AfterValue          any    `json:"after_value"`
	SourceIP            string `json:"source_ip" validate:"omitempty,ip"`
	SessionID           string `json:"session_id" validate:"max=128"`
	TraceID             string `json:"trace_id" validate:"max=128"`
	RetentionPeriodDays int    `json:"retention_period_days" validate:"min=0,max=36500"`
}

// SecurityAlertRequest raises an operator-visible alert.
type SecurityAlertRequest struct {
	AlertType   string         `json:"alert_type" validate:"notblank,max=64"`
	Description string         `json:"description" validate:"notblank,max=1024"`
	Level       string         `json:"level" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
	UserID      string         `json:"user_id" validate:"max=256"`
	SourceIP    string         `json:"source_ip" validate:"omitempty,ip"`
	Resource    string         `json:"resource" validate:"max=500"`
	TraceID     string         `json:"trace_id" validate:"max=128"`
	Metadata    map[string]any `json:"metadata"`
}

// EventQuery filters the in-memory event window.
type EventQuery struct {
	UserID   string    `json:"user_id" validate:"max=256"`
	SourceIP string    `json:"source_ip" validate:"omitempty,ip"`
	Resource string    `json:"resource" validate:"max=500"`
	Kinds    []string  `json:"kinds" validate:"max=5,dive,oneof=AUTHENTICATION AUTHORIZATION DATA_ACCESS ALERT ANOMALY"`
	MinLevel string    `json:"min_level" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	Success  *bool     `json:"success"`
	Since    time.Time `json:"since"`
	Until    time.Time `json:"until"`
	Limit    int       `json:"limit" validate:"min=0,max=1000"`
}

// AuditQuery filters the in-memory audit trail window.
type AuditQuery struct {
	UserID       string    `json:"user_id" validate:"max=256"`
	Resource     string    `json:"resource" validate:"max=500"`
	ResourceType string    `json:"resource_type" validate:"max=64"`
	Action       string    `json:"action" validate:"max=128"`
	Since        time.Time `json:"since"`
	Until        time.Time `json:"until"`
	Limit        int       `json:"limit" validate:"min=0,max=1000"`
}
