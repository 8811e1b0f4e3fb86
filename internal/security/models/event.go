package models

import (
	"maps"
	"slices"
	"time"
)

// EventKind classifies a security event.
type EventKind string

const (
	KindAuthentication EventKind = "AUTHENTICATION"
	KindAuthorization  EventKind = "AUTHORIZATION"
	KindDataAccess     EventKind = "DATA_ACCESS"
	KindAlert          EventKind = "ALERT"
	KindAnomaly        EventKind = "ANOMALY"
)

// IsValid reports whether k is a known event kind.
func (k EventKind) IsValid() bool {
	switch k {
	case KindAuthentication, KindAuthorization, KindDataAccess, KindAlert, KindAnomaly:
		return true
	}
	return false
}

// Level is an ordered severity.
type Level int

const (
	LevelLow Level = iota + 1
	LevelMedium
	LevelHigh
	LevelCritical
)

var levelNames = map[Level]string{
	LevelLow:      "LOW",
	LevelMedium:   "MEDIUM",
	LevelHigh:     "HIGH",
	LevelCritical: "CRITICAL",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseLevel maps a level name back to its value.
func ParseLevel(s string) (Level, bool) {
	for l, name := range levelNames {
		if name == s {
			return l, true
		}
	}
	return 0, false
}

// MarshalText encodes the level by name so records stay readable in the sink.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name. Unknown names decode to zero.
func (l *Level) UnmarshalText(b []byte) error {
	parsed, _ := ParseLevel(string(b))
	*l = parsed
	return nil
}

// LevelForConfidence maps detector confidence onto a severity.
func LevelForConfidence(confidence float64) Level {
	switch {
	case confidence >= 0.9:
		return LevelCritical
	case confidence >= 0.7:
		return LevelHigh
	case confidence >= 0.4:
		return LevelMedium
	default:
		return LevelLow
	}
}

// SecurityEvent is an immutable record of a security-relevant occurrence.
// Corrections are new events; stored events are never edited in place.
type SecurityEvent struct {
	ID                   string         `json:"id"`
	Timestamp            time.Time      `json:"timestamp"`
	Kind                 EventKind      `json:"kind"`
	Level                Level          `json:"level"`
	UserID               string         `json:"user_id,omitempty"`
	UserEmail            string         `json:"user_email,omitempty"`
	SourceIP             string         `json:"source_ip,omitempty"`
	UserAgent            string         `json:"user_agent,omitempty"`
	Resource             string         `json:"resource,omitempty"`
	ResourceType         string         `json:"resource_type,omitempty"`
	Action               string         `json:"action,omitempty"`
	Success              bool           `json:"success"`
	Metadata             map[string]any `json:"metadata,omitempty"`
	ComplianceFrameworks []Framework    `json:"compliance_frameworks,omitempty"`
	SessionID            string         `json:"session_id,omitempty"`
	TraceID              string         `json:"trace_id,omitempty"`
}

// Clone returns a deep copy; metadata values are scalars so a shallow map
// copy is sufficient.
func (e SecurityEvent) Clone() SecurityEvent {
	e.Metadata = maps.Clone(e.Metadata)
	e.ComplianceFrameworks = slices.Clone(e.ComplianceFrameworks)
	return e
}

// HasFramework reports whether the event is tagged with f.
func (e SecurityEvent) HasFramework(f Framework) bool {
	return slices.Contains(e.ComplianceFrameworks, f)
}

// MetaString returns a metadata value as a string when it is one.
func (e SecurityEvent) MetaString(key string) string {
	if v, ok := e.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// MetaBool returns a metadata value as a bool, accepting "true" strings.
func (e SecurityEvent) MetaBool(key string) bool {
	switch v := e.Metadata[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

// EventFilter selects events. Zero-valued fields do not constrain the result.
// The time range is half-open: Since inclusive, Until exclusive.
type EventFilter struct {
	UserID    string
	SourceIP  string
	Resource  string
	Kinds     []EventKind
	MinLevel  Level
	Success   *bool
	Framework Framework
	Since     time.Time
	Until     time.Time
	// Limit keeps only the most recent N matches (still returned oldest first).
	Limit int
}

// Matches reports whether e passes every set constraint.
func (f EventFilter) Matches(e *SecurityEvent) bool {
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.SourceIP != "" && e.SourceIP != f.SourceIP {
		return false
	}
	if f.Resource != "" && e.Resource != f.Resource {
		return false
	}
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, e.Kind) {
		return false
	}
	if f.MinLevel != 0 && e.Level < f.MinLevel {
		return false
	}
	if f.Success != nil && e.Success != *f.Success {
		return false
	}
	if f.Framework != "" && !e.HasFramework(f.Framework) {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !e.Timestamp.Before(f.Until) {
		return false
	}
	return true
}
