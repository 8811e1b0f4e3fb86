package models

import (
	"encoding/json"
	"slices"
	"strings"
	"time"
)

// DefaultAuditRetentionDays keeps audit trails for seven years.
const DefaultAuditRetentionDays = 2557

// AuditTrail records who changed what, with before/after snapshots. Entries
// are hash-chained: Hash covers the entry's fields plus PrevHash.
type AuditTrail struct {
	ID                   string          `json:"id"`
	Timestamp            time.Time       `json:"timestamp"`
	UserID               string          `json:"user_id"`
	Action               string          `json:"action"`
	Resource             string          `json:"resource,omitempty"`
	ResourceType         string          `json:"resource_type,omitempty"`
	BeforeValue          json.RawMessage `json:"before_value,omitempty"`
	AfterValue           json.RawMessage `json:"after_value,omitempty"`
	SourceIP             string          `json:"source_ip,omitempty"`
	SessionID            string          `json:"session_id,omitempty"`
	TraceID              string          `json:"trace_id,omitempty"`
	ComplianceFrameworks []Framework     `json:"compliance_frameworks,omitempty"`
	RetentionPeriodDays  int             `json:"retention_period_days"`
	PrevHash             string          `json:"prev_hash"`
	Hash                 string          `json:"hash"`
}

// Clone returns a deep copy safe to hand out.
func (a AuditTrail) Clone() AuditTrail {
	a.ComplianceFrameworks = slices.Clone(a.ComplianceFrameworks)
	a.BeforeValue = slices.Clone(a.BeforeValue)
	a.AfterValue = slices.Clone(a.AfterValue)
	return a
}

// Snapshot freezes a caller value into its JSON encoding, so later changes to
// the caller's maps or slices cannot reach a stored trail. nil stays nil.
func Snapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	return b, nil
}

// HasFramework reports whether the trail is tagged with f.
func (a AuditTrail) HasFramework(f Framework) bool {
	return slices.Contains(a.ComplianceFrameworks, f)
}

var (
	// privilegeNouns name what an authorization-level change acts on.
	privilegeNouns = []string{"role", "roles", "permission", "permissions", "privilege", "privileges", "admin", "superuser", "acl", "entitlement", "entitlements"}
	// changeVerbs modify a privilege noun; a bare check or read does not.
	changeVerbs = []string{"grant", "revoke", "assign", "unassign", "add", "remove", "change", "update", "set", "modify", "delete"}
	// selfEvident tokens denote a privilege change on their own.
	selfEvident = []string{"elevate", "elevation", "escalate", "escalation", "promote", "demote", "sudo"}
)

// IsPrivilegeChange reports whether an action changes someone's authorization
// level: a self-evident verb such as elevate, or a change verb applied to a
// privilege noun found in the action or the resource type. Read-only actions
// like check_permission do not count.
func IsPrivilegeChange(action, resourceType string) bool {
	verbs := tokens(action)
	if containsAny(verbs, selfEvident) {
		return true
	}
	if !containsAny(verbs, changeVerbs) {
		return false
	}
	return containsAny(verbs, privilegeNouns) || containsAny(tokens(resourceType), privilegeNouns)
}

func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r < 'a' || r > 'z'
	})
}

func containsAny(have, want []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}

// AuditFilter selects audit trails. Zero-valued fields do not constrain.
type AuditFilter struct {
	UserID       string
	Resource     string
	ResourceType string
	Action       string
	Framework    Framework
	Since        time.Time
	Until        time.Time
	Limit        int
}

// Matches reports whether a passes every set constraint.
func (f AuditFilter) Matches(a *AuditTrail) bool {
	if f.UserID != "" && a.UserID != f.UserID {
		return false
	}
	if f.Resource != "" && a.Resource != f.Resource {
		return false
	}
	if f.ResourceType != "" && !strings.EqualFold(a.ResourceType, f.ResourceType) {
		return false
	}
	if f.Action != "" && a.Action != f.Action {
		return false
	}
	if f.Framework != "" && !a.HasFramework(f.Framework) {
		return false
	}
	if !f.Since.IsZero() && a.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !a.Timestamp.Before(f.Until) {
		return false
	}
	return true
}
