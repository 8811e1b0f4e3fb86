package store

import (
	"warden/internal/security/models"
	"warden/internal/security/sanitize"
	dErrors "warden/pkg/domain-errors"
)

func cleanEvent(e models.SecurityEvent) (models.SecurityEvent, error) {
	if !e.Kind.IsValid() {
		return e, dErrors.Validation("kind", "unknown event kind")
	}
	if e.Level == 0 {
		e.Level = models.LevelLow
	}
	if e.Level < models.LevelLow || e.Level > models.LevelCritical {
		return e, dErrors.Validation("level", "unknown level")
	}
	var err error
	if e.UserID != "" {
		if e.UserID, err = sanitize.UserID(e.UserID); err != nil {
			return e, err
		}
	}
	if e.SourceIP != "" {
		if e.SourceIP, err = sanitize.IP(e.SourceIP); err != nil {
			return e, err
		}
	}
	if e.Resource != "" {
		if e.Resource, err = sanitize.Resource(e.Resource); err != nil {
			return e, err
		}
	}
	e.ID = sanitize.Text(e.ID, sanitize.Strict)
	e.UserEmail = sanitize.Text(e.UserEmail, sanitize.Strict)
	e.UserAgent = sanitize.Text(e.UserAgent, sanitize.Basic)
	e.ResourceType = sanitize.Text(e.ResourceType, sanitize.Strict)
	e.Action = sanitize.Text(e.Action, sanitize.Strict)
	e.SessionID = sanitize.Text(e.SessionID, sanitize.Strict)
	e.TraceID = sanitize.Text(e.TraceID, sanitize.Strict)
	e.Metadata = sanitize.Metadata(e.Metadata)
	return e, nil
}

// CleanAudit applies the store's sanitization to an audit trail. It is
// idempotent, so callers that hash a trail can clean it first and the store
// will not alter it again.
func CleanAudit(a models.AuditTrail) (models.AuditTrail, error) {
	var err error
	if a.UserID, err = sanitize.UserID(a.UserID); err != nil {
		return a, err
	}
	a.Action = sanitize.Text(a.Action, sanitize.Strict)
	if a.Action == "" {
		return a, dErrors.Validation("action", "must not be empty")
	}
	if a.SourceIP != "" {
		if a.SourceIP, err = sanitize.IP(a.SourceIP); err != nil {
			return a, err
		}
	}
	if a.Resource != "" {
		if a.Resource, err = sanitize.Resource(a.Resource); err != nil {
			return a, err
		}
	}
	a.ID = sanitize.Text(a.ID, sanitize.Strict)
	a.ResourceType = sanitize.Text(a.ResourceType, sanitize.Strict)
	a.SessionID = sanitize.Text(a.SessionID, sanitize.Strict)
	a.TraceID = sanitize.Text(a.TraceID, sanitize.Strict)
	return a, nil
}
