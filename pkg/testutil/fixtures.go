package testutil

import (
	"sync"
	"time"

	"warden/internal/security/models"
)

// T0 is the fixed instant most tests start from.
var T0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// Clock is a manually advanced clock safe for concurrent use.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock stopped at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// EventBuilder provides a fluent interface for building test events.
type EventBuilder struct {
	event models.SecurityEvent
}

// NewEvent starts a successful LOW event of the given kind.
func NewEvent(kind models.EventKind) *EventBuilder {
	return &EventBuilder{event: models.SecurityEvent{
		Kind:     kind,
		Level:    models.LevelLow,
		SourceIP: "10.0.0.1",
		Success:  true,
	}}
}

// FailedLogin is an AUTHENTICATION failure with a reason.
func FailedLogin(userID, ip string) *EventBuilder {
	return NewEvent(models.KindAuthentication).
		ForUser(userID).
		FromIP(ip).
		Failed().
		WithLevel(models.LevelMedium).
		WithMeta("reason", "invalid_password")
}

func (b *EventBuilder) ForUser(userID string) *EventBuilder {
	b.event.UserID = userID
	return b
}

func (b *EventBuilder) FromIP(ip string) *EventBuilder {
	b.event.SourceIP = ip
	return b
}

func (b *EventBuilder) On(resource string) *EventBuilder {
	b.event.Resource = resource
	return b
}

func (b *EventBuilder) OfType(resourceType string) *EventBuilder {
	b.event.ResourceType = resourceType
	return b
}

func (b *EventBuilder) WithAction(action string) *EventBuilder {
	b.event.Action = action
	return b
}

func (b *EventBuilder) WithSession(sessionID string) *EventBuilder {
	b.event.SessionID = sessionID
	return b
}

func (b *EventBuilder) WithLevel(l models.Level) *EventBuilder {
	b.event.Level = l
	return b
}

func (b *EventBuilder) Failed() *EventBuilder {
	b.event.Success = false
	return b
}

func (b *EventBuilder) At(ts time.Time) *EventBuilder {
	b.event.Timestamp = ts
	return b
}

func (b *EventBuilder) WithMeta(key string, value any) *EventBuilder {
	if b.event.Metadata == nil {
		b.event.Metadata = make(map[string]any)
	}
	b.event.Metadata[key] = value
	return b
}

func (b *EventBuilder) Build() models.SecurityEvent {
	return b.event.Clone()
}

// AuditBuilder provides a fluent interface for building test audit trails.
type AuditBuilder struct {
	trail models.AuditTrail
}

func NewAudit(userID, action string) *AuditBuilder {
	return &AuditBuilder{trail: models.AuditTrail{UserID: userID, Action: action}}
}

func (b *AuditBuilder) On(resource, resourceType string) *AuditBuilder {
	b.trail.Resource = resource
	b.trail.ResourceType = resourceType
	return b
}

func (b *AuditBuilder) WithSession(sessionID string) *AuditBuilder {
	b.trail.SessionID = sessionID
	return b
}

func (b *AuditBuilder) At(ts time.Time) *AuditBuilder {
	b.trail.Timestamp = ts
	return b
}

func (b *AuditBuilder) Build() models.AuditTrail {
	return b.trail.Clone()
}
