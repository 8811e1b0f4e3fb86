// Package audittrail records who changed what. Every trail carries a
// BLAKE2b-256 hash over its content and the previous trail's hash, so a
// removed or edited entry breaks the chain.
package audittrail

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"warden/internal/security/models"
	"warden/internal/security/store"
	dErrors "warden/pkg/domain-errors"
)

// Appender is the part of the event store the recorder writes to.
type Appender interface {
	AppendAudit(ctx context.Context, a models.AuditTrail) (string, error)
	Now() time.Time
}

// Entry is the caller-supplied part of an audit trail.
type Entry struct {
	UserID              string
	Action              string
	Resource            string
	ResourceType        string
	BeforeValue         any
	AfterValue          any
	SourceIP            string
	SessionID           string
	TraceID             string
	RetentionPeriodDays int
}

type Recorder struct {
	store Appender

	mu       sync.Mutex
	lastHash string
}

func New(s Appender) *Recorder {
	return &Recorder{store: s}
}

// Record validates the entry, links it to the chain and stores it. Nothing is
// stored when validation fails.
func (r *Recorder) Record(ctx context.Context, e Entry) (string, error) {
	if strings.TrimSpace(e.UserID) == "" {
		return "", dErrors.Validation("user_id", "must not be empty")
	}
	if strings.TrimSpace(e.Action) == "" {
		return "", dErrors.Validation("action", "must not be empty")
	}
	before, err := models.Snapshot(e.BeforeValue)
	if err != nil {
		return "", dErrors.Validation("before_value", "must be JSON encodable")
	}
	after, err := models.Snapshot(e.AfterValue)
	if err != nil {
		return "", dErrors.Validation("after_value", "must be JSON encodable")
	}
	retention := e.RetentionPeriodDays
	if retention <= 0 {
		retention = models.DefaultAuditRetentionDays
	}

	trail, err := store.CleanAudit(models.AuditTrail{
		ID:                  uuid.NewString(),
		UserID:              e.UserID,
		Action:              e.Action,
		Resource:            e.Resource,
		ResourceType:        e.ResourceType,
		BeforeValue:         before,
		AfterValue:          after,
		SourceIP:            e.SourceIP,
		SessionID:           e.SessionID,
		TraceID:             e.TraceID,
		RetentionPeriodDays: retention,
	})
	if err != nil {
		return "", err
	}
	trail.ComplianceFrameworks = models.AuditFrameworks(trail.ResourceType)

	// the chain order must match the append order
	r.mu.Lock()
	defer r.mu.Unlock()
	trail.Timestamp = r.store.Now()
	trail.PrevHash = r.lastHash
	if trail.Hash, err = Hash(trail); err != nil {
		return "", err
	}
	id, err := r.store.AppendAudit(ctx, trail)
	if err != nil {
		return "", err
	}
	r.lastHash = trail.Hash
	return id, nil
}

// Hash computes the chain hash of a trail: BLAKE2b-256 over its JSON encoding
// with the Hash field cleared.
func Hash(a models.AuditTrail) (string, error) {
	a.Hash = ""
	a.Timestamp = a.Timestamp.UTC()
	payload, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("encode audit trail: %w", err)
	}
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// Verify recomputes each hash and checks that consecutive trails link up.
// The first trail's PrevHash is trusted, so a window that starts after a
// purge still verifies.
func Verify(trails []models.AuditTrail) error {
	for i, a := range trails {
		want, err := Hash(a)
		if err != nil {
			return err
		}
		if want != a.Hash {
			return dErrors.Integrity(fmt.Sprintf("audit trail %s: hash mismatch", a.ID))
		}
		if i > 0 && a.PrevHash != trails[i-1].Hash {
			return dErrors.Integrity(fmt.Sprintf("audit trail %s: chain broken after %s", a.ID, trails[i-1].ID))
		}
	}
	return nil
}
