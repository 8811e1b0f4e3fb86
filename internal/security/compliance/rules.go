package compliance

import (
	"context"
	"time"

	"warden/internal/security/models"
)

func (r *Reporter) orphanedAuthorization(ctx context.Context, p *period) ([]models.Violation, error) {
	logins := make(map[string][]models.SecurityEvent)
	var out []models.Violation
	for _, e := range p.events {
		if e.Kind != models.KindAuthorization {
			continue
		}
		if e.UserID == "" {
			out = append(out, violation(e, "authorization %s has no user", e.ID))
			continue
		}
		history, ok := logins[e.UserID]
		if !ok {
			succeeded := true
			var err error
			history, err = r.source.Query(ctx, models.EventFilter{
				UserID:  e.UserID,
				Kinds:   []models.EventKind{models.KindAuthentication},
				Success: &succeeded,
				Since:   p.start.Add(-r.cfg.AuthLookback),
				Until:   p.end,
			})
			if err != nil {
				return nil, err
			}
			logins[e.UserID] = history
		}
		if !anyWithin(history, e.Timestamp.Add(-r.cfg.AuthLookback), e.Timestamp) {
			out = append(out, violation(e, "authorization for user %s on %s without a successful authentication in the preceding %s",
				e.UserID, e.Resource, r.cfg.AuthLookback))
		}
	}
	return out, nil
}

// anyWithin reports whether some event falls in [from, to].
func anyWithin(events []models.SecurityEvent, from, to time.Time) bool {
	for _, e := range events {
		if !e.Timestamp.Before(from) && !e.Timestamp.After(to) {
			return true
		}
	}
	return false
}

func (r *Reporter) unauditedCriticalAlert(ctx context.Context, p *period) ([]models.Violation, error) {
	var out []models.Violation
	for _, e := range p.events {
		if e.Level != models.LevelCritical || (e.Kind != models.KindAlert && e.Kind != models.KindAnomaly) {
			continue
		}
		ok, err := r.referenced(ctx, e, e.Timestamp.Add(r.cfg.AlertAuditWindow))
		if err != nil {
			return nil, err
		}
		if !ok {
			out = append(out, violation(e, "critical %s %s has no audit trail within %s",
				e.Kind, e.ID, r.cfg.AlertAuditWindow))
		}
	}
	return out, nil
}

// referenced reports whether an audit trail at or after the event and no
// later than until names the event, or its anomaly, as its resource.
func (r *Reporter) referenced(ctx context.Context, e models.SecurityEvent, until time.Time) (bool, error) {
	refs := []string{e.ID}
	if id := e.MetaString("anomaly_id"); id != "" {
		refs = append(refs, id)
	}
	for _, ref := range refs {
		audits, err := r.source.QueryAudits(ctx, models.AuditFilter{
			Resource: ref,
			Since:    e.Timestamp,
			Until:    until.Add(time.Nanosecond),
		})
		if err != nil {
			return false, err
		}
		if len(audits) > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (r *Reporter) insufficientLogging(_ context.Context, p *period) ([]models.Violation, error) {
	var out []models.Violation
	for _, e := range p.events {
		if e.Kind == models.KindAuthentication && !e.Success && e.MetaString("reason") == "" {
			out = append(out, violation(e, "authentication failure %s does not record a reason", e.ID))
		}
	}
	return out, nil
}

func (r *Reporter) missingConsent(_ context.Context, p *period) ([]models.Violation, error) {
	var out []models.Violation
	for _, e := range p.events {
		if e.Kind != models.KindDataAccess || !e.HasFramework(models.FrameworkGDPR) {
			continue
		}
		if !e.MetaBool("consent") {
			out = append(out, violation(e, "personal data access to %s by %s without recorded consent", e.Resource, e.UserID))
		}
	}
	return out, nil
}

func (r *Reporter) retentionExceeded(_ context.Context, p *period) ([]models.Violation, error) {
	cutoff := p.now.Add(-r.cfg.GDPRRetention)
	var out []models.Violation
	for _, e := range p.events {
		if e.Timestamp.Before(cutoff) {
			out = append(out, violation(e, "event %s is held beyond the %s retention policy", e.ID, r.cfg.GDPRRetention))
		}
	}
	return out, nil
}

func (r *Reporter) unauditedPHIAccess(ctx context.Context, p *period) ([]models.Violation, error) {
	var out []models.Violation
	for _, e := range p.events {
		if e.Kind != models.KindDataAccess || !e.IsPHIAccess() {
			continue
		}
		// an unnamed resource cannot be paired with any trail
		if e.Resource == "" {
			out = append(out, violation(e, "PHI access by %s names no resource and cannot be audited", e.UserID))
			continue
		}
		filter := models.AuditFilter{Resource: e.Resource}
		if e.SessionID == "" {
			filter.Since = e.Timestamp.Add(-r.cfg.PHIAuditWindow)
			filter.Until = e.Timestamp.Add(r.cfg.PHIAuditWindow + time.Nanosecond)
		}
		audits, err := r.source.QueryAudits(ctx, filter)
		if err != nil {
			return nil, err
		}
		if !r.phiAudited(e, audits) {
			out = append(out, violation(e, "PHI access to %s by %s has no matching audit trail", e.Resource, e.UserID))
		}
	}
	return out, nil
}

func (r *Reporter) phiAudited(e models.SecurityEvent, audits []models.AuditTrail) bool {
	for _, a := range audits {
		if e.SessionID != "" && a.SessionID != "" {
			if e.SessionID == a.SessionID {
				return true
			}
			continue
		}
		delta := a.Timestamp.Sub(e.Timestamp)
		if delta < 0 {
			delta = -delta
		}
		if delta <= r.cfg.PHIAuditWindow {
			return true
		}
	}
	return false
}

func (r *Reporter) unmitigatedCriticalEvent(ctx context.Context, p *period) ([]models.Violation, error) {
	var out []models.Violation
	for _, e := range p.events {
		if e.Level != models.LevelCritical {
			continue
		}
		ok, err := r.referenced(ctx, e, p.now)
		if err != nil {
			return nil, err
		}
		if !ok {
			out = append(out, violation(e, "critical %s %s has no audit trail documenting mitigation", e.Kind, e.ID))
		}
	}
	return out, nil
}
