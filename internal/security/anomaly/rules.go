package anomaly

import (
	"context"
	"math"
	"sort"
	"time"

	"warden/internal/security/models"
)

// Config holds rule windows and thresholds. A rule fires when the observed
// count is strictly greater than its threshold.
type Config struct {
	FailedAuthWindow       time.Duration
	FailedAuthThreshold    int
	SuspiciousIPWindow     time.Duration
	SuspiciousIPThreshold  int
	PrivilegeWindow        time.Duration
	PrivilegeThreshold     int
	UnusualAccessWindow    time.Duration
	UnusualAccessThreshold int
}

func DefaultConfig() Config {
	return Config{
		FailedAuthWindow:       time.Hour,
		FailedAuthThreshold:    5,
		SuspiciousIPWindow:     time.Minute,
		SuspiciousIPThreshold:  10,
		PrivilegeWindow:        24 * time.Hour,
		PrivilegeThreshold:     3,
		UnusualAccessWindow:    24 * time.Hour,
		UnusualAccessThreshold: 20,
	}
}

var mitigations = map[models.AnomalyType]string{
	models.AnomalyExcessiveFailedAuth:  "Temporarily lock the account, force a credential reset and review the listed source IPs.",
	models.AnomalySuspiciousIP:         "Throttle or block the source IP and review the requests it made in the window.",
	models.AnomalyPrivilegeEscalation:  "Review the role and permission changes for the user and revert any that were not approved.",
	models.AnomalyUnusualAccessPattern: "Confirm the access with the user and narrow their data access scope if it is not expected.",
}

// scope restricts a scan to one subject. The zero scope covers everyone.
type scope struct {
	userID string
	ip     string
}

func (s scope) all() bool { return s.userID == "" && s.ip == "" }

func (s scope) coversUser() bool { return s.all() || s.userID != "" }

func (s scope) coversIP() bool { return s.all() || s.ip != "" }

// finding is a rule match before dedupe.
type finding struct {
	kind       models.AnomalyType
	user       string
	resource   string
	confidence float64
	evidence   []string
	window     time.Duration
}

func (f finding) subject() string {
	if f.user != "" {
		return f.user
	}
	return f.resource
}

type evidence struct {
	id string
	ts time.Time
}

func orderedIDs(ev []evidence) []string {
	sort.SliceStable(ev, func(i, j int) bool { return ev[i].ts.Before(ev[j].ts) })
	ids := make([]string, len(ev))
	for i, e := range ev {
		ids[i] = e.id
	}
	return ids
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// evaluate runs every rule covered by sc and returns matches plus the number
// of records that could not be attributed to a subject.
func (d *Detector) evaluate(ctx context.Context, now time.Time, sc scope) ([]finding, int, error) {
	var out []finding
	skipped := 0
	rules := []struct {
		applies bool
		run     func(context.Context, time.Time, scope) ([]finding, int, error)
	}{
		{sc.coversUser(), d.failedAuth},
		{sc.coversIP(), d.suspiciousIP},
		{sc.coversUser(), d.privilegeEscalation},
		{sc.coversUser(), d.unusualAccess},
	}
	for _, r := range rules {
		if !r.applies {
			continue
		}
		found, n, err := r.run(ctx, now, sc)
		if err != nil {
			return nil, skipped, err
		}
		out = append(out, found...)
		skipped += n
	}
	return out, skipped, nil
}

func (d *Detector) failedAuth(ctx context.Context, now time.Time, sc scope) ([]finding, int, error) {
	failed := false
	events, err := d.source.Query(ctx, models.EventFilter{
		UserID:  sc.userID,
		Kinds:   []models.EventKind{models.KindAuthentication},
		Success: &failed,
		Since:   now.Add(-d.cfg.FailedAuthWindow),
	})
	if err != nil {
		return nil, 0, err
	}

	type group struct {
		ev  []evidence
		ips map[string]struct{}
	}
	byUser := make(map[string]*group)
	var order []string
	skipped := 0
	for _, e := range events {
		if e.UserID == "" {
			skipped++
			continue
		}
		g, ok := byUser[e.UserID]
		if !ok {
			g = &group{ips: make(map[string]struct{})}
			byUser[e.UserID] = g
			order = append(order, e.UserID)
		}
		g.ev = append(g.ev, evidence{e.ID, e.Timestamp})
		if e.SourceIP != "" {
			g.ips[e.SourceIP] = struct{}{}
		}
	}

	var out []finding
	for _, user := range order {
		g := byUser[user]
		count := len(g.ev)
		if count <= d.cfg.FailedAuthThreshold {
			continue
		}
		base := math.Min(1, float64(count)/float64(d.cfg.FailedAuthThreshold)*0.6)
		out = append(out, finding{
			kind:       models.AnomalyExcessiveFailedAuth,
			user:       user,
			confidence: clamp(base + 0.1*float64(len(g.ips))),
			evidence:   orderedIDs(g.ev),
			window:     d.cfg.FailedAuthWindow,
		})
	}
	return out, skipped, nil
}

func (d *Detector) suspiciousIP(ctx context.Context, now time.Time, sc scope) ([]finding, int, error) {
	events, err := d.source.Query(ctx, models.EventFilter{
		SourceIP: sc.ip,
		Since:    now.Add(-d.cfg.SuspiciousIPWindow),
	})
	if err != nil {
		return nil, 0, err
	}

	byIP := make(map[string][]evidence)
	var order []string
	for _, e := range events {
		// the monitor's own output must not feed back into this rule
		if e.Kind == models.KindAlert || e.Kind == models.KindAnomaly || e.SourceIP == "" {
			continue
		}
		if _, ok := byIP[e.SourceIP]; !ok {
			order = append(order, e.SourceIP)
		}
		byIP[e.SourceIP] = append(byIP[e.SourceIP], evidence{e.ID, e.Timestamp})
	}

	var out []finding
	for _, ip := range order {
		count := len(byIP[ip])
		if count <= d.cfg.SuspiciousIPThreshold {
			continue
		}
		excess := float64(count-d.cfg.SuspiciousIPThreshold) / float64(d.cfg.SuspiciousIPThreshold)
		out = append(out, finding{
			kind:       models.AnomalySuspiciousIP,
			resource:   ip,
			confidence: clamp(0.5 + 0.5*excess),
			evidence:   orderedIDs(byIP[ip]),
			window:     d.cfg.SuspiciousIPWindow,
		})
	}
	return out, 0, nil
}

// privilegeEscalation counts audit trails that change a user's
// authorization level. Authorization events are decisions, not changes, and
// are not counted.
func (d *Detector) privilegeEscalation(ctx context.Context, now time.Time, sc scope) ([]finding, int, error) {
	audits, err := d.source.QueryAudits(ctx, models.AuditFilter{
		UserID: sc.userID,
		Since:  now.Add(-d.cfg.PrivilegeWindow),
	})
	if err != nil {
		return nil, 0, err
	}

	byUser := make(map[string][]evidence)
	var order []string
	for _, a := range audits {
		if !models.IsPrivilegeChange(a.Action, a.ResourceType) {
			continue
		}
		if _, ok := byUser[a.UserID]; !ok {
			order = append(order, a.UserID)
		}
		byUser[a.UserID] = append(byUser[a.UserID], evidence{a.ID, a.Timestamp})
	}

	var out []finding
	for _, user := range order {
		count := len(byUser[user])
		if count <= d.cfg.PrivilegeThreshold {
			continue
		}
		out = append(out, finding{
			kind:       models.AnomalyPrivilegeEscalation,
			user:       user,
			confidence: clamp(0.8 + 0.05*float64(count-(d.cfg.PrivilegeThreshold+1))),
			evidence:   orderedIDs(byUser[user]),
			window:     d.cfg.PrivilegeWindow,
		})
	}
	return out, 0, nil
}

func (d *Detector) unusualAccess(ctx context.Context, now time.Time, sc scope) ([]finding, int, error) {
	events, err := d.source.Query(ctx, models.EventFilter{
		UserID: sc.userID,
		Kinds:  []models.EventKind{models.KindDataAccess},
		Since:  now.Add(-d.cfg.UnusualAccessWindow),
	})
	if err != nil {
		return nil, 0, err
	}

	type group struct {
		ev        []evidence
		resources map[string]struct{}
	}
	byUser := make(map[string]*group)
	var order []string
	skipped := 0
	for _, e := range events {
		if e.UserID == "" || e.Resource == "" {
			skipped++
			continue
		}
		g, ok := byUser[e.UserID]
		if !ok {
			g = &group{resources: make(map[string]struct{})}
			byUser[e.UserID] = g
			order = append(order, e.UserID)
		}
		g.ev = append(g.ev, evidence{e.ID, e.Timestamp})
		g.resources[e.Resource] = struct{}{}
	}

	var out []finding
	for _, user := range order {
		g := byUser[user]
		distinct := len(g.resources)
		if distinct <= d.cfg.UnusualAccessThreshold {
			continue
		}
		out = append(out, finding{
			kind:       models.AnomalyUnusualAccessPattern,
			user:       user,
			confidence: clamp(0.6 + 0.02*float64(distinct-d.cfg.UnusualAccessThreshold)),
			evidence:   orderedIDs(g.ev),
			window:     d.cfg.UnusualAccessWindow,
		})
	}
	return out, skipped, nil
}
