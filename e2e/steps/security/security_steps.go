package security

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/cucumber/godog"

	"warden/internal/security/models"
)

const alertWait = 5 * time.Second

// TestContext is the scenario surface the security steps drive.
type TestContext interface {
	POST(path string, body any) error
	POSTRaw(path, body string) error
	GET(path string, headers map[string]string) error
	DecodeResponse(v any) error
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	Advance(d time.Duration)
	Now() time.Time
	DeliveredAlerts() []models.Alert
	SinkRecords(stream string) []models.LogRecord
	Shutdown() error
}

// RegisterSteps registers ingestion, detection and reporting steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &securitySteps{tc: tc}

	ctx.Step(`^user "([^"]*)" fails to log in (\d+) times from "([^"]*)" every (\d+) minutes?$`, steps.failedLogins)
	ctx.Step(`^user "([^"]*)" logs in successfully from "([^"]*)"$`, steps.successfulLogin)
	ctx.Step(`^(\d+) authentication events are sent for user "([^"]*)"$`, steps.authenticationEvents)
	ctx.Step(`^user "([^"]*)" reads personal data "([^"]*)" with consent$`, steps.personalDataWithConsent)
	ctx.Step(`^user "([^"]*)" reads personal data "([^"]*)" without consent$`, steps.personalDataWithoutConsent)
	ctx.Step(`^user "([^"]*)" records audit action "([^"]*)" on "([^"]*)"$`, steps.auditTrail)
	ctx.Step(`^I POST to "([^"]*)" with body:$`, steps.postBody)
	ctx.Step(`^I GET "([^"]*)"$`, steps.get)
	ctx.Step(`^I request the "([^"]*)" compliance report for the last hour$`, steps.complianceReport)

	ctx.Step(`^an alert with severity at least "([^"]*)" should be delivered$`, steps.alertDelivered)
	ctx.Step(`^no alert should be delivered$`, steps.noAlertDelivered)
	ctx.Step(`^the monitor shuts down$`, steps.shutdown)
	ctx.Step(`^the sink should hold (\d+) records? in stream "([^"]*)"$`, steps.sinkHolds)
	ctx.Step(`^the report should include a "([^"]*)" violation$`, steps.reportIncludesViolation)
	ctx.Step(`^the report should have no violations$`, steps.reportHasNoViolations)
	ctx.Step(`^the compliance score should be below (\d+(?:\.\d+)?)$`, steps.scoreBelow)
}

type securitySteps struct {
	tc TestContext
}

func (s *securitySteps) send(path string, body any, want int) error {
	if err := s.tc.POST(path, body); err != nil {
		return err
	}
	if got := s.tc.GetLastResponseStatus(); got != want {
		return fmt.Errorf("POST %s: expected status %d, got %d: %s", path, want, got, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *securitySteps) failedLogins(_ context.Context, userID string, count int, ip string, minutes int) error {
	for i := range count {
		if i > 0 {
			s.tc.Advance(time.Duration(minutes) * time.Minute)
		}
		err := s.send("/security/events/authentication", map[string]any{
			"user_id":        userID,
			"source_ip":      ip,
			"method":         "password",
			"success":        false,
			"failure_reason": "invalid_password",
		}, 201)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *securitySteps) successfulLogin(_ context.Context, userID, ip string) error {
	return s.send("/security/events/authentication", map[string]any{
		"user_id":   userID,
		"source_ip": ip,
		"method":    "password",
		"success":   true,
	}, 201)
}

// authenticationEvents sends count successful logins and stops at the first
// non-201 so the last response can be asserted.
func (s *securitySteps) authenticationEvents(_ context.Context, count int, userID string) error {
	for range count {
		err := s.tc.POST("/security/events/authentication", map[string]any{
			"user_id": userID,
			"method":  "sso",
			"success": true,
		})
		if err != nil {
			return err
		}
		if s.tc.GetLastResponseStatus() != 201 {
			return nil
		}
	}
	return nil
}

func (s *securitySteps) personalData(userID, resource string, consent bool) error {
	return s.send("/security/events/data-access", map[string]any{
		"user_id":       userID,
		"resource":      resource,
		"resource_type": models.ClassPersonalData,
		"consent":       consent,
		"record_count":  1,
	}, 201)
}

func (s *securitySteps) personalDataWithConsent(_ context.Context, userID, resource string) error {
	return s.personalData(userID, resource, true)
}

func (s *securitySteps) personalDataWithoutConsent(_ context.Context, userID, resource string) error {
	return s.personalData(userID, resource, false)
}

func (s *securitySteps) auditTrail(_ context.Context, userID, action, resource string) error {
	return s.send("/security/audit-trails", map[string]any{
		"user_id":       userID,
		"action":        action,
		"resource":      resource,
		"resource_type": "configuration",
		"before_value":  map[string]any{"enabled": false},
		"after_value":   map[string]any{"enabled": true},
	}, 201)
}

func (s *securitySteps) postBody(_ context.Context, path string, body *godog.DocString) error {
	return s.tc.POSTRaw(path, body.Content)
}

func (s *securitySteps) get(_ context.Context, path string) error {
	return s.tc.GET(path, nil)
}

func (s *securitySteps) complianceReport(_ context.Context, framework string) error {
	now := s.tc.Now()
	q := url.Values{}
	q.Set("start", now.Add(-time.Hour).Format(time.RFC3339))
	q.Set("end", now.Add(time.Minute).Format(time.RFC3339))
	return s.tc.GET("/security/compliance/"+url.PathEscape(framework)+"?"+q.Encode(), nil)
}

func (s *securitySteps) alertDelivered(ctx context.Context, level string) error {
	minLevel, ok := models.ParseLevel(level)
	if !ok {
		return fmt.Errorf("unknown level %q", level)
	}
	deadline := time.Now().Add(alertWait)
	for time.Now().Before(deadline) {
		for _, a := range s.tc.DeliveredAlerts() {
			if a.Severity >= minLevel {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
	return fmt.Errorf("no alert at %s or above delivered within %s (got %d alerts)", minLevel, alertWait, len(s.tc.DeliveredAlerts()))
}

func (s *securitySteps) noAlertDelivered(context.Context) error {
	// give the dispatcher a moment to pick up anything queued
	time.Sleep(100 * time.Millisecond)
	if n := len(s.tc.DeliveredAlerts()); n != 0 {
		return fmt.Errorf("expected no alerts, got %d", n)
	}
	return nil
}

func (s *securitySteps) shutdown(context.Context) error {
	return s.tc.Shutdown()
}

func (s *securitySteps) sinkHolds(_ context.Context, count int, stream string) error {
	if got := len(s.tc.SinkRecords(stream)); got != count {
		return fmt.Errorf("expected %d records in %s, got %d", count, stream, got)
	}
	return nil
}

func (s *securitySteps) report() (*models.ComplianceReport, error) {
	if s.tc.GetLastResponseStatus() != 200 {
		return nil, fmt.Errorf("no report: status %d: %s", s.tc.GetLastResponseStatus(), string(s.tc.GetLastResponseBody()))
	}
	var r models.ComplianceReport
	if err := s.tc.DecodeResponse(&r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}

func (s *securitySteps) reportIncludesViolation(_ context.Context, rule string) error {
	r, err := s.report()
	if err != nil {
		return err
	}
	for _, v := range r.Violations {
		if v.Rule == rule {
			return nil
		}
	}
	return fmt.Errorf("report has no %q violation (%d violations)", rule, len(r.Violations))
}

func (s *securitySteps) reportHasNoViolations(context.Context) error {
	r, err := s.report()
	if err != nil {
		return err
	}
	if len(r.Violations) != 0 {
		return fmt.Errorf("expected no violations, got %d (first: %s)", len(r.Violations), r.Violations[0].Rule)
	}
	return nil
}

func (s *securitySteps) scoreBelow(_ context.Context, limit float64) error {
	r, err := s.report()
	if err != nil {
		return err
	}
	if r.ComplianceScore >= limit {
		return fmt.Errorf("expected score below %v, got %v", limit, r.ComplianceScore)
	}
	return nil
}
