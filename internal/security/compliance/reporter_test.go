package compliance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"warden/internal/security/models"
	"warden/internal/security/store"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/testutil"
)

type ReporterSuite struct {
	suite.Suite
	ctx      context.Context
	clock    *testutil.Clock
	store    *store.Store
	reporter *Reporter
}

func TestReporterSuite(t *testing.T) {
	suite.Run(t, new(ReporterSuite))
}

func (s *ReporterSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = testutil.NewClock(testutil.T0.Add(6 * time.Hour))
	s.store = store.New(store.WithClock(s.clock.Now))
	s.reporter = New(s.store)
}

func (s *ReporterSuite) append(e models.SecurityEvent) string {
	id, err := s.store.Append(s.ctx, e)
	s.Require().NoError(err)
	return id
}

func (s *ReporterSuite) audit(a models.AuditTrail) {
	_, err := s.store.AppendAudit(s.ctx, a)
	s.Require().NoError(err)
}

func (s *ReporterSuite) generate(f models.Framework) *models.ComplianceReport {
	r, err := s.reporter.Generate(s.ctx, f, testutil.T0, testutil.T0.Add(4*time.Hour))
	s.Require().NoError(err)
	return r
}

func ruleNames(r *models.ComplianceReport) []string {
	out := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		out[i] = v.Rule
	}
	return out
}

func (s *ReporterSuite) TestEmptyPeriodScoresOne() {
	for _, f := range models.Frameworks {
		r := s.generate(f)
		s.Equal(1.0, r.ComplianceScore, f)
		s.Empty(r.Violations)
		s.Empty(r.Recommendations)
	}
}

func (s *ReporterSuite) TestInvalidInput() {
	_, err := s.reporter.Generate(s.ctx, models.FrameworkSOC2, testutil.T0, testutil.T0)
	s.ErrorIs(err, dErrors.ErrValidation)
	s.Equal("period", dErrors.FieldOf(err))

	_, err = s.reporter.Generate(s.ctx, "PCI", testutil.T0, testutil.T0.Add(time.Hour))
	s.Equal("framework", dErrors.FieldOf(err))
}

func (s *ReporterSuite) TestFrameworkNameIsCaseInsensitive() {
	r, err := s.reporter.Generate(s.ctx, "gdpr", testutil.T0, testutil.T0.Add(time.Hour))
	s.Require().NoError(err)
	s.Equal(models.FrameworkGDPR, r.Framework)
}

func (s *ReporterSuite) TestGDPRMissingConsentOnePerEvent() {
	for i := range 3 {
		s.append(testutil.NewEvent(models.KindDataAccess).ForUser("alice").On("/customers/1").OfType("pii").
			At(testutil.T0.Add(time.Duration(i) * time.Minute)).Build())
	}
	s.append(testutil.NewEvent(models.KindDataAccess).ForUser("alice").On("/customers/2").OfType("pii").
		WithMeta("consent", true).At(testutil.T0.Add(time.Hour)).Build())

	r := s.generate(models.FrameworkGDPR)
	s.Equal([]string{"missing_consent", "missing_consent", "missing_consent"}, ruleNames(r))
	s.Less(r.ComplianceScore, 1.0)
	s.Equal(4, r.TotalEvents)
	s.Len(r.Recommendations, 1)
	for _, v := range r.Violations {
		s.Equal(models.LevelHigh, v.Severity)
		s.Len(v.EvidenceIDs, 1)
	}
}

func (s *ReporterSuite) TestGDPRRetentionExceeded() {
	s.reporter = New(s.store, WithConfig(Config{
		AuthLookback:     8 * time.Hour,
		AlertAuditWindow: time.Hour,
		PHIAuditWindow:   time.Hour,
		GDPRRetention:    5 * time.Hour,
	}))
	s.append(testutil.NewEvent(models.KindDataAccess).ForUser("a").On("/c/1").OfType("pii").WithMeta("consent", true).At(testutil.T0).Build())
	s.append(testutil.NewEvent(models.KindDataAccess).ForUser("a").On("/c/2").OfType("pii").WithMeta("consent", true).At(testutil.T0.Add(2 * time.Hour)).Build())

	r := s.generate(models.FrameworkGDPR)
	s.Equal([]string{"retention_exceeded"}, ruleNames(r))
	s.Equal(models.LevelMedium, r.Violations[0].Severity)
	s.InDelta(0.5, r.ComplianceScore, 1e-9)
}

func (s *ReporterSuite) TestSOC2OrphanedAuthorizationAndScore() {
	s.append(testutil.NewEvent(models.KindAuthentication).ForUser("alice").At(testutil.T0).Build())
	s.append(testutil.NewEvent(models.KindAuthorization).ForUser("alice").On("/admin").At(testutil.T0.Add(time.Hour)).Build())
	orphan := s.append(testutil.NewEvent(models.KindAuthorization).ForUser("bob").On("/admin").At(testutil.T0.Add(time.Hour)).Build())
	s.append(testutil.FailedLogin("carol", "10.0.0.3").At(testutil.T0.Add(2 * time.Hour)).Build())

	r := s.generate(models.FrameworkSOC2)
	s.Require().Equal([]string{"orphaned_authorization"}, ruleNames(r))
	s.Equal([]string{orphan}, r.Violations[0].EvidenceIDs)
	s.InDelta(0.5, r.ComplianceScore, 1e-9)
}

func (s *ReporterSuite) TestSOC2LoginBeforePeriodCounts() {
	s.append(testutil.NewEvent(models.KindAuthentication).ForUser("alice").At(testutil.T0.Add(-2 * time.Hour)).Build())
	s.append(testutil.NewEvent(models.KindAuthorization).ForUser("alice").At(testutil.T0.Add(time.Hour)).Build())

	s.Empty(s.generate(models.FrameworkSOC2).Violations)
}

func (s *ReporterSuite) TestSOC2InsufficientLogging() {
	s.append(testutil.NewEvent(models.KindAuthentication).ForUser("dave").Failed().At(testutil.T0).Build())

	r := s.generate(models.FrameworkSOC2)
	s.Equal([]string{"insufficient_logging"}, ruleNames(r))
	s.Equal(models.LevelLow, r.Violations[0].Severity)
}

func (s *ReporterSuite) TestSOC2UnauditedCriticalAlert() {
	handled := s.append(testutil.NewEvent(models.KindAlert).WithLevel(models.LevelCritical).At(testutil.T0).Build())
	s.append(testutil.NewEvent(models.KindAlert).WithLevel(models.LevelCritical).At(testutil.T0.Add(time.Minute)).Build())
	s.audit(testutil.NewAudit("secops", "acknowledge_alert").On(handled, "incident").At(testutil.T0.Add(30 * time.Minute)).Build())

	r := s.generate(models.FrameworkSOC2)
	s.Equal([]string{"unaudited_critical_alert"}, ruleNames(r))
}

func (s *ReporterSuite) TestRecommendationsFollowRuleOrder() {
	s.append(testutil.NewEvent(models.KindAuthentication).ForUser("dave").Failed().At(testutil.T0).Build())
	s.append(testutil.NewEvent(models.KindAuthorization).ForUser("erin").At(testutil.T0.Add(time.Minute)).Build())
	s.append(testutil.NewEvent(models.KindAuthorization).ForUser("erin").At(testutil.T0.Add(2 * time.Minute)).Build())

	r := s.generate(models.FrameworkSOC2)
	s.Equal([]string{"orphaned_authorization", "orphaned_authorization", "insufficient_logging"}, ruleNames(r))
	s.Len(r.Recommendations, 2)
	s.Contains(r.Recommendations[0], "authorization")
}

func (s *ReporterSuite) TestHIPAAUnauditedPHIAccess() {
	s.append(testutil.NewEvent(models.KindDataAccess).ForUser("a").On("/patients/1").OfType("phi").WithSession("s1").At(testutil.T0).Build())
	s.audit(testutil.NewAudit("a", "view_record").On("/patients/1", "phi").WithSession("s1").At(testutil.T0.Add(3 * time.Hour)).Build())

	missed := s.append(testutil.NewEvent(models.KindDataAccess).ForUser("a").On("/patients/2").OfType("phi").At(testutil.T0).Build())
	s.audit(testutil.NewAudit("a", "view_record").On("/patients/2", "phi").At(testutil.T0.Add(2 * time.Hour)).Build())

	otherSession := s.append(testutil.NewEvent(models.KindDataAccess).ForUser("a").On("/patients/3").OfType("phi").WithSession("s3").At(testutil.T0).Build())
	s.audit(testutil.NewAudit("a", "view_record").On("/patients/3", "phi").WithSession("s9").At(testutil.T0.Add(10 * time.Minute)).Build())

	r := s.generate(models.FrameworkHIPAA)
	s.Require().Equal([]string{"unaudited_phi_access", "unaudited_phi_access"}, ruleNames(r))
	s.ElementsMatch([]string{missed, otherSession}, []string{r.Violations[0].EvidenceIDs[0], r.Violations[1].EvidenceIDs[0]})
	s.Equal(3, r.TotalAuditTrails)
	s.InDelta(1-4.0/6.0, r.ComplianceScore, 1e-9)
}

func (s *ReporterSuite) TestPHIAccessWithoutResourceIsUnaudited() {
	unnamed := s.append(testutil.NewEvent(models.KindDataAccess).ForUser("a").On("").OfType("phi").At(testutil.T0).Build())
	s.audit(testutil.NewAudit("a", "view_record").On("/patients/9", "phi").At(testutil.T0.Add(5 * time.Minute)).Build())
	s.audit(testutil.NewAudit("a", "view_record").At(testutil.T0.Add(10 * time.Minute)).Build())

	r := s.generate(models.FrameworkHIPAA)
	s.Require().Equal([]string{"unaudited_phi_access"}, ruleNames(r))
	s.Equal([]string{unnamed}, r.Violations[0].EvidenceIDs)
}

func (s *ReporterSuite) TestPHIAuditWindowIsInclusive() {
	s.append(testutil.NewEvent(models.KindDataAccess).ForUser("a").On("/patients/4").OfType("phi").At(testutil.T0.Add(time.Hour)).Build())
	s.audit(testutil.NewAudit("a", "view_record").On("/patients/4", "phi").At(testutil.T0.Add(2 * time.Hour)).Build())

	r := s.generate(models.FrameworkHIPAA)
	s.Empty(r.Violations)
}

func (s *ReporterSuite) TestISO27001UnmitigatedCriticalEvent() {
	s.append(testutil.NewEvent(models.KindAnomaly).ForUser("alice").WithLevel(models.LevelCritical).
		WithMeta("anomaly_id", "anom-1").At(testutil.T0).Build())
	s.audit(testutil.NewAudit("secops", "mitigate").On("anom-1", "anomaly").At(testutil.T0.Add(5 * time.Hour)).Build())
	s.append(testutil.NewEvent(models.KindAuthentication).ForUser("bob").WithLevel(models.LevelCritical).At(testutil.T0.Add(time.Hour)).Build())

	r := s.generate(models.FrameworkISO27001)
	s.Require().Equal([]string{"unmitigated_critical_event"}, ruleNames(r))
	s.Equal(models.LevelCritical, r.Violations[0].Severity)
	s.Equal(0.0, r.ComplianceScore)
}
