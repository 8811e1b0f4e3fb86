package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"warden/internal/security/models"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/testutil"
)

type StoreSuite struct {
	suite.Suite
	ctx   context.Context
	clock *testutil.Clock
	store *Store
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = testutil.NewClock(testutil.T0)
	s.store = New(WithClock(s.clock.Now), WithFlushThreshold(3))
}

func (s *StoreSuite) TestAppendThenQueryReturnsEventOnce() {
	id, err := s.store.Append(s.ctx, testutil.FailedLogin("alice", "10.0.0.5").Build())
	s.Require().NoError(err)
	s.NotEmpty(id)

	got, err := s.store.Query(s.ctx, models.EventFilter{UserID: "alice"})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(id, got[0].ID)
	s.Equal(testutil.T0, got[0].Timestamp)
	s.Equal([]models.Framework{models.FrameworkSOC2, models.FrameworkISO27001}, got[0].ComplianceFrameworks)
}

func (s *StoreSuite) TestAssignedTimestampsAreStrictlyIncreasing() {
	for range 5 {
		_, err := s.store.Append(s.ctx, testutil.NewEvent(models.KindDataAccess).ForUser("bob").Build())
		s.Require().NoError(err)
	}
	got, err := s.store.Query(s.ctx, models.EventFilter{UserID: "bob"})
	s.Require().NoError(err)
	s.Require().Len(got, 5)
	for i := 1; i < len(got); i++ {
		s.True(got[i].Timestamp.After(got[i-1].Timestamp))
	}
}

func (s *StoreSuite) TestCallerTimestampsKeepTimelineOrder() {
	_, err := s.store.Append(s.ctx, testutil.NewEvent(models.KindAuthentication).ForUser("a").At(testutil.T0.Add(time.Hour)).Build())
	s.Require().NoError(err)
	_, err = s.store.Append(s.ctx, testutil.NewEvent(models.KindAuthentication).ForUser("a").At(testutil.T0).Build())
	s.Require().NoError(err)

	got, err := s.store.Query(s.ctx, models.EventFilter{})
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(testutil.T0, got[0].Timestamp)
}

func (s *StoreSuite) TestDuplicateIDIsIntegrityViolation() {
	e := testutil.NewEvent(models.KindAuthentication).ForUser("alice").Build()
	e.ID = "evt-1"
	_, err := s.store.Append(s.ctx, e)
	s.Require().NoError(err)

	_, err = s.store.Append(s.ctx, e)
	s.ErrorIs(err, dErrors.ErrIntegrityViolation)
	s.Equal(1, s.store.Stats().Events)
}

func (s *StoreSuite) TestInvalidInputIsRejectedAndNothingStored() {
	_, err := s.store.Append(s.ctx, testutil.NewEvent(models.KindAuthentication).ForUser("<script>").Build())
	s.ErrorIs(err, dErrors.ErrValidation)
	s.Equal("user_id", dErrors.FieldOf(err))

	_, err = s.store.Append(s.ctx, testutil.NewEvent(models.KindAuthentication).FromIP("nope").Build())
	s.Equal("source_ip", dErrors.FieldOf(err))

	_, err = s.store.Append(s.ctx, models.SecurityEvent{Kind: "BOGUS"})
	s.Equal("kind", dErrors.FieldOf(err))

	s.Equal(0, s.store.Stats().Events)
	s.Equal(0, s.store.PendingLen())
}

func (s *StoreSuite) TestStoredEventsAreImmutable() {
	id, err := s.store.Append(s.ctx, testutil.NewEvent(models.KindDataAccess).ForUser("a").WithMeta("reason", "x").Build())
	s.Require().NoError(err)

	got, err := s.store.Get(id)
	s.Require().NoError(err)
	got.Metadata["reason"] = "tampered"
	got.UserID = "mallory"

	again, err := s.store.Get(id)
	s.Require().NoError(err)
	s.Equal("x", again.Metadata["reason"])
	s.Equal("a", again.UserID)
}

func (s *StoreSuite) TestQueryFilters() {
	s.append(testutil.FailedLogin("alice", "10.0.0.1").Build())
	s.append(testutil.NewEvent(models.KindAuthentication).ForUser("alice").FromIP("10.0.0.2").Build())
	s.append(testutil.NewEvent(models.KindDataAccess).ForUser("bob").FromIP("10.0.0.1").On("/data/a").OfType("pii").WithLevel(models.LevelHigh).Build())

	failed := false
	cases := map[string]struct {
		filter models.EventFilter
		want   int
	}{
		"by ip":        {models.EventFilter{SourceIP: "10.0.0.1"}, 2},
		"by resource":  {models.EventFilter{Resource: "/data/a"}, 1},
		"by kind":      {models.EventFilter{Kinds: []models.EventKind{models.KindAuthentication}}, 2},
		"min level":    {models.EventFilter{MinLevel: models.LevelMedium}, 2},
		"failures":     {models.EventFilter{Success: &failed}, 1},
		"framework":    {models.EventFilter{Framework: models.FrameworkGDPR}, 1},
		"user and ip":  {models.EventFilter{UserID: "alice", SourceIP: "10.0.0.2"}, 1},
		"limit recent": {models.EventFilter{Limit: 2}, 2},
	}
	for name, tc := range cases {
		s.Run(name, func() {
			got, err := s.store.Query(s.ctx, tc.filter)
			s.Require().NoError(err)
			s.Len(got, tc.want)
		})
	}

	got, err := s.store.Query(s.ctx, models.EventFilter{Limit: 1})
	s.Require().NoError(err)
	s.Equal("bob", got[0].UserID, "limit keeps the most recent")
}

func (s *StoreSuite) TestQueryTimeRangeIsHalfOpen() {
	for i := range 4 {
		s.append(testutil.NewEvent(models.KindAuthentication).ForUser("a").At(testutil.T0.Add(time.Duration(i) * time.Minute)).Build())
	}
	got, err := s.store.Query(s.ctx, models.EventFilter{Since: testutil.T0.Add(time.Minute), Until: testutil.T0.Add(3 * time.Minute)})
	s.Require().NoError(err)
	s.Len(got, 2)
}

func (s *StoreSuite) TestAppendAuditDerivesFrameworksAndRetention() {
	id, err := s.store.AppendAudit(s.ctx, testutil.NewAudit("alice", "update_record").On("/records/1", "phi").Build())
	s.Require().NoError(err)

	a, err := s.store.GetAudit(id)
	s.Require().NoError(err)
	s.Equal([]models.Framework{models.FrameworkSOC2, models.FrameworkHIPAA}, a.ComplianceFrameworks)
	s.Equal(models.DefaultAuditRetentionDays, a.RetentionPeriodDays)

	got, err := s.store.QueryAudits(s.ctx, models.AuditFilter{Resource: "/records/1"})
	s.Require().NoError(err)
	s.Len(got, 1)
}

func (s *StoreSuite) TestAppendAuditRequiresUserAndAction() {
	_, err := s.store.AppendAudit(s.ctx, models.AuditTrail{Action: "x"})
	s.Equal("user_id", dErrors.FieldOf(err))

	_, err = s.store.AppendAudit(s.ctx, models.AuditTrail{UserID: "alice"})
	s.Equal("action", dErrors.FieldOf(err))
	s.Equal(0, s.store.Stats().Audits)
}

func (s *StoreSuite) TestPendingBufferAndSignal() {
	s.append(testutil.NewEvent(models.KindAuthentication).ForUser("a").Build())
	s.append(testutil.NewEvent(models.KindAuthentication).ForUser("a").Build())
	select {
	case <-s.store.PendingSignal():
		s.Fail("signalled below threshold")
	default:
	}

	_, err := s.store.AppendAudit(s.ctx, testutil.NewAudit("a", "login").Build())
	s.Require().NoError(err)
	select {
	case <-s.store.PendingSignal():
	default:
		s.Fail("expected signal at threshold")
	}

	first := s.store.DrainPending(2)
	s.Len(first, 2)
	s.Equal(models.RecordSecurityEvent, first[0].Type)
	rest := s.store.DrainPending(0)
	s.Require().Len(rest, 1)
	s.Equal(models.RecordAuditTrail, rest[0].Type)
	s.Equal(0, s.store.PendingLen())
	s.Nil(s.store.DrainPending(10))
}

func (s *StoreSuite) TestPurgeRemovesOldRecordsFromEveryIndex() {
	s.append(testutil.NewEvent(models.KindAuthentication).ForUser("old").FromIP("10.0.0.9").At(testutil.T0).Build())
	s.append(testutil.NewEvent(models.KindAuthentication).ForUser("new").At(testutil.T0.Add(2 * time.Hour)).Build())
	_, err := s.store.AppendAudit(s.ctx, testutil.NewAudit("old", "x").At(testutil.T0).Build())
	s.Require().NoError(err)

	res := s.store.Purge(testutil.T0.Add(time.Hour))
	s.Equal(PurgeResult{Events: 1, Audits: 1}, res)

	got, err := s.store.Query(s.ctx, models.EventFilter{UserID: "old"})
	s.Require().NoError(err)
	s.Empty(got)
	got, err = s.store.Query(s.ctx, models.EventFilter{SourceIP: "10.0.0.9"})
	s.Require().NoError(err)
	s.Empty(got)

	st := s.store.Stats()
	s.Equal(1, st.Events)
	s.Equal(1, st.Users)
	s.Equal(3, st.Pending, "purge leaves unflushed records alone")
}

func (s *StoreSuite) append(e models.SecurityEvent) string {
	id, err := s.store.Append(s.ctx, e)
	s.Require().NoError(err)
	return id
}

func TestConcurrentAppendsKeepIndexesConsistent(t *testing.T) {
	st := New()
	ctx := context.Background()

	res := testutil.RunConcurrent(50, func(idx int) error {
		_, err := st.Append(ctx, models.SecurityEvent{
			Kind:     models.KindAuthentication,
			UserID:   fmt.Sprintf("user-%d", idx%5),
			SourceIP: "10.0.0.1",
			Success:  true,
		})
		return err
	})
	require.Equal(t, int32(50), res.Successes)

	all, err := st.Query(ctx, models.EventFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 50)

	total := 0
	for u := range 5 {
		got, err := st.Query(ctx, models.EventFilter{UserID: fmt.Sprintf("user-%d", u)})
		require.NoError(t, err)
		total += len(got)
	}
	assert.Equal(t, 50, total)
	assert.Equal(t, 50, st.PendingLen())
}
