package flusher

//go:generate mockgen -source=../ports/ports.go -destination=../ports/mocks/ports_mock.go -package=mocks LogSink,AlertChannel

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"warden/internal/security/models"
	"warden/internal/security/ports/mocks"
	"warden/internal/security/store"
	"warden/internal/sentinel"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/testutil"
)

type FlusherSuite struct {
	suite.Suite
	ctx   context.Context
	ctrl  *gomock.Controller
	sink  *mocks.MockLogSink
	store *store.Store
}

func TestFlusherSuite(t *testing.T) {
	suite.Run(t, new(FlusherSuite))
}

func (s *FlusherSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.sink = mocks.NewMockLogSink(s.ctrl)
	s.store = store.New(store.WithClock(testutil.NewClock(testutil.T0).Now))
}

func (s *FlusherSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *FlusherSuite) newFlusher(opts ...Option) *Flusher {
	opts = append([]Option{WithRetryBackoff(time.Millisecond), WithStreamPrefix("test")}, opts...)
	return New(s.store, s.sink, opts...)
}

func (s *FlusherSuite) appendEvent(user string) {
	_, err := s.store.Append(s.ctx, testutil.NewEvent(models.KindAuthentication).ForUser(user).Build())
	s.Require().NoError(err)
}

func (s *FlusherSuite) TestSinkFailsTwiceThenSucceedsDeliversOnce() {
	s.appendEvent("alice")
	f := s.newFlusher()

	var delivered []models.LogRecord
	gomock.InOrder(
		s.sink.EXPECT().SubmitBatch(gomock.Any(), "test.security-events", gomock.Any()).
			Return(fmt.Errorf("kafka: %w", sentinel.ErrUnavailable)).Times(2),
		s.sink.EXPECT().SubmitBatch(gomock.Any(), "test.security-events", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, recs []models.LogRecord) error {
				delivered = append(delivered, recs...)
				return nil
			}),
	)

	s.Require().NoError(f.Flush(s.ctx))
	s.Len(delivered, 1)
	s.Equal(Stats{Flushed: 1, Retries: 2}, f.Stats())
	s.Equal(0, s.store.PendingLen())
}

func (s *FlusherSuite) TestFailedBatchIsRequeuedAtFrontOfNextCycle() {
	s.appendEvent("first")
	f := s.newFlusher(WithMaxAttempts(1))

	s.sink.EXPECT().SubmitBatch(gomock.Any(), gomock.Any(), gomock.Any()).Return(sentinel.ErrTimeout)
	err := f.Flush(s.ctx)
	s.ErrorIs(err, dErrors.ErrSinkUnavailable)
	s.ErrorIs(err, sentinel.ErrTimeout)
	s.EqualValues(1, f.Stats().RetryQueue)

	s.appendEvent("second")
	var users []string
	s.sink.EXPECT().SubmitBatch(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, recs []models.LogRecord) error {
			for _, r := range recs {
				users = append(users, r.Event.UserID)
			}
			return nil
		}).Times(2)

	s.Require().NoError(f.Flush(s.ctx))
	s.Equal([]string{"first", "second"}, users)
	s.EqualValues(0, f.Stats().RetryQueue)
}

func (s *FlusherSuite) TestRetryQueueOverflowDropsOldestAndRaisesAlert() {
	f := s.newFlusher(WithMaxAttempts(1), WithMaxRetryBatches(1))
	s.sink.EXPECT().SubmitBatch(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(sentinel.ErrUnavailable).AnyTimes()

	s.appendEvent("a")
	s.Error(f.Flush(s.ctx))
	s.appendEvent("b")
	s.Error(f.Flush(s.ctx))

	st := f.Stats()
	s.EqualValues(1, st.Dropped)
	s.EqualValues(1, st.RetryQueue)

	alerts, err := s.store.Query(s.ctx, models.EventFilter{Kinds: []models.EventKind{models.KindAlert}})
	s.Require().NoError(err)
	s.Require().Len(alerts, 1)
	s.Equal(models.LevelCritical, alerts[0].Level)
	s.Equal("log_records_dropped", alerts[0].MetaString("alert_type"))
	s.Equal(1, s.store.PendingLen(), "loss alert waits for the next cycle")
}

func (s *FlusherSuite) TestRecordsAreSplitPerStream() {
	s.appendEvent("alice")
	_, err := s.store.AppendAudit(s.ctx, testutil.NewAudit("alice", "update_role").Build())
	s.Require().NoError(err)
	s.appendEvent("bob")

	got := map[string]int{}
	s.sink.EXPECT().SubmitBatch(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, stream string, recs []models.LogRecord) error {
			got[stream] += len(recs)
			return nil
		}).Times(2)

	s.Require().NoError(New(s.store, s.sink).Flush(s.ctx))
	s.Equal(map[string]int{StreamSecurityEvents: 2, StreamAuditTrails: 1}, got)
}

func (s *FlusherSuite) TestSplitRespectsMaxBatchRecords() {
	for i := range 5 {
		s.appendEvent(fmt.Sprintf("u%d", i))
	}
	s.sink.EXPECT().SubmitBatch(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(3)
	s.Require().NoError(s.newFlusher(WithMaxBatchRecords(2)).Flush(s.ctx))
}

func (s *FlusherSuite) TestEachCallRunsUnderTimeout() {
	s.appendEvent("alice")
	s.sink.EXPECT().SubmitBatch(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string, _ []models.LogRecord) error {
			<-ctx.Done()
			return fmt.Errorf("submit: %w", sentinel.ErrTimeout)
		})

	err := s.newFlusher(WithMaxAttempts(1), WithCallTimeout(10*time.Millisecond)).Flush(s.ctx)
	s.ErrorIs(err, dErrors.ErrSinkUnavailable)
}

func (s *FlusherSuite) TestRunPerformsFinalFlushOnShutdown() {
	ctx, cancel := context.WithCancel(s.ctx)
	f := s.newFlusher(WithInterval(time.Hour))

	delivered := make(chan int, 1)
	s.sink.EXPECT().SubmitBatch(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string, recs []models.LogRecord) error {
			if ctx.Err() != nil {
				return errors.New("final flush used a cancelled context")
			}
			delivered <- len(recs)
			return nil
		})

	s.appendEvent("alice")
	cancel()
	s.Require().NoError(f.Run(ctx))
	s.Equal(1, <-delivered)
}

func (s *FlusherSuite) TestFlushWithNothingPendingDoesNotCallSink() {
	s.NoError(s.newFlusher().Flush(s.ctx))
}
