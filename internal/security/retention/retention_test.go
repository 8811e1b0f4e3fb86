package retention

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warden/internal/security/models"
	"warden/internal/security/ratelimit"
	"warden/internal/security/store"
	"warden/pkg/testutil"
)

func TestRunOncePurgesOutsideWindow(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewClock(testutil.T0)
	s := store.New(store.WithClock(clock.Now))

	old, err := s.Append(ctx, testutil.NewEvent(models.KindAuthentication).ForUser("alice").At(testutil.T0.Add(-25*time.Hour)).Build())
	require.NoError(t, err)
	kept, err := s.Append(ctx, testutil.NewEvent(models.KindAuthentication).ForUser("alice").At(testutil.T0.Add(-time.Hour)).Build())
	require.NoError(t, err)
	_, err = s.AppendAudit(ctx, testutil.NewAudit("alice", "update_profile").At(testutil.T0.Add(-30*time.Hour)).Build())
	require.NoError(t, err)

	w, err := New(s)
	require.NoError(t, err)
	res := w.RunOnce(ctx)

	assert.Equal(t, 1, res.PurgedEvents)
	assert.Equal(t, 1, res.PurgedAuditTrails)
	assert.Equal(t, testutil.T0.Add(-24*time.Hour), res.Cutoff)

	_, err = s.Get(old)
	assert.Error(t, err)
	_, err = s.Get(kept)
	assert.NoError(t, err)
	assert.Equal(t, 1, s.Stats().Events)
}

func TestRunOnceSweepsIdleIdentifiers(t *testing.T) {
	clock := testutil.NewClock(testutil.T0)
	s := store.New(store.WithClock(clock.Now))
	limiter := ratelimit.New(ratelimit.WithClock(clock.Now))
	limiter.Allow("user:alice")
	limiter.Allow("ip:10.0.0.1")

	w, err := New(s, WithLimiter(limiter), WithWindow(time.Hour))
	require.NoError(t, err)

	assert.Zero(t, w.RunOnce(context.Background()).SweptIdentifiers)

	clock.Advance(2 * time.Hour)
	assert.Equal(t, 2, w.RunOnce(context.Background()).SweptIdentifiers)
	assert.Zero(t, limiter.Tracked())
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestStartStopsOnCancel(t *testing.T) {
	s := store.New()
	w, err := New(s, WithInterval(time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, w.Start(ctx), context.DeadlineExceeded)
}
