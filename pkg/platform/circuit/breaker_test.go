package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"warden/pkg/testutil"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	clock := testutil.NewClock(testutil.T0)
	b := New("alerts", WithFailureThreshold(3), WithCooldown(time.Minute), WithClock(clock.Now))

	assert.False(t, b.RecordFailure().Opened)
	assert.False(t, b.RecordFailure().Opened)
	assert.True(t, b.RecordFailure().Opened)
	assert.False(t, b.Allow())
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := New("alerts", WithFailureThreshold(2))
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	assert.True(t, b.Allow())
}

func TestBreakerHalfOpenAfterCooldown(t *testing.T) {
	clock := testutil.NewClock(testutil.T0)
	b := New("alerts", WithFailureThreshold(1), WithCooldown(time.Minute), WithClock(clock.Now))
	b.RecordFailure()

	clock.Advance(59 * time.Second)
	assert.False(t, b.Allow())

	clock.Advance(time.Second)
	assert.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())

	t.Run("probe failure reopens", func(t *testing.T) {
		assert.True(t, b.RecordFailure().Opened)
		assert.False(t, b.Allow())
	})

	t.Run("probe success closes", func(t *testing.T) {
		clock.Advance(time.Minute)
		assert.True(t, b.Allow())
		assert.True(t, b.RecordSuccess().Closed)
		assert.Equal(t, StateClosed, b.State())
	})
}
