// Package ratelimit caps how many security records one identifier may submit
// per trailing minute and per trailing hour.
package ratelimit

import (
	"time"

	"warden/internal/security/metrics"
	psync "warden/pkg/platform/sync"
)

const (
	DefaultPerMinute = 60
	DefaultPerHour   = 1000
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed bool
	// FirstDenial is true only for the first rejected call since the
	// identifier was last admitted.
	FirstDenial bool
}

// slidingWindow holds admission timestamps in ascending order.
type slidingWindow struct {
	timestamps []time.Time
	window     time.Duration
}

func (sw *slidingWindow) cleanupExpired(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

func (sw *slidingWindow) count(now time.Time) int {
	sw.cleanupExpired(now)
	return len(sw.timestamps)
}

type identifierState struct {
	minute  slidingWindow
	hour    slidingWindow
	denying bool
	lastHit time.Time
}

// Limiter is a per-identifier sliding window limiter. State is spread over
// lock shards so unrelated identifiers never contend.
type Limiter struct {
	perMinute int
	perHour   int
	state     *psync.ShardedMap[*identifierState]
	now       func() time.Time
	metrics   *metrics.Metrics
}

type Option func(*Limiter)

// WithLimits overrides the per-minute and per-hour caps. Non-positive values
// keep the defaults.
func WithLimits(perMinute, perHour int) Option {
	return func(l *Limiter) {
		if perMinute > 0 {
			l.perMinute = perMinute
		}
		if perHour > 0 {
			l.perHour = perHour
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

func New(opts ...Option) *Limiter {
	l := &Limiter{
		perMinute: DefaultPerMinute,
		perHour:   DefaultPerHour,
		state:     psync.NewShardedMap[*identifierState](),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow admits or rejects one call for identifier. Rejected calls are not
// recorded, so a client that backs off regains capacity as its admitted calls
// age out of the windows.
func (l *Limiter) Allow(identifier string) Decision {
	now := l.now()
	var d Decision
	l.state.With(identifier, func(st *identifierState, ok bool) (*identifierState, bool) {
		if !ok {
			st = &identifierState{
				minute: slidingWindow{window: time.Minute},
				hour:   slidingWindow{window: time.Hour},
			}
		}
		st.lastHit = now
		if st.minute.count(now) >= l.perMinute || st.hour.count(now) >= l.perHour {
			d.FirstDenial = !st.denying
			st.denying = true
			return st, true
		}
		st.minute.timestamps = append(st.minute.timestamps, now)
		st.hour.timestamps = append(st.hour.timestamps, now)
		st.denying = false
		d.Allowed = true
		return st, true
	})
	if !d.Allowed {
		l.metrics.IncRateLimited()
	}
	return d
}

// Sweep drops identifiers with no admissions left in the hour window and no
// activity within it. Returns how many were removed.
func (l *Limiter) Sweep(now time.Time) int {
	return l.state.Sweep(func(_ string, st *identifierState) bool {
		return st.hour.count(now) == 0 && now.Sub(st.lastHit) >= time.Hour
	})
}

// Tracked returns the number of identifiers currently holding state.
func (l *Limiter) Tracked() int {
	return l.state.Len()
}
