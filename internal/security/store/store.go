// Package store holds the in-memory window of security events and audit
// trails, indexed for the detector and the compliance reporter, and buffers
// every accepted record until the flusher hands it to the log sink.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"warden/internal/security/metrics"
	"warden/internal/security/models"
	dErrors "warden/pkg/domain-errors"
)

// DefaultFlushThreshold is the pending size at which the flusher is woken
// before its next tick.
const DefaultFlushThreshold = 50

type Store struct {
	mu sync.RWMutex

	events     []*models.SecurityEvent
	byID       map[string]*models.SecurityEvent
	byUser     map[string][]*models.SecurityEvent
	byIP       map[string][]*models.SecurityEvent
	byResource map[string][]*models.SecurityEvent
	lastStamp  time.Time

	audits          []*models.AuditTrail
	auditByID       map[string]*models.AuditTrail
	auditByUser     map[string][]*models.AuditTrail
	auditByResource map[string][]*models.AuditTrail

	pending        []models.LogRecord
	signal         chan struct{}
	flushThreshold int

	now     func() time.Time
	metrics *metrics.Metrics
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithFlushThreshold(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.flushThreshold = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		byID:            make(map[string]*models.SecurityEvent),
		byUser:          make(map[string][]*models.SecurityEvent),
		byIP:            make(map[string][]*models.SecurityEvent),
		byResource:      make(map[string][]*models.SecurityEvent),
		auditByID:       make(map[string]*models.AuditTrail),
		auditByUser:     make(map[string][]*models.AuditTrail),
		auditByResource: make(map[string][]*models.AuditTrail),
		signal:          make(chan struct{}, 1),
		flushThreshold:  DefaultFlushThreshold,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now exposes the store clock so collaborators share one notion of time.
func (s *Store) Now() time.Time {
	return s.now()
}

// Append sanitizes and stores an event and queues it for the sink. A missing
// id or timestamp is assigned; assigned timestamps never go backwards.
func (s *Store) Append(ctx context.Context, e models.SecurityEvent) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e, err := cleanEvent(e)
	if err != nil {
		return "", err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.ComplianceFrameworks = models.EventFrameworks(e)

	s.mu.Lock()
	if _, exists := s.byID[e.ID]; exists {
		s.mu.Unlock()
		return "", dErrors.Integrity("security event " + e.ID + " already exists")
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.nextStamp()
	}
	stored := &e
	s.byID[e.ID] = stored
	s.events = insertSorted(s.events, stored, eventTime)
	addToIndex(s.byUser, e.UserID, stored, eventTime)
	addToIndex(s.byIP, e.SourceIP, stored, eventTime)
	addToIndex(s.byResource, e.Resource, stored, eventTime)
	s.enqueue(models.EventRecord(e))
	s.mu.Unlock()

	s.metrics.IncEventsIngested(string(e.Kind))
	return e.ID, nil
}

// AppendAudit stores an audit trail as given after sanitization. Frameworks
// are derived only when the caller supplied none, so a pre-computed hash
// stays valid.
func (s *Store) AppendAudit(ctx context.Context, a models.AuditTrail) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	a, err := CleanAudit(a.Clone())
	if err != nil {
		return "", err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.ComplianceFrameworks == nil {
		a.ComplianceFrameworks = models.AuditFrameworks(a.ResourceType)
	}
	if a.RetentionPeriodDays <= 0 {
		a.RetentionPeriodDays = models.DefaultAuditRetentionDays
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.auditByID[a.ID]; exists {
		return "", dErrors.Integrity("audit trail " + a.ID + " already exists")
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = s.nextStamp()
	}
	stored := &a
	s.auditByID[a.ID] = stored
	s.audits = insertSorted(s.audits, stored, auditTime)
	addToIndex(s.auditByUser, a.UserID, stored, auditTime)
	addToIndex(s.auditByResource, a.Resource, stored, auditTime)
	s.enqueue(models.AuditRecord(a))
	return a.ID, nil
}

// nextStamp must be called with mu held.
func (s *Store) nextStamp() time.Time {
	ts := s.now()
	if !ts.After(s.lastStamp) {
		ts = s.lastStamp.Add(time.Nanosecond)
	}
	s.lastStamp = ts
	return ts
}

// enqueue must be called with mu held.
func (s *Store) enqueue(rec models.LogRecord) {
	s.pending = append(s.pending, rec)
	s.metrics.SetPendingDepth(len(s.pending))
	if len(s.pending) >= s.flushThreshold {
		select {
		case s.signal <- struct{}{}:
		default:
		}
	}
}

// Get returns a copy of the event with the given id.
func (s *Store) Get(id string) (models.SecurityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return models.SecurityEvent{}, dErrors.New(dErrors.CodeNotFound, "security event not found")
	}
	return e.Clone(), nil
}

// GetAudit returns a copy of the audit trail with the given id.
func (s *Store) GetAudit(id string) (models.AuditTrail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.auditByID[id]
	if !ok {
		return models.AuditTrail{}, dErrors.New(dErrors.CodeNotFound, "audit trail not found")
	}
	return a.Clone(), nil
}

// Query returns copies of matching events in timestamp order. The narrowest
// index for the filter is scanned, bounded by the time range.
func (s *Store) Query(ctx context.Context, f models.EventFilter) ([]models.SecurityEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := s.events
	switch {
	case f.UserID != "":
		candidates = s.byUser[f.UserID]
	case f.SourceIP != "":
		candidates = s.byIP[f.SourceIP]
	case f.Resource != "":
		candidates = s.byResource[f.Resource]
	}
	candidates = timeRange(candidates, f.Since, f.Until, eventTime)

	var out []models.SecurityEvent
	for _, e := range candidates {
		if f.Matches(e) {
			out = append(out, e.Clone())
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out, nil
}

// QueryAudits returns copies of matching audit trails in timestamp order.
func (s *Store) QueryAudits(ctx context.Context, f models.AuditFilter) ([]models.AuditTrail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := s.audits
	switch {
	case f.UserID != "":
		candidates = s.auditByUser[f.UserID]
	case f.Resource != "":
		candidates = s.auditByResource[f.Resource]
	}
	candidates = timeRange(candidates, f.Since, f.Until, auditTime)

	var out []models.AuditTrail
	for _, a := range candidates {
		if f.Matches(a) {
			out = append(out, a.Clone())
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out, nil
}

// DrainPending removes and returns up to max pending records, oldest first.
// max <= 0 drains everything.
func (s *Store) DrainPending(max int) []models.LogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.pending)
	if max > 0 && max < n {
		n = max
	}
	if n == 0 {
		return nil
	}
	out := make([]models.LogRecord, n)
	copy(out, s.pending[:n])
	s.pending = append(s.pending[:0:0], s.pending[n:]...)
	s.metrics.SetPendingDepth(len(s.pending))
	return out
}

// PendingLen returns the number of records waiting for the sink.
func (s *Store) PendingLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}

// PendingSignal fires when the pending buffer reaches the flush threshold.
func (s *Store) PendingSignal() <-chan struct{} {
	return s.signal
}

// PurgeResult counts what one Purge removed.
type PurgeResult struct {
	Events int
	Audits int
}

// Purge drops events and audit trails with a timestamp before cutoff from the
// in-memory window. Records still pending for the sink are not affected.
func (s *Store) Purge(cutoff time.Time) PurgeResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res PurgeResult
	n := countBefore(s.events, cutoff, eventTime)
	for _, e := range s.events[:n] {
		delete(s.byID, e.ID)
		trimIndex(s.byUser, e.UserID, cutoff, eventTime)
		trimIndex(s.byIP, e.SourceIP, cutoff, eventTime)
		trimIndex(s.byResource, e.Resource, cutoff, eventTime)
	}
	s.events = append(s.events[:0:0], s.events[n:]...)
	res.Events = n

	n = countBefore(s.audits, cutoff, auditTime)
	for _, a := range s.audits[:n] {
		delete(s.auditByID, a.ID)
		trimIndex(s.auditByUser, a.UserID, cutoff, auditTime)
		trimIndex(s.auditByResource, a.Resource, cutoff, auditTime)
	}
	s.audits = append(s.audits[:0:0], s.audits[n:]...)
	res.Audits = n
	return res
}

// Stats describes the current in-memory window.
type Stats struct {
	Events    int
	Audits    int
	Pending   int
	Users     int
	SourceIPs int
	Oldest    time.Time
	Newest    time.Time
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{
		Events:    len(s.events),
		Audits:    len(s.audits),
		Pending:   len(s.pending),
		Users:     len(s.byUser),
		SourceIPs: len(s.byIP),
	}
	if len(s.events) > 0 {
		st.Oldest = s.events[0].Timestamp
		st.Newest = s.events[len(s.events)-1].Timestamp
	}
	return st
}

func eventTime(e *models.SecurityEvent) time.Time { return e.Timestamp }
func auditTime(a *models.AuditTrail) time.Time    { return a.Timestamp }

// insertSorted places v after every element with an equal or earlier
// timestamp, so equal timestamps keep insertion order.
func insertSorted[T any](s []*T, v *T, ts func(*T) time.Time) []*T {
	t := ts(v)
	i := sort.Search(len(s), func(i int) bool { return ts(s[i]).After(t) })
	s = append(s, nil)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

// addToIndex skips empty keys; records without a subject are only reachable
// through the primary sequence.
func addToIndex[T any](idx map[string][]*T, key string, v *T, ts func(*T) time.Time) {
	if key == "" {
		return
	}
	idx[key] = insertSorted(idx[key], v, ts)
}

func countBefore[T any](s []*T, cutoff time.Time, ts func(*T) time.Time) int {
	return sort.Search(len(s), func(i int) bool { return !ts(s[i]).Before(cutoff) })
}

// timeRange narrows a sorted slice to [since, until).
func timeRange[T any](s []*T, since, until time.Time, ts func(*T) time.Time) []*T {
	lo, hi := 0, len(s)
	if !since.IsZero() {
		lo = countBefore(s, since, ts)
	}
	if !until.IsZero() {
		hi = countBefore(s, until, ts)
	}
	if lo >= hi {
		return nil
	}
	return s[lo:hi]
}

func trimIndex[T any](idx map[string][]*T, key string, cutoff time.Time, ts func(*T) time.Time) {
	list, ok := idx[key]
	if !ok {
		return
	}
	n := countBefore(list, cutoff, ts)
	if n == len(list) {
		delete(idx, key)
		return
	}
	if n > 0 {
		idx[key] = append(list[:0:0], list[n:]...)
	}
}
