package adapters

import (
	"context"
	"maps"
	"slices"
	"sync"

	"warden/internal/security/models"
)

// MemorySink keeps every submitted record per stream. FailNext makes the next
// calls fail, in order, to exercise the flusher's retry path.
type MemorySink struct {
	mu       sync.Mutex
	streams  map[string][]models.LogRecord
	failures []error
	calls    int
}

func NewMemorySink() *MemorySink {
	return &MemorySink{streams: make(map[string][]models.LogRecord)}
}

func (s *MemorySink) SubmitBatch(ctx context.Context, stream string, records []models.LogRecord) error {
	if err := ctx.Err(); err != nil {
		return classify("memory sink", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		return classify("memory sink", err)
	}
	for _, r := range records {
		s.streams[stream] = append(s.streams[stream], cloneRecord(r))
	}
	return nil
}

// FailNext queues errors returned by the next len(errs) calls.
func (s *MemorySink) FailNext(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, errs...)
}

// Records returns a copy of what stream has received.
func (s *MemorySink) Records(stream string) []models.LogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.streams[stream])
}

func (s *MemorySink) Streams() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.streams))
}

// Len counts records across all streams.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rs := range s.streams {
		n += len(rs)
	}
	return n
}

// Calls counts SubmitBatch invocations, failed ones included.
func (s *MemorySink) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *MemorySink) Ping(context.Context) error { return nil }

func cloneRecord(r models.LogRecord) models.LogRecord {
	switch {
	case r.Event != nil:
		return models.EventRecord(*r.Event)
	case r.Audit != nil:
		return models.AuditRecord(*r.Audit)
	}
	return r
}
