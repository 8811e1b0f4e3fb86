package e2e

import (
	"time"

	"warden/internal/security/models"
)

// scenario forwards to the current TestContext. Before swaps in a fresh one
// per scenario while the step registrations stay bound to the holder.
type scenario struct {
	tc *TestContext
}

func (s *scenario) POST(path string, body any) error { return s.tc.POST(path, body) }

func (s *scenario) POSTRaw(path, body string) error { return s.tc.POSTRaw(path, body) }

func (s *scenario) GET(path string, headers map[string]string) error { return s.tc.GET(path, headers) }

func (s *scenario) GetResponseField(field string) (any, error) { return s.tc.GetResponseField(field) }

func (s *scenario) DecodeResponse(v any) error { return s.tc.DecodeResponse(v) }

func (s *scenario) GetLastResponseStatus() int { return s.tc.GetLastResponseStatus() }

func (s *scenario) GetLastResponseBody() []byte { return s.tc.GetLastResponseBody() }

func (s *scenario) Advance(d time.Duration) { s.tc.Advance(d) }

func (s *scenario) Now() time.Time { return s.tc.Now() }

func (s *scenario) DeliveredAlerts() []models.Alert { return s.tc.DeliveredAlerts() }

func (s *scenario) SinkRecords(stream string) []models.LogRecord { return s.tc.SinkRecords(stream) }

func (s *scenario) Shutdown() error { return s.tc.Shutdown() }
