package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"warden/internal/platform/health"
	"warden/internal/security/adapters"
	"warden/internal/security/models"
	"warden/internal/security/monitor"
	"warden/internal/server"
	"warden/pkg/testutil"
)

// TestContext runs the whole stack in-process for one scenario: a monitor
// over an in-memory sink, a recording alert channel and the real router.
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte

	Clock  *testutil.Clock
	Sink   *adapters.MemorySink
	Alerts *recordingChannel

	server  *httptest.Server
	cancel  context.CancelFunc
	stopped chan error
}

func NewTestContext() *TestContext {
	tc := &TestContext{
		Clock:  testutil.NewClock(time.Now().UTC().Truncate(time.Second)),
		Sink:   adapters.NewMemorySink(),
		Alerts: &recordingChannel{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mon, err := monitor.New(tc.Sink, tc.Alerts,
		monitor.WithClock(tc.Clock.Now),
		monitor.WithLogger(logger),
		monitor.WithConfig(monitor.Config{
			FlushInterval: time.Hour,
			ScanInterval:  time.Hour,
		}),
	)
	if err != nil {
		panic(fmt.Sprintf("build monitor: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	tc.cancel = cancel
	tc.stopped = make(chan error, 1)
	go func() { tc.stopped <- mon.Run(ctx) }()

	tc.server = httptest.NewServer(server.NewRouter(server.Deps{
		Service: mon,
		Health:  health.New("e2e"),
		Logger:  logger,
	}))
	tc.BaseURL = tc.server.URL
	tc.HTTPClient = tc.server.Client()
	tc.HTTPClient.Timeout = 10 * time.Second
	return tc
}

// Shutdown stops the HTTP server and the monitor, waiting for the final
// flush. Calling it again is a no-op.
func (tc *TestContext) Shutdown() error {
	if tc.cancel == nil {
		return nil
	}
	tc.server.Close()
	tc.cancel()
	tc.cancel = nil
	select {
	case err := <-tc.stopped:
		return err
	case <-time.After(10 * time.Second):
		return fmt.Errorf("monitor did not stop within 10s")
	}
}

func (tc *TestContext) Advance(d time.Duration) {
	tc.Clock.Advance(d)
}

func (tc *TestContext) Now() time.Time {
	return tc.Clock.Now()
}

// POST makes a POST request and stores the response
func (tc *TestContext) POST(path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	return tc.POSTRaw(path, string(data))
}

// POSTRaw sends body verbatim as JSON.
func (tc *TestContext) POSTRaw(path, body string) error {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, tc.BaseURL+path, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return tc.do(req)
}

// GET makes a GET request and stores the response
func (tc *TestContext) GET(path string, headers map[string]string) error {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, tc.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	return tc.do(req)
}

func (tc *TestContext) do(req *http.Request) error {
	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// GetResponseField extracts a top-level field from the JSON response
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var data map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	value, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %s not found in response", field)
	}
	return value, nil
}

func (tc *TestContext) DecodeResponse(v any) error {
	return json.NewDecoder(bytes.NewReader(tc.LastResponseBody)).Decode(v)
}

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.LastResponseBody
}

func (tc *TestContext) DeliveredAlerts() []models.Alert {
	return tc.Alerts.snapshot()
}

func (tc *TestContext) SinkRecords(stream string) []models.LogRecord {
	return tc.Sink.Records(stream)
}

type recordingChannel struct {
	mu     sync.Mutex
	alerts []models.Alert
}

func (c *recordingChannel) Notify(_ context.Context, alert models.Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, alert)
	return nil
}

func (c *recordingChannel) snapshot() []models.Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Alert, len(c.alerts))
	copy(out, c.alerts)
	return out
}
