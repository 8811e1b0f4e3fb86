package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.Register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestLiveness(t *testing.T) {
	rec := serve(New("test"), "/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}

func TestReadiness(t *testing.T) {
	t.Run("all checks up", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("log_sink", func(context.Context) error { return nil })

		rec := serve(h, "/health/ready")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ready","checks":{"log_sink":"up"}}`, rec.Body.String())
	})

	t.Run("one check down", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("log_sink", func(context.Context) error { return nil })
		h.RegisterCheck("alert_channel", func(context.Context) error { return errors.New("nats: no servers available") })

		rec := serve(h, "/health/ready")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var resp ReadinessResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "not_ready", resp.Status)
		assert.Equal(t, "up", resp.Checks["log_sink"])
		assert.Equal(t, "down: nats: no servers available", resp.Checks["alert_channel"])
	})

	t.Run("checks run under a deadline", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("log_sink", func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return nil
		})
		assert.Equal(t, http.StatusOK, serve(h, "/health/ready").Code)
	})
}

func TestStatusIncludesComponents(t *testing.T) {
	h := New("staging")
	h.startTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return h.startTime.Add(90 * time.Second) }
	h.RegisterStats("flusher", func() any { return map[string]int{"flushed": 42} })

	rec := serve(h, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "staging", resp.Environment)
	assert.Equal(t, int64(90), resp.UptimeSeconds)
	assert.Equal(t, "2026-03-01T12:01:30Z", resp.Timestamp)
	assert.Equal(t, map[string]any{"flushed": float64(42)}, resp.Components["flusher"])
}
