package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"warden/internal/platform/health"
	"warden/internal/security/handler/mocks"
	"warden/internal/security/monitor"
)

func newRouter(t *testing.T) (http.Handler, *mocks.MockService) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	r := NewRouter(Deps{
		Service:        svc,
		Health:         health.New("test"),
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		TrustedProxies: []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")},
		MaxBodyBytes:   256,
		Metrics:        true,
	})
	return r, svc
}

func TestRouterResolvesClientBehindTrustedProxy(t *testing.T) {
	r, svc := newRouter(t)
	svc.EXPECT().LogAuthenticationEvent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, req monitor.AuthenticationRequest) (string, error) {
			assert.Equal(t, "198.51.100.20", req.SourceIP)
			assert.Equal(t, "Mozilla/5.0", req.UserAgent)
			return "evt-1", nil
		})

	req := httptest.NewRequest(http.MethodPost, "/security/events/authentication",
		strings.NewReader(`{"user_id":"alice","success":true}`))
	req.RemoteAddr = "10.1.2.3:5555"
	req.Header.Set("X-Forwarded-For", "198.51.100.20")
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouterRejectsOversizedAndNonJSONBodies(t *testing.T) {
	r, _ := newRouter(t)

	big := `{"user_id":"` + strings.Repeat("a", 512) + `","success":true}`
	req := httptest.NewRequest(http.MethodPost, "/security/events/authentication", strings.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/security/events/authentication", strings.NewReader("user_id=alice"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestRouterServesHealthAndMetrics(t *testing.T) {
	r, _ := newRouter(t)

	for _, path := range []string{"/health", "/health/live", "/health/ready", "/metrics"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
}
