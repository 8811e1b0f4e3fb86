package metadata

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warden/pkg/requestcontext"
)

func TestHandler(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trusted    []string
		expectIP   string
	}{
		{name: "remote addr without proxies", remoteAddr: "192.168.1.1:12345",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.1"}, expectIP: "192.168.1.1"},
		{name: "xff from trusted proxy", remoteAddr: "10.0.0.1:12345", trusted: []string{"10.0.0.0/8"},
			headers: map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.1"}, expectIP: "203.0.113.1"},
		{name: "x-real-ip from trusted proxy", remoteAddr: "10.0.0.1:1", trusted: []string{"10.0.0.0/8"},
			headers: map[string]string{"X-Real-IP": "198.51.100.4"}, expectIP: "198.51.100.4"},
		{name: "malformed xff falls back", remoteAddr: "10.0.0.1:1", trusted: []string{"10.0.0.0/8"},
			headers: map[string]string{"X-Forwarded-For": "not-an-ip"}, expectIP: "10.0.0.1"},
		{name: "oversized xff falls back", remoteAddr: "10.0.0.1:1", trusted: []string{"10.0.0.0/8"},
			headers: map[string]string{"X-Forwarded-For": strings.Repeat("1", MaxForwardedHeaderLength+1)}, expectIP: "10.0.0.1"},
		{name: "ipv6 remote", remoteAddr: "[2001:db8::1]:443", expectIP: "2001:db8::1"},
		{name: "mapped ipv4 remote", remoteAddr: "[::ffff:192.0.2.1]:80", expectIP: "192.0.2.1"},
		{name: "unparseable remote", remoteAddr: "pipe", expectIP: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefixes, err := ParseTrustedProxies(tt.trusted)
			require.NoError(t, err)

			var ip, ua string
			h := NewMiddleware(Config{TrustedProxies: prefixes}).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ip = requestcontext.ClientIP(r.Context())
				ua = requestcontext.UserAgent(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			req.Header.Set("User-Agent", "curl/8.5.0")
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.expectIP, ip)
			assert.Equal(t, "curl/8.5.0", ua)
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	prefixes, err := ParseTrustedProxies([]string{"10.0.0.0/8", " ", "fd00::/8"})
	require.NoError(t, err)
	assert.Len(t, prefixes, 2)

	_, err = ParseTrustedProxies([]string{"10.0.0.0"})
	assert.Error(t, err)
}
