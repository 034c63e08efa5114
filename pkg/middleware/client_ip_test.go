package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetClientIP(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.168.5.5"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		trusted    TrustedProxies
		headers    map[string]string
		remoteAddr string
		expectedIP string
	}{
		{
			name:       "forwarding ignored without trusted proxies",
			headers:    map[string]string{"X-Forwarded-For": "192.168.1.1", "X-Real-IP": "192.168.1.2"},
			remoteAddr: "10.0.0.1:12345",
			expectedIP: "10.0.0.1",
		},
		{
			name:       "forwarding ignored from untrusted peer",
			trusted:    trusted,
			headers:    map[string]string{"X-Forwarded-For": "192.168.1.1"},
			remoteAddr: "203.0.113.9:12345",
			expectedIP: "203.0.113.9",
		},
		{
			name:       "rightmost untrusted hop",
			trusted:    trusted,
			headers:    map[string]string{"X-Forwarded-For": "6.6.6.6, 198.51.100.4, 10.1.2.3"},
			remoteAddr: "10.0.0.1:12345",
			expectedIP: "198.51.100.4",
		},
		{
			name:       "all hops trusted",
			trusted:    trusted,
			headers:    map[string]string{"X-Forwarded-For": "10.9.9.9, 192.168.5.5"},
			remoteAddr: "10.0.0.1:12345",
			expectedIP: "10.9.9.9",
		},
		{
			name:       "real ip header behind trusted proxy",
			trusted:    trusted,
			headers:    map[string]string{"X-Real-IP": "198.51.100.8"},
			remoteAddr: "192.168.5.5:12345",
			expectedIP: "198.51.100.8",
		},
		{
			name:       "trusted peer without headers",
			trusted:    trusted,
			remoteAddr: "10.0.0.1:12345",
			expectedIP: "10.0.0.1",
		},
		{
			name:       "remote addr unparseable",
			trusted:    trusted,
			remoteAddr: "pipe",
			expectedIP: "pipe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.expectedIP, getClientIP(r, tt.trusted))
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{" 10.0.0.0/8 ", "", "::1", "172.16.3.4/12"})
	require.NoError(t, err)
	require.Len(t, trusted, 3)

	assert.True(t, trusted.Contains("10.200.0.1"))
	assert.True(t, trusted.Contains("::1"))
	assert.True(t, trusted.Contains("::ffff:10.0.0.1"))
	assert.True(t, trusted.Contains("172.31.255.255"))
	assert.False(t, trusted.Contains("172.32.0.1"))
	assert.False(t, trusted.Contains("not-an-ip"))

	_, err = ParseTrustedProxies([]string{"10.0.0.0/33"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"proxy.internal"})
	assert.Error(t, err)
}
