package broadcast

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCheckOrigin(t *testing.T) {
	allowed := []string{"https://cam.example.com", "https://viewer.example.com:8443/dashboard"}

	tests := []struct {
		name          string
		origin        string
		isDevelopment bool
		want          bool
	}{
		{"empty origin", "", false, true},
		{"listed origin", "https://cam.example.com", false, true},
		{"listed origin from url with path", "https://viewer.example.com:8443", false, true},

		{"different host", "https://evil.com", false, false},
		{"different port", "https://cam.example.com:9090", false, false},
		{"http instead of https", "http://cam.example.com", false, false},
		{"subdomain", "https://sub.cam.example.com", false, false},

		{"localhost dev", "http://localhost:3000", true, true},
		{"127.0.0.1 dev", "http://127.0.0.1:5001", true, true},
		{"localhost prod rejected", "http://localhost:3000", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewCheckOrigin(allowed, tt.isDevelopment)
			r, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/motion", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, checker(r))
		})
	}
}

func TestNewCheckOrigin_Wildcard(t *testing.T) {
	checker := NewCheckOrigin([]string{"*"}, false)
	r, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/motion", nil)
	r.Header.Set("Origin", "https://anywhere.example.org")

	assert.True(t, checker(r))
}

func TestExtractOrigin(t *testing.T) {
	tests := []struct {
		name   string
		rawURL string
		want   string
	}{
		{"full URL with path", "https://example.com/motion", "https://example.com"},
		{"URL with port", "https://example.com:8443/path", "https://example.com:8443"},
		{"http URL", "http://localhost:3000", "http://localhost:3000"},
		{"empty string", "", ""},
		{"no host", "mailto:user@example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractOrigin(tt.rawURL))
		})
	}
}
