package server

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"smartats/internal/errors"
)

func TestRateLimiterAllowsBurst(t *testing.T) {
	limiter := NewRateLimiter(60, 3, errors.NewLogger(slog.LevelError))
	defer limiter.Close()

	for i := 0; i < 3; i++ {
		if !limiter.Allow("client") {
			t.Fatalf("request %d denied within burst capacity", i+1)
		}
	}

	if limiter.Allow("client") {
		t.Error("request allowed after burst exhausted")
	}
}

func TestRateLimiterIndependentKeys(t *testing.T) {
	limiter := NewRateLimiter(60, 1, errors.NewLogger(slog.LevelError))
	defer limiter.Close()

	if !limiter.Allow("first") {
		t.Fatal("first key denied")
	}
	if !limiter.Allow("second") {
		t.Error("second key denied, limiters should be independent")
	}
	if limiter.Allow("first") {
		t.Error("first key allowed past its burst")
	}
}

func TestRateLimiterStats(t *testing.T) {
	limiter := NewRateLimiter(120, 5, errors.NewLogger(slog.LevelError))
	defer limiter.Close()

	limiter.Allow("a")
	limiter.Allow("b")

	stats := limiter.GetStats()
	if stats["active_limiters"] != 2 {
		t.Errorf("active_limiters = %v, want 2", stats["active_limiters"])
	}
	if stats["rate_per_minute"] != 120.0 {
		t.Errorf("rate_per_minute = %v, want 120", stats["rate_per_minute"])
	}
	if stats["burst_capacity"] != 5 {
		t.Errorf("burst_capacity = %v, want 5", stats["burst_capacity"])
	}
}

func TestGetRateLimitKey(t *testing.T) {
	tests := []struct {
		name     string
		byAPIKey bool
		byIP     bool
		headers  map[string]string
		want     string
	}{
		{
			name:     "api key header preferred",
			byAPIKey: true,
			byIP:     true,
			headers:  map[string]string{"X-API-Key": "abc123"},
			want:     "api:abc123",
		},
		{
			name:     "bearer token fallback",
			byAPIKey: true,
			headers:  map[string]string{"Authorization": "Bearer tok456"},
			want:     "api:tok456",
		},
		{
			name: "ip when api key limiting disabled",
			byIP: true,
			want: "ip:192.0.2.1",
		},
		{
			name:     "falls back to ip without credentials",
			byAPIKey: true,
			byIP:     true,
			want:     "ip:192.0.2.1",
		},
		{
			name: "empty when both disabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/analyze", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			if got := getRateLimitKey(req, tt.byAPIKey, tt.byIP); got != tt.want {
				t.Errorf("getRateLimitKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "x-forwarded-for first ip",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"},
			remote:  "192.0.2.1:1234",
			want:    "203.0.113.7",
		},
		{
			name:    "x-real-ip",
			headers: map[string]string{"X-Real-IP": "203.0.113.9"},
			remote:  "192.0.2.1:1234",
			want:    "203.0.113.9",
		},
		{
			name:   "remote addr fallback",
			remote: "192.0.2.5:4321",
			want:   "192.0.2.5",
		},
		{
			name:    "invalid forwarded header ignored",
			headers: map[string]string{"X-Forwarded-For": "not-an-ip"},
			remote:  "192.0.2.5:4321",
			want:    "192.0.2.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := maskAPIKey("short"); got != "****" {
		t.Errorf("maskAPIKey(short) = %q", got)
	}
	if got := maskAPIKey("abcdefgh12345678"); got != "abcdefgh****" {
		t.Errorf("maskAPIKey(long) = %q", got)
	}
}
