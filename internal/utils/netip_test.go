package utils

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trustProxy bool
		expected   string
	}{
		{
			name:       "remote addr only",
			remoteAddr: "1.2.3.4:5555",
			expected:   "1.2.3.4",
		},
		{
			name:       "ipv4 mapped ipv6 is unmapped",
			remoteAddr: "[::ffff:10.0.0.7]:4000",
			expected:   "10.0.0.7",
		},
		{
			name:       "ipv6 stays ipv6",
			remoteAddr: "[2001:db8::1]:4000",
			expected:   "2001:db8::1",
		},
		{
			name:       "forwarded header ignored without trust",
			remoteAddr: "1.2.3.4:5555",
			headers:    map[string]string{"X-Forwarded-For": "9.9.9.9"},
			expected:   "1.2.3.4",
		},
		{
			name:       "forwarded header honoured with trust",
			remoteAddr: "127.0.0.1:5555",
			headers:    map[string]string{"X-Forwarded-For": "9.9.9.9, 10.0.0.1"},
			trustProxy: true,
			expected:   "9.9.9.9",
		},
		{
			name:       "cloudflare header wins",
			remoteAddr: "127.0.0.1:5555",
			headers:    map[string]string{"CF-Connecting-IP": "8.8.8.8", "X-Forwarded-For": "9.9.9.9"},
			trustProxy: true,
			expected:   "8.8.8.8",
		},
		{
			name:       "real ip fallback",
			remoteAddr: "127.0.0.1:5555",
			headers:    map[string]string{"X-Real-IP": "7.7.7.7"},
			trustProxy: true,
			expected:   "7.7.7.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r, tt.trustProxy); got != tt.expected {
				t.Errorf("ClientIP() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestCanonicalHost(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"1.2.3.4", "1.2.3.4"},
		{"::ffff:1.2.3.4", "1.2.3.4"},
		{"fe80::1%eth0", "fe80::1"},
		{"svc.internal", "svc.internal"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := CanonicalHost(tt.in); got != tt.expected {
				t.Errorf("CanonicalHost(%q) = %q, want %q", tt.in, got, tt.expected)
			}
		})
	}
}

func TestIPMatcher(t *testing.T) {
	m := NewIPMatcher([]string{"10.0.0.0/8", "192.168.1.10", " ", "garbage"})

	if m.IsEmpty() {
		t.Fatal("matcher should not be empty")
	}

	tests := []struct {
		ip       string
		expected bool
	}{
		{"10.1.2.3", true},
		{"::ffff:10.1.2.3", true},
		{"192.168.1.10", true},
		{"192.168.1.11", false},
		{"not-an-ip", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			if got := m.Allow(tt.ip); got != tt.expected {
				t.Errorf("Allow(%q) = %v, want %v", tt.ip, got, tt.expected)
			}
		})
	}

	if !NewIPMatcher(nil).IsEmpty() {
		t.Error("matcher built from nil should be empty")
	}
}
