package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrSnakeDoc/beacon/internal/logger"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAllowOnlyCIDRS(t *testing.T) {
	log := logger.New("error", false)

	tests := []struct {
		name       string
		allowed    []string
		remoteAddr string
		expected   int
	}{
		{"empty list passes through", nil, "8.8.8.8:1234", http.StatusOK},
		{"inside cidr", []string{"10.0.0.0/8"}, "10.1.2.3:1234", http.StatusOK},
		{"outside cidr", []string{"10.0.0.0/8"}, "8.8.8.8:1234", http.StatusForbidden},
		{"single ip", []string{"127.0.0.1"}, "127.0.0.1:1234", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := AllowOnlyCIDRS(tt.allowed, false, log)(okHandler)
			r := httptest.NewRequest("GET", "/infra", nil)
			r.RemoteAddr = tt.remoteAddr
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			if w.Code != tt.expected {
				t.Errorf("status = %d, want %d", w.Code, tt.expected)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{Burst: 2, RefillPerIPPerMin: 1})(okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		r := httptest.NewRequest("GET", "/discovery", nil)
		r.RemoteAddr = "1.2.3.4:1000"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		codes = append(codes, w.Code)

		if i == 2 {
			if w.Header().Get("Retry-After") == "" {
				t.Error("missing Retry-After on 429")
			}
		}
	}

	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	// Another client has its own bucket.
	r := httptest.NewRequest("GET", "/discovery", nil)
	r.RemoteAddr = "5.6.7.8:1000"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", w.Code)
	}
}

func TestLimiterSweepsIdleVisitors(t *testing.T) {
	l := newLimiter(RateLimitConfig{Burst: 1, RefillPerIPPerMin: 60, IdleTTL: time.Minute, SweepInterval: time.Second})
	now := time.Now()

	l.allow("a", now)
	l.allow("b", now.Add(2*time.Minute))

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.visitors["a"]; ok {
		t.Error("idle visitor was not swept")
	}
	if _, ok := l.visitors["b"]; !ok {
		t.Error("active visitor was swept")
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name     string
		allowed  []string
		origin   string
		expected string
	}{
		{"open", nil, "https://any.io", "*"},
		{"allowed origin echoed", []string{"*.example.com"}, "https://app.example.com", "https://app.example.com"},
		{"allowed with port", []string{"localhost"}, "http://localhost:3000", "http://localhost:3000"},
		{"foreign origin", []string{"example.com"}, "https://evil.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/discovery", nil)
			r.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			CORS(tt.allowed)(okHandler).ServeHTTP(w, r)
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.expected {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestLogCapturesStatus(t *testing.T) {
	h := Log(logger.New("error", false))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", w.Code)
	}

	// httptest.ResponseRecorder cannot be hijacked.
	sw := &statusWriter{ResponseWriter: httptest.NewRecorder()}
	if _, _, err := sw.Hijack(); err == nil {
		t.Error("Hijack() on a recorder should fail")
	}
}
