package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codeplay/internal/monitor"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiter_FixedWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newRateLimiter(100, time.Minute)
	l.now = func() time.Time { return now }
	handler := l.middleware(monitor.NewMetrics())(okHandler())

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/execute", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 1; i <= 100; i++ {
		if rec := send("10.0.0.1:5000"); rec.Code != http.StatusOK {
			t.Fatalf("request %d got %d, want 200", i, rec.Code)
		}
	}

	// a new connection from the same host shares the window
	now = now.Add(20 * time.Second)
	rec := send("10.0.0.1:6000")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("request 101 got %d, want 429", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Rate limit exceeded. Please wait a moment.") {
		t.Errorf("body = %s", rec.Body.String())
	}
	if got := rec.Header().Get("Retry-After"); got != "40" {
		t.Errorf("Retry-After = %q, want 40", got)
	}

	if rec := send("10.0.0.2:5000"); rec.Code != http.StatusOK {
		t.Errorf("other client got %d, want 200", rec.Code)
	}

	now = now.Add(40 * time.Second)
	if rec := send("10.0.0.1:5000"); rec.Code != http.StatusOK {
		t.Errorf("after window reset got %d, want 200", rec.Code)
	}
}

func TestRateLimiter_CloseStopsEviction(t *testing.T) {
	l := newRateLimiter(1, time.Minute)
	go l.run(time.Millisecond)

	closed := make(chan struct{})
	go func() {
		l.close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("eviction loop did not stop")
	}
	select {
	case <-l.done:
	default:
		t.Error("done should be closed after close returns")
	}
	l.close()
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		header string
		value  string
		want   int
	}{
		{"no keys configured", nil, "", "", http.StatusOK},
		{"missing key", []string{"good-key"}, "", "", http.StatusUnauthorized},
		{"invalid key", []string{"good-key"}, "X-API-Key", "bad-key", http.StatusUnauthorized},
		{"valid header key", []string{"good-key"}, "X-API-Key", "good-key", http.StatusOK},
		{"valid bearer token", []string{"good-key"}, "Authorization", "Bearer good-key", http.StatusOK},
		{"empty bearer", []string{"good-key"}, "Authorization", "Bearer ", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := AuthMiddleware(tt.keys, "X-API-Key")(okHandler())
			req := httptest.NewRequest(http.MethodPost, "/api/execute", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("got status %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRateLimiter_Evict(t *testing.T) {
	now := time.Now()
	l := newRateLimiter(1, time.Minute)
	l.now = func() time.Time { return now }

	l.allow("a")
	now = now.Add(30 * time.Second)
	l.allow("b")
	now = now.Add(40 * time.Second)
	l.evict()

	if _, ok := l.clients["a"]; ok {
		t.Error("expired window for a should be evicted")
	}
	if _, ok := l.clients["b"]; !ok {
		t.Error("live window for b should be kept")
	}
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware([]string{"*"})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/execute", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight got %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
		t.Errorf("Allow-Methods = %q", got)
	}
}

func TestCORSMiddleware_AllowList(t *testing.T) {
	handler := CORSMiddleware([]string{"https://play.example.com"})(okHandler())

	tests := []struct {
		origin string
		want   string
	}{
		{"https://play.example.com", "https://play.example.com"},
		{"https://evil.example.com", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", tt.origin)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
			t.Errorf("origin %s: Allow-Origin = %q, want %q", tt.origin, got, tt.want)
		}
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "abc-123" || rec.Header().Get("X-Request-ID") != "abc-123" {
		t.Errorf("request id = %q / %q", seen, rec.Header().Get("X-Request-ID"))
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || seen == "abc-123" {
		t.Errorf("generated request id = %q", seen)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("got status %d, want 500", rec.Code)
	}
}
