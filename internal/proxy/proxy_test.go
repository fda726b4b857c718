package proxy

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRuntimesProxy_RewritesPath(t *testing.T) {
	var gotPath, gotQuery string
	var gotHeaders http.Header

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotHeaders = r.Header.Clone()
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "x"})
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"language":"python","version":"3.10.0","aliases":["py"]}]`))
	}))
	defer upstream.Close()

	p, err := New(upstream.URL + "/api/v2/")
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/runtimes?foo=bar", nil)
	req.Header.Set("Authorization", "Bearer caller-junk")
	req.Header.Set("Cookie", "session=abc")
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	if gotPath != "/api/v2/runtimes" {
		t.Errorf("upstream path = %q, want /api/v2/runtimes", gotPath)
	}
	if gotQuery != "" {
		t.Errorf("upstream query = %q, want empty", gotQuery)
	}
	if gotHeaders.Get("Authorization") != "" || gotHeaders.Get("Cookie") != "" {
		t.Errorf("credentials forwarded: %v", gotHeaders)
	}
	if rec.Header().Get("Set-Cookie") != "" {
		t.Error("Set-Cookie should be stripped from the response")
	}
	if rec.Header().Get("Cache-Control") == "" {
		t.Error("expected Cache-Control on success")
	}
	if !strings.Contains(rec.Body.String(), `"python"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRuntimesProxy_RejectsWrites(t *testing.T) {
	p, err := New("http://127.0.0.1:1/api/v2")
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/runtimes", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("got status %d, want 405", rec.Code)
	}
}

func TestRuntimesProxy_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	p, err := New("http://" + addr + "/api/v2")
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runtimes", nil))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("got status %d, want 502", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "Failed to connect to execution engine.") {
		t.Errorf("body = %s", body)
	}
}

func TestNew_InvalidURL(t *testing.T) {
	tests := []string{"ftp://piston/api", "::not a url"}
	for _, u := range tests {
		if _, err := New(u); err == nil {
			t.Errorf("New(%q) should fail", u)
		}
	}
}
