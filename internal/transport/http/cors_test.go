package http

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORS(t *testing.T) {
	t.Parallel()

	t.Run("allow-listed origin is echoed", func(t *testing.T) {
		t.Parallel()
		handler := CORS([]string{"https://example.com"}, okHandler())

		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "https://example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
			t.Fatalf("allow-origin = %q", got)
		}
		if !strings.Contains(rec.Header().Get("Vary"), "Origin") {
			t.Fatalf("Vary header missing")
		}
	})

	t.Run("wildcard allows any origin", func(t *testing.T) {
		t.Parallel()
		handler := CORS([]string{"*"}, okHandler())

		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "https://anywhere.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Fatalf("allow-origin = %q", got)
		}
	})

	t.Run("preflight for a permitted origin short-circuits", func(t *testing.T) {
		t.Parallel()
		reached := false
		handler := CORS([]string{"https://example.com"}, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			reached = true
		}))

		req := httptest.NewRequest(http.MethodOptions, "/api/hold", nil)
		req.Header.Set("Origin", "https://example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}
		if reached {
			t.Fatalf("preflight reached the inner handler")
		}
		if !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), SweepSecretHeader) {
			t.Fatalf("allow-headers = %q", rec.Header().Get("Access-Control-Allow-Headers"))
		}
	})

	t.Run("preflight for an unknown origin is forbidden", func(t *testing.T) {
		t.Parallel()
		handler := CORS([]string{"https://example.com"}, okHandler())

		req := httptest.NewRequest(http.MethodOptions, "/api/hold", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("non-browser requests pass through untouched", func(t *testing.T) {
		t.Parallel()
		handler := CORS([]string{"https://example.com"}, okHandler())

		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if rec.Header().Get("Access-Control-Allow-Origin") != "" {
			t.Fatalf("unexpected CORS headers without an Origin")
		}
	})
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), logger)

	req := httptest.NewRequest(http.MethodGet, "/api/hold", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("request id header missing")
	}
	line := buf.String()
	if !strings.Contains(line, "status=418") || !strings.Contains(line, "path=/api/hold") {
		t.Fatalf("log line = %q", line)
	}
}
