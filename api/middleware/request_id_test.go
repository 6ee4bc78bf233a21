package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestIDPassesThroughCallerID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "caller-id-123")
	resp := httptest.NewRecorder()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	RequestID(middlewareTestLogger())(next).ServeHTTP(resp, req)

	if got := resp.Header().Get("X-Request-Id"); got != "caller-id-123" {
		t.Fatalf("expected caller id echoed, got %q", got)
	}
}

func TestRequestIDMintsWhenMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	RequestID(middlewareTestLogger())(next).ServeHTTP(resp, req)

	got := resp.Header().Get("X-Request-Id")
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("expected a generated uuid, got %q", got)
	}
}

func TestRequestIDReplacesUnusableCallerID(t *testing.T) {
	for name, raw := range map[string]string{
		"control characters": "bad\nid",
		"too long":           strings.Repeat("a", 100),
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-Id", raw)
		resp := httptest.NewRecorder()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
		RequestID(middlewareTestLogger())(next).ServeHTTP(resp, req)

		got := resp.Header().Get("X-Request-Id")
		if _, err := uuid.Parse(got); err != nil {
			t.Fatalf("%s: expected replacement uuid, got %q", name, got)
		}
	}
}
