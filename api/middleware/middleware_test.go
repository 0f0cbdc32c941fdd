package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ldraney/pal-e-billing/pkg/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAPIKey(t *testing.T) {
	cases := []struct {
		name     string
		expected string
		header   string
		want     int
	}{
		{name: "match", expected: "secret", header: "secret", want: http.StatusNoContent},
		{name: "missing", expected: "secret", header: "", want: http.StatusUnauthorized},
		{name: "mismatch", expected: "secret", header: "secreT", want: http.StatusUnauthorized},
		{name: "prefix", expected: "secret", header: "sec", want: http.StatusUnauthorized},
		{name: "unconfigured", expected: "", header: "anything", want: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/status/1", nil)
			if tc.header != "" {
				req.Header.Set(APIKeyHeader, tc.header)
			}
			rec := httptest.NewRecorder()
			APIKey(tc.expected, nil)(okHandler()).ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestRequestIDEchoesOrGenerates(t *testing.T) {
	h := RequestID(nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "req-1" {
		t.Fatalf("expected echoed request id, got %q", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected generated request id")
	}
}

func TestLoggingRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})
	h := Logging(logg)(okHandler())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/activate-ancillary/1", nil))

	out := buf.String()
	if !strings.Contains(out, `"status":204`) || !strings.Contains(out, `"method":"PUT"`) {
		t.Fatalf("unexpected log output %s", out)
	}
}

func TestRecovererReturnsInternalError(t *testing.T) {
	h := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "INTERNAL_ERROR") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}
