package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/catering-checkout/api/responses"
)

func TestRequestIDPropagatesValidHeader(t *testing.T) {
	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(responses.RequestIDHeader)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set(responses.RequestIDHeader, "checkout-abc_123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(responses.RequestIDHeader); got != "checkout-abc_123" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
	if seen != "checkout-abc_123" {
		t.Fatalf("expected handler to see request id, got %q", seen)
	}
}

func TestRequestIDReplacesUnsafeHeader(t *testing.T) {
	cases := map[string]string{
		"missing":  "",
		"too long": strings.Repeat("a", maxRequestIDLength+1),
		"spaces":   "abc def",
		"newline":  "abc\ninjected",
	}
	for name, incoming := range cases {
		t.Run(name, func(t *testing.T) {
			handler := RequestID(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
			req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
			if incoming != "" {
				req.Header[responses.RequestIDHeader] = []string{incoming}
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			got := rec.Header().Get(responses.RequestIDHeader)
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("expected generated uuid, got %q", got)
			}
		})
	}
}
