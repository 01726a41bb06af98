package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/catering-checkout/pkg/config"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthReady(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	tests := []struct {
		name   string
		pinger *stubPinger
		want   int
	}{
		{"redis disabled", nil, http.StatusOK},
		{"redis ok", &stubPinger{}, http.StatusOK},
		{"redis down", &stubPinger{err: errors.New("dial tcp: refused")}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		handler := HealthReady(cfg, nil, nil)
		if tt.pinger != nil {
			handler = HealthReady(cfg, nil, *tt.pinger)
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		if resp.Code != tt.want {
			t.Fatalf("%s: expected %d got %d", tt.name, tt.want, resp.Code)
		}
	}
}

func TestHealthLive(t *testing.T) {
	t.Parallel()

	resp := httptest.NewRecorder()
	HealthLive(&config.Config{App: config.AppConfig{Env: "dev"}}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get("X-Catering-Env") != "dev" {
		t.Fatalf("expected env header")
	}
}
