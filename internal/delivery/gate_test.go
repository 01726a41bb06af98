package delivery

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubThrottleStore struct {
	ok   bool
	err  error
	keys []string
	ttls []time.Duration
}

func (s *stubThrottleStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	s.keys = append(s.keys, key)
	s.ttls = append(s.ttls, ttl)
	return s.ok, s.err
}

func (s *stubThrottleStore) ThrottleKey(scope, id string) string {
	return "cc:throttle:" + scope + ":" + id
}

func TestIntervalGate(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
	gate := NewIntervalGate(500*time.Millisecond, clock.Now)
	ctx := context.Background()

	if !gate.Allow(ctx, "a") {
		t.Fatal("expected first call allowed")
	}
	if gate.Allow(ctx, "a") {
		t.Fatal("expected immediate second call throttled")
	}
	if !gate.Allow(ctx, "b") {
		t.Fatal("expected other keys unaffected")
	}
	clock.Advance(500 * time.Millisecond)
	if !gate.Allow(ctx, "a") {
		t.Fatal("expected call allowed once interval elapsed")
	}
	gate.Forget("a")
	if !gate.Allow(ctx, "a") {
		t.Fatal("expected forgotten key allowed")
	}
}

func TestIntervalGateDisabled(t *testing.T) {
	gate := NewIntervalGate(0, nil)
	for i := 0; i < 3; i++ {
		if !gate.Allow(context.Background(), "a") {
			t.Fatal("expected zero interval to never throttle")
		}
	}
}

func TestRedisGate(t *testing.T) {
	store := &stubThrottleStore{ok: true}
	gate := NewRedisGate(store, 500*time.Millisecond, nil)

	if !gate.Allow(context.Background(), "session-1") {
		t.Fatal("expected allowed when key was set")
	}
	if store.keys[0] != "cc:throttle:quote:session-1" {
		t.Fatalf("unexpected key %q", store.keys[0])
	}
	if store.ttls[0] != 500*time.Millisecond {
		t.Fatalf("unexpected ttl %v", store.ttls[0])
	}

	store.ok = false
	if gate.Allow(context.Background(), "session-1") {
		t.Fatal("expected throttled when key already exists")
	}
}

func TestRedisGateFailsOpen(t *testing.T) {
	gate := NewRedisGate(&stubThrottleStore{err: errors.New("connection refused")}, time.Second, nil)
	if !gate.Allow(context.Background(), "session-1") {
		t.Fatal("expected redis errors to allow the fetch")
	}
}
