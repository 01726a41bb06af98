package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/catering-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/catering-checkout/pkg/errors"
)

const nextPath = "/api/v1/checkout/sessions/sess-1/next"

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func advanceRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, nextPath, strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	rc := chi.NewRouteContext()
	rc.URLParams.Add("sessionId", "sess-1")
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func stepIs(step enums.CheckoutStep) StepLookup {
	return func(*http.Request) (enums.CheckoutStep, bool) { return step, true }
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	return payload.Error.Code
}

func TestAdvanceIdempotencyRequiresKeyAtReview(t *testing.T) {
	mw := AdvanceIdempotency(newFakeStore(), stepIs(enums.CheckoutStepReview), nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	})

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, advanceRequest("", `{}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("order must not be placed without an idempotency key")
	}
}

func TestAdvanceIdempotencyKeyOptionalBeforeReview(t *testing.T) {
	steps := []enums.CheckoutStep{enums.CheckoutStepDeliveryMethod, enums.CheckoutStepPayment}
	for _, step := range steps {
		store := newFakeStore()
		mw := AdvanceIdempotency(store, stepIs(step), nil)
		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
			w.WriteHeader(http.StatusOK)
		})

		resp := httptest.NewRecorder()
		mw(handler).ServeHTTP(resp, advanceRequest("", `{}`))
		if resp.Code != http.StatusOK || !handlerCalled {
			t.Fatalf("%s: expected pass-through, got %d called=%v", step, resp.Code, handlerCalled)
		}
		if len(store.data) != 0 {
			t.Fatalf("%s: expected nothing stored without a key, got %v", step, store.data)
		}
	}
}

func TestAdvanceIdempotencyUnknownSessionPassesThrough(t *testing.T) {
	unknown := func(*http.Request) (enums.CheckoutStep, bool) { return "", false }
	mw := AdvanceIdempotency(newFakeStore(), unknown, nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusNotFound)
	})

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, advanceRequest("", `{}`))
	if !handlerCalled || resp.Code != http.StatusNotFound {
		t.Fatalf("expected the handler to report the missing session, got %d", resp.Code)
	}
}

func TestAdvanceIdempotencyPassesThroughWithoutStore(t *testing.T) {
	mw := AdvanceIdempotency(nil, stepIs(enums.CheckoutStepReview), nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), advanceRequest("", `{}`))
	if !handlerCalled {
		t.Fatal("expected handler to run when no store is configured")
	}
}

func TestAdvanceIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := AdvanceIdempotency(store, stepIs(enums.CheckoutStepReview), nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"step":"confirmation"}}`))
	})

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, advanceRequest("abc", `{}`))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected first response 200 got %d", resp.Code)
	}

	// the session is now at confirmation; the duplicate still replays
	mw = AdvanceIdempotency(store, stepIs(enums.CheckoutStepConfirmation), nil)
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, advanceRequest("abc", `{}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected replay status 200 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"data":{"step":"confirmation"}}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestAdvanceIdempotencyRejectsDuplicateInProgress(t *testing.T) {
	store := newFakeStore()
	mw := AdvanceIdempotency(store, stepIs(enums.CheckoutStepReview), nil)
	var calls int
	var inner *httptest.ResponseRecorder
	var handler http.Handler
	handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			// a duplicate arrives while the first request is still placing the order
			inner = httptest.NewRecorder()
			mw(handler).ServeHTTP(inner, advanceRequest("dup", `{}`))
		}
		w.WriteHeader(http.StatusOK)
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), advanceRequest("dup", `{}`))

	if calls != 1 {
		t.Fatalf("expected the duplicate to be held off, handler ran %d times", calls)
	}
	if inner.Code != http.StatusConflict {
		t.Fatalf("expected 409 for the in-progress duplicate, got %d", inner.Code)
	}
	if code := errorCode(t, inner); code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, code)
	}
}

func TestAdvanceIdempotencyReleasesKeyOnServerError(t *testing.T) {
	store := newFakeStore()
	mw := AdvanceIdempotency(store, stepIs(enums.CheckoutStepReview), nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 2; i++ {
		mw(handler).ServeHTTP(httptest.NewRecorder(), advanceRequest("retry-me", `{}`))
	}
	if calls != 2 {
		t.Fatalf("expected retries after a server error to reach the handler, got %d calls", calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("expected nothing persisted, got %v", store.data)
	}
}

func TestAdvanceIdempotencyDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	mw := AdvanceIdempotency(store, stepIs(enums.CheckoutStepReview), nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), advanceRequest("xyz", `{"a":1}`))

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, advanceRequest("xyz", `{"a":2}`))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if code := errorCode(t, resp); code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, code)
	}
}

func TestAdvanceIdempotencyScopesKeysPerSession(t *testing.T) {
	store := newFakeStore()
	mw := AdvanceIdempotency(store, stepIs(enums.CheckoutStepReview), nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), advanceRequest("shared", `{}`))

	other := advanceRequest("shared", `{}`)
	chi.RouteContext(other.Context()).URLParams = chi.RouteParams{}
	chi.RouteContext(other.Context()).URLParams.Add("sessionId", "sess-2")
	mw(handler).ServeHTTP(httptest.NewRecorder(), other)

	if calls != 2 {
		t.Fatalf("expected the same key on another session to run, got %d calls", calls)
	}
}
