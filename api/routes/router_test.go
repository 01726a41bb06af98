package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/catering-checkout/internal/delivery"
	"github.com/angelmondragon/catering-checkout/internal/payments"
	"github.com/angelmondragon/catering-checkout/internal/sessions"
	"github.com/angelmondragon/catering-checkout/pkg/config"
	"github.com/angelmondragon/catering-checkout/pkg/logger"
	"github.com/angelmondragon/catering-checkout/pkg/metrics"
	"github.com/angelmondragon/catering-checkout/pkg/redis"
)

const startBody = `{
	"caterer_id": "cat-1",
	"cart": [{"id": "item-1", "name": "Taco tray", "quantity": 2, "unit_price": 50, "caterer": {"id": "cat-1", "address": "400 Congress Ave, Austin, TX 78701"}}],
	"addresses": [{"id": "addr-1", "street": "12 Oak St", "city": "Austin", "state": "TX", "zip": "78701", "is_default": true}],
	"payment_methods": [{"id": "pm_visa", "brand": "visa", "last4": "4242", "is_default": true}],
	"time_slots": [{"id": "dinner", "label": "18:00-21:00", "capacity": 5}]
}`

type envelope struct {
	Data struct {
		ID    string `json:"id"`
		State struct {
			Step          string          `json:"step"`
			DeliveryOrder json.RawMessage `json:"delivery_order"`
		} `json:"state"`
		CanContinue bool `json:"can_continue"`
		Quote       struct {
			Valid bool `json:"valid"`
		} `json:"quote"`
	} `json:"data"`
	Error struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return newTestRouterWithIdempotency(t, nil)
}

func newTestRouterWithIdempotency(t *testing.T, idem redis.IdempotencyStore) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	checkoutMetrics := metrics.NewCheckoutMetrics(reg)
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: &bytes.Buffer{}})

	svc, err := sessions.NewService(sessions.ServiceParams{
		Store: sessions.NewStore(30*time.Minute, nil),
		Deliveries: delivery.NewMockProvider(config.DeliveryConfig{
			BaseFee:         4.99,
			PerMileFee:      0.75,
			DefaultLeadTime: 45 * time.Minute,
		}),
		Payments: payments.NewMockProvider(),
		Checkout: config.CheckoutConfig{
			QuoteTTL:         5 * time.Minute,
			QuoteMinInterval: 500 * time.Millisecond,
			QuoteMaxRetries:  2,
			TaxRate:          0.08,
			PlatformFeeRate:  0.15,
		},
		Metrics: checkoutMetrics,
		Logger:  logg,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewRouter(Params{
		Config:      &config.Config{App: config.AppConfig{Env: "test"}},
		Logger:      logg,
		Sessions:    svc,
		Idempotency: idem,
		Gatherer:    reg,
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	var env envelope
	if resp.Body.Len() > 0 && strings.HasPrefix(resp.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp, env
}

func TestRouterDeliveryCheckoutFlow(t *testing.T) {
	h := newTestRouter(t)

	resp, env := do(t, h, http.MethodPost, "/api/v1/checkout/sessions", startBody)
	if resp.Code != http.StatusCreated {
		t.Fatalf("start: expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	base := "/api/v1/checkout/sessions/" + env.Data.ID

	if resp, _ := do(t, h, http.MethodPost, base+"/next", ""); resp.Code != http.StatusBadRequest {
		t.Fatalf("next without slot: expected 400 got %d", resp.Code)
	}

	if resp, _ := do(t, h, http.MethodPut, base+"/time-slot", `{"time_slot":"dinner"}`); resp.Code != http.StatusOK {
		t.Fatalf("time slot: expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	resp, env = do(t, h, http.MethodPost, base+"/quote", "")
	if resp.Code != http.StatusOK || !env.Data.Quote.Valid || !env.Data.CanContinue {
		t.Fatalf("quote: unexpected response %d: %s", resp.Code, resp.Body.String())
	}

	for _, want := range []string{"payment", "review", "confirmation"} {
		resp, env = do(t, h, http.MethodPost, base+"/next", "")
		if resp.Code != http.StatusOK {
			t.Fatalf("next to %s: expected 200 got %d: %s", want, resp.Code, resp.Body.String())
		}
		if env.Data.State.Step != want {
			t.Fatalf("expected step %s got %s", want, env.Data.State.Step)
		}
	}
	if len(env.Data.State.DeliveryOrder) == 0 {
		t.Fatal("expected delivery order in confirmation view")
	}

	resp, _ = do(t, h, http.MethodGet, base+"/notifications", "")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "order placed") {
		t.Fatalf("notifications: unexpected response %d: %s", resp.Code, resp.Body.String())
	}

	if resp, _ := do(t, h, http.MethodDelete, base, ""); resp.Code != http.StatusNoContent {
		t.Fatalf("cancel: expected 204 got %d", resp.Code)
	}
	if resp, env := do(t, h, http.MethodGet, base, ""); resp.Code != http.StatusNotFound || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("get after cancel: expected 404 got %d", resp.Code)
	}
}

func TestRouterHealthAndMetrics(t *testing.T) {
	h := newTestRouter(t)

	if resp, _ := do(t, h, http.MethodGet, "/health/live", ""); resp.Code != http.StatusOK {
		t.Fatalf("live: expected 200 got %d", resp.Code)
	}
	if resp, _ := do(t, h, http.MethodGet, "/health/ready", ""); resp.Code != http.StatusOK {
		t.Fatalf("ready: expected 200 got %d", resp.Code)
	}

	do(t, h, http.MethodPost, "/api/v1/checkout/sessions", startBody)
	resp, _ := do(t, h, http.MethodGet, "/metrics", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200 got %d", resp.Code)
	}
}

func TestRouterSetsRequestID(t *testing.T) {
	h := newTestRouter(t)
	resp, _ := do(t, h, http.MethodGet, "/health/live", "")
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected request id header")
	}
}

type memoryIdempotency struct {
	data map[string]string
}

func (m *memoryIdempotency) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (m *memoryIdempotency) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], _ = value.(string)
	return true, nil
}

func (m *memoryIdempotency) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryIdempotency) IdempotencyKey(scope, id string) string {
	return "test:" + scope + ":" + id
}

func TestRouterRequiresIdempotencyKeyToPlaceOrder(t *testing.T) {
	h := newTestRouterWithIdempotency(t, &memoryIdempotency{data: map[string]string{}})

	resp, env := do(t, h, http.MethodPost, "/api/v1/checkout/sessions", startBody)
	if resp.Code != http.StatusCreated {
		t.Fatalf("start: expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	base := "/api/v1/checkout/sessions/" + env.Data.ID
	do(t, h, http.MethodPut, base+"/time-slot", `{"time_slot":"dinner"}`)
	do(t, h, http.MethodPost, base+"/quote", "")

	for _, want := range []string{"payment", "review"} {
		resp, env = do(t, h, http.MethodPost, base+"/next", "")
		if resp.Code != http.StatusOK || env.Data.State.Step != want {
			t.Fatalf("next to %s without a key: got %d: %s", want, resp.Code, resp.Body.String())
		}
	}

	resp, env = do(t, h, http.MethodPost, base+"/next", "")
	if resp.Code != http.StatusBadRequest || env.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("place order without a key: expected 400 got %d: %s", resp.Code, resp.Body.String())
	}

	placeOrder := func() (*httptest.ResponseRecorder, envelope) {
		req := httptest.NewRequest(http.MethodPost, base+"/next", nil)
		req.Header.Set("Idempotency-Key", "order-1")
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)
		var env envelope
		if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return resp, env
	}
	first, firstEnv := placeOrder()
	if first.Code != http.StatusOK || firstEnv.Data.State.Step != "confirmation" {
		t.Fatalf("place order: got %d: %s", first.Code, first.Body.String())
	}
	again, _ := placeOrder()
	if again.Code != http.StatusOK || again.Body.String() != first.Body.String() {
		t.Fatalf("expected replay of the placed order, got %d: %s", again.Code, again.Body.String())
	}
}
