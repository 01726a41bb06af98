package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/catering-checkout/api/controllers"
	"github.com/angelmondragon/catering-checkout/api/middleware"
	"github.com/angelmondragon/catering-checkout/internal/sessions"
	"github.com/angelmondragon/catering-checkout/pkg/config"
	"github.com/angelmondragon/catering-checkout/pkg/enums"
	"github.com/angelmondragon/catering-checkout/pkg/logger"
	"github.com/angelmondragon/catering-checkout/pkg/redis"
)

// Params bundles the router dependencies. RedisPinger and Idempotency may be nil
// when Redis is not configured.
type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	Sessions    sessions.Service
	RedisPinger redis.Pinger
	Idempotency redis.IdempotencyStore
	Gatherer    prometheus.Gatherer
}

func NewRouter(p Params) http.Handler {
	cfg, logg, svc := p.Config, p.Logger, p.Sessions

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.RedisPinger))
	})

	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/checkout/sessions", func(r chi.Router) {
		r.Post("/", controllers.CheckoutStartSession(svc, logg))

		r.Route("/{sessionId}", func(r chi.Router) {
			r.Get("/", controllers.CheckoutGetSession(svc, logg))
			r.Delete("/", controllers.CheckoutCancelSession(svc, logg))
			r.Put("/order-type", controllers.CheckoutSetOrderType(svc, logg))
			r.Put("/address", controllers.CheckoutSelectAddress(svc, logg))
			r.Post("/addresses", controllers.CheckoutAddAddress(svc, logg))
			r.Post("/payment-methods", controllers.CheckoutAddPaymentMethod(svc, logg))
			r.Put("/payment-method", controllers.CheckoutSelectPaymentMethod(svc, logg))
			r.Put("/time-slot", controllers.CheckoutSelectTimeSlot(svc, logg))
			r.Put("/instructions", controllers.CheckoutSetInstructions(svc, logg))
			r.Post("/quote", controllers.CheckoutFetchQuote(svc, logg))
			r.Post("/quote/refresh", controllers.CheckoutRefreshQuote(svc, logg))
			r.With(middleware.AdvanceIdempotency(p.Idempotency, sessionStep(svc), logg)).Post("/next", controllers.CheckoutNext(svc, logg))
			r.Post("/previous", controllers.CheckoutPrevious(svc, logg))
			r.Get("/notifications", controllers.CheckoutNotifications(svc, logg))
		})
	})

	return r
}

func sessionStep(svc sessions.Service) middleware.StepLookup {
	return func(r *http.Request) (enums.CheckoutStep, bool) {
		if svc == nil {
			return "", false
		}
		view, err := svc.Get(r.Context(), chi.URLParam(r, "sessionId"))
		if err != nil || view == nil {
			return "", false
		}
		return view.State.Step, true
	}
}
