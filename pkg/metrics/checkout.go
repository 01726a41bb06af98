package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "catering_checkout"

// Quote fetch outcomes.
const (
	QuoteIssued         = "issued"
	QuoteThrottled      = "throttled"
	QuoteInFlight       = "in_flight"
	QuoteFailed         = "failed"
	QuoteInvalidAddress = "invalid_address"
)

// CheckoutMetrics records quote, step and payment activity.
type CheckoutMetrics struct {
	quoteFetches    *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	paymentStages   *prometheus.CounterVec
	paymentDuration *prometheus.HistogramVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
// A nil registerer yields a recorder whose methods are no-ops.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	quoteFetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quote_fetch_total",
		Help:      "Delivery quote fetch attempts by outcome.",
	}, []string{"outcome"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "step_transition_total",
		Help:      "Checkout step transitions by source step and outcome.",
	}, []string{"from", "outcome"})
	paymentStages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_stage_total",
		Help:      "Payment orchestration stages by outcome.",
	}, []string{"stage", "outcome"})
	paymentDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "payment_stage_duration_seconds",
		Help:      "Duration of payment orchestration stages in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})
	reg.MustRegister(quoteFetches, transitions, paymentStages, paymentDuration)
	return &CheckoutMetrics{
		quoteFetches:    quoteFetches,
		transitions:     transitions,
		paymentStages:   paymentStages,
		paymentDuration: paymentDuration,
	}
}

// IncQuoteFetch counts a quote fetch attempt.
func (c *CheckoutMetrics) IncQuoteFetch(outcome string) {
	if c == nil || c.quoteFetches == nil {
		return
	}
	c.quoteFetches.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncTransition counts a step transition attempt.
func (c *CheckoutMetrics) IncTransition(from, outcome string) {
	if c == nil || c.transitions == nil {
		return
	}
	c.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(outcome)).Inc()
}

// ObservePaymentStage records the outcome and duration of a payment stage.
func (c *CheckoutMetrics) ObservePaymentStage(stage string, err error, duration time.Duration) {
	if c == nil || c.paymentStages == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	c.paymentStages.WithLabelValues(normalizeLabel(stage), outcome).Inc()
	c.paymentDuration.WithLabelValues(normalizeLabel(stage)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
