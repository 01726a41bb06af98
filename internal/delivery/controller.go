package delivery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/catering-checkout/internal/notifications"
	"github.com/angelmondragon/catering-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/catering-checkout/pkg/errors"
	"github.com/angelmondragon/catering-checkout/pkg/logger"
	"github.com/angelmondragon/catering-checkout/pkg/metrics"
	"github.com/angelmondragon/catering-checkout/pkg/types"
)

const quoteFailedMessage = "unable to get a delivery quote"

// ControllerOptions configures a quote controller. Only Key is required besides the provider.
type ControllerOptions struct {
	// Key identifies the owner of the controller (the checkout session) for throttling.
	Key           string
	PickupAddress string
	Gate          Gate
	Notifier      notifications.Notifier
	Metrics       *metrics.CheckoutMetrics
	Logger        *logger.Logger
	Now           func() time.Time
}

// Controller owns the current quote for one checkout session. A second fetch while
// one is outstanding is dropped, not queued.
type Controller struct {
	provider Provider
	key      string
	pickup   string
	gate     Gate
	notifier notifications.Notifier
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
	now      func() time.Time

	mu         sync.Mutex
	current    *Quote
	inFlight   bool
	slot       string
	date       time.Time
	generation uint64
}

// NewController builds a quote controller.
func NewController(provider Provider, opts ControllerOptions) (*Controller, error) {
	if provider == nil {
		return nil, fmt.Errorf("delivery provider required")
	}
	if opts.Key == "" {
		return nil, fmt.Errorf("controller key required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	gate := opts.Gate
	if gate == nil {
		gate = NewIntervalGate(DefaultMinFetchInterval, now)
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.Discard{}
	}
	return &Controller{
		provider: provider,
		key:      opts.Key,
		pickup:   opts.PickupAddress,
		gate:     gate,
		notifier: notifier,
		metrics:  opts.Metrics,
		logg:     opts.Logger,
		now:      now,
	}, nil
}

// FetchQuote requests a quote for address and the given slot. It never returns an error:
// failures clear the held quote, notify the shopper, and yield nil.
func (c *Controller) FetchQuote(ctx context.Context, address *types.Address, timeSlot string) *Quote {
	q, _ := c.fetch(ctx, address, timeSlot, false)
	return q
}

// RefreshQuote replaces the held quote using the most recently tracked time slot.
func (c *Controller) RefreshQuote(ctx context.Context, address *types.Address) *Quote {
	q, _ := c.fetch(ctx, address, "", true)
	return q
}

// Refresh is RefreshQuote that also reports whether the provider was called. A
// refresh dropped by the in-flight guard or the throttle returns issued == false.
func (c *Controller) Refresh(ctx context.Context, address *types.Address) (*Quote, bool) {
	return c.fetch(ctx, address, "", true)
}

func (c *Controller) fetch(ctx context.Context, address *types.Address, timeSlot string, reuseSlot bool) (*Quote, bool) {
	if address == nil {
		c.metrics.IncQuoteFetch(metrics.QuoteInvalidAddress)
		c.notifier.Notify(ctx, enums.NotificationLevelError, "select a delivery address")
		return nil, false
	}

	c.mu.Lock()
	if c.inFlight {
		held := c.current.clone()
		c.mu.Unlock()
		c.metrics.IncQuoteFetch(metrics.QuoteInFlight)
		return held, false
	}
	if !c.gate.Allow(ctx, c.key) {
		held := c.current.clone()
		c.mu.Unlock()
		c.metrics.IncQuoteFetch(metrics.QuoteThrottled)
		return held, false
	}
	if reuseSlot {
		timeSlot = c.slot
	} else {
		c.slot = timeSlot
	}
	req := QuoteRequest{
		PickupAddress:   c.pickup,
		DeliveryAddress: *address,
		TimeSlot:        timeSlot,
		Date:            c.date,
	}
	c.inFlight = true
	generation := c.generation
	c.mu.Unlock()

	quote, err := c.provider.CreateQuote(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false

	if generation != c.generation {
		// cleared while the call was outstanding; the response belongs to an old selection
		return nil, true
	}
	if err != nil {
		c.current = nil
		c.recordFailure(ctx, err)
		return nil, true
	}
	if quote == nil {
		c.current = nil
		c.recordFailure(ctx, pkgerrors.New(pkgerrors.CodeDependency, "delivery provider returned no quote"))
		return nil, true
	}

	c.current = quote.clone()
	c.metrics.IncQuoteFetch(metrics.QuoteIssued)
	if c.logg != nil {
		ctx = c.logg.WithFields(ctx, map[string]any{
			"quote_id":   quote.ID,
			"expires_at": quote.ExpiresAt,
			"time_slot":  quote.TimeSlot,
		})
		c.logg.Info(ctx, "delivery quote issued")
	}
	return quote.clone(), true
}

func (c *Controller) recordFailure(ctx context.Context, err error) {
	if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		c.metrics.IncQuoteFetch(metrics.QuoteInvalidAddress)
		notifications.NotifyError(ctx, c.notifier, err)
	} else {
		c.metrics.IncQuoteFetch(metrics.QuoteFailed)
		c.notifier.Notify(ctx, enums.NotificationLevelError, quoteFailedMessage)
	}
	c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "delivery quote fetch failed")
}

// IsQuoteValid checks the held quote against the controller clock.
func (c *Controller) IsQuoteValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return IsQuoteValid(c.current, c.now())
}

// UpdateTimeSelection records the chosen slot and date for later refreshes.
func (c *Controller) UpdateTimeSelection(slot string, date time.Time) {
	c.mu.Lock()
	c.slot = slot
	c.date = date
	c.mu.Unlock()
}

// TimeSelection returns the tracked slot and date.
func (c *Controller) TimeSelection() (string, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slot, c.date
}

// InFlight reports whether a provider call is outstanding.
func (c *Controller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Current returns a copy of the held quote.
func (c *Controller) Current() *Quote {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.clone()
}

// Clear drops the held quote; a fetch still outstanding will be discarded on arrival.
func (c *Controller) Clear() {
	c.mu.Lock()
	c.current = nil
	c.generation++
	c.mu.Unlock()
}

// Now exposes the controller clock so callers judge validity consistently.
func (c *Controller) Now() time.Time {
	return c.now()
}
