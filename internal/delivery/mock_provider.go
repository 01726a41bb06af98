package delivery

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/catering-checkout/pkg/config"
	"github.com/angelmondragon/catering-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/catering-checkout/pkg/errors"
	"github.com/angelmondragon/catering-checkout/pkg/types"
)

const trackingBaseURL = "https://track.example-courier.com/orders/"

// peak hours apply the surcharge when a slot starts inside [peakStartHour, peakEndHour).
const (
	peakStartHour = 17
	peakEndHour   = 20
)

// MockProvider prices deliveries deterministically from the destination zip code.
type MockProvider struct {
	baseFee       decimal.Decimal
	perMileFee    decimal.Decimal
	peakSurcharge decimal.Decimal
	leadTime      time.Duration
	ttl           time.Duration
	now           func() time.Time

	mu     sync.Mutex
	issued map[string]Quote
}

// MockOption customizes the mock provider.
type MockOption func(*MockProvider)

// WithClock overrides the provider clock.
func WithClock(now func() time.Time) MockOption {
	return func(p *MockProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithQuoteTTL overrides the quote lifetime.
func WithQuoteTTL(ttl time.Duration) MockOption {
	return func(p *MockProvider) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// NewMockProvider builds the mock courier from delivery pricing config.
func NewMockProvider(cfg config.DeliveryConfig, opts ...MockOption) *MockProvider {
	p := &MockProvider{
		baseFee:       decimal.NewFromFloat(cfg.BaseFee),
		perMileFee:    decimal.NewFromFloat(cfg.PerMileFee),
		peakSurcharge: decimal.NewFromFloat(cfg.PeakSurcharge),
		leadTime:      cfg.DefaultLeadTime,
		ttl:           DefaultQuoteTTL,
		now:           time.Now,
		issued:        map[string]Quote{},
	}
	if p.leadTime <= 0 {
		p.leadTime = 45 * time.Minute
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *MockProvider) CreateQuote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.DeliveryAddress.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "delivery address incomplete")
	}

	now := p.now()
	distance := distanceForZip(req.DeliveryAddress.Zip)
	fee := p.baseFee.Add(p.perMileFee.Mul(decimal.NewFromFloat(distance)))

	eta := now.Add(p.leadTime)
	if req.TimeSlot != "" {
		day := req.Date
		if day.IsZero() {
			day = now
		}
		start, err := types.SlotStart(req.TimeSlot, day)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "time slot not recognized")
		}
		if start.Hour() >= peakStartHour && start.Hour() < peakEndHour {
			fee = fee.Add(p.peakSurcharge)
		}
		if start.After(eta) {
			eta = start
		}
	}

	quote := Quote{
		ID:                    uuid.NewString(),
		Fee:                   fee.Round(2),
		EstimatedDeliveryTime: eta,
		CreatedAt:             now,
		ExpiresAt:             now.Add(p.ttl),
		Status:                enums.QuoteStatusActive,
		PickupAddress:         strings.TrimSpace(req.PickupAddress),
		DeliveryAddress:       req.DeliveryAddress.Line(),
		DistanceMiles:         distance,
		TimeSlot:              req.TimeSlot,
	}

	p.mu.Lock()
	p.issued[quote.ID] = quote
	p.mu.Unlock()

	return quote.clone(), nil
}

func (p *MockProvider) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.PaymentIntentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}

	now := p.now()

	p.mu.Lock()
	defer p.mu.Unlock()

	quote, ok := p.issued[req.QuoteID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery quote not found")
	}
	if !IsQuoteValid(&quote, now) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "delivery quote no longer valid")
	}
	quote.Status = enums.QuoteStatusFulfilled
	p.issued[quote.ID] = quote

	id := uuid.NewString()
	return &Order{
		ID:              id,
		QuoteID:         quote.ID,
		PaymentIntentID: req.PaymentIntentID,
		Status:          enums.DeliveryOrderStatusCreated,
		TrackingURL:     trackingBaseURL + id,
		DropoffAddress:  req.DeliveryAddress.Line(),
		Instructions:    req.Instructions,
		CreatedAt:       now,
	}, nil
}

// distanceForZip maps a zip code onto 1.00–14.99 miles.
func distanceForZip(zip string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.TrimSpace(zip)))
	hundredths := h.Sum32() % 1400
	return math.Round((1+float64(hundredths)/100)*100) / 100
}

func (p *MockProvider) String() string {
	return fmt.Sprintf("mock-courier(base=%s, per_mile=%s)", p.baseFee, p.perMileFee)
}
