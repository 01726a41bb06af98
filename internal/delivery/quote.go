package delivery

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/catering-checkout/pkg/enums"
)

// DefaultQuoteTTL is how long a provider quote stays usable after creation.
const DefaultQuoteTTL = 5 * time.Minute

// Quote is a time-bounded delivery estimate. Quotes are never mutated once
// issued; refreshing replaces the held quote with a new one.
type Quote struct {
	ID                    string            `json:"id"`
	Fee                   decimal.Decimal   `json:"fee"`
	EstimatedDeliveryTime time.Time         `json:"estimated_delivery_time"`
	CreatedAt             time.Time         `json:"created_at"`
	ExpiresAt             time.Time         `json:"expires_at"`
	Status                enums.QuoteStatus `json:"status"`
	PickupAddress         string            `json:"pickup_address"`
	DeliveryAddress       string            `json:"delivery_address"`
	DistanceMiles         float64           `json:"distance_miles"`
	TimeSlot              string            `json:"time_slot,omitempty"`
}

// IsQuoteValid is the single freshness rule: active and strictly before expiry.
func IsQuoteValid(q *Quote, now time.Time) bool {
	if q == nil {
		return false
	}
	return q.Status == enums.QuoteStatusActive && now.Before(q.ExpiresAt)
}

// TimeRemaining returns how long the quote stays valid, or zero.
func (q *Quote) TimeRemaining(now time.Time) time.Duration {
	if !IsQuoteValid(q, now) {
		return 0
	}
	return q.ExpiresAt.Sub(now)
}

func (q *Quote) clone() *Quote {
	if q == nil {
		return nil
	}
	cp := *q
	return &cp
}
