package delivery

import (
	"context"
	"time"

	"github.com/angelmondragon/catering-checkout/pkg/enums"
	"github.com/angelmondragon/catering-checkout/pkg/types"
)

// Provider is the courier service that prices and books deliveries.
type Provider interface {
	CreateQuote(ctx context.Context, req QuoteRequest) (*Quote, error)
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
}

// QuoteRequest asks for a delivery price from the caterer to a resolved address.
type QuoteRequest struct {
	PickupAddress   string
	DeliveryAddress types.Address
	TimeSlot        string
	Date            time.Time
}

// OrderRequest books a courier against a previously issued quote.
type OrderRequest struct {
	QuoteID         string
	DeliveryAddress types.Address
	PaymentIntentID string
	Instructions    string
}

// Order is the courier booking created after payment confirmation.
type Order struct {
	ID              string                    `json:"id"`
	QuoteID         string                    `json:"quote_id"`
	PaymentIntentID string                    `json:"payment_intent_id"`
	Status          enums.DeliveryOrderStatus `json:"status"`
	TrackingURL     string                    `json:"tracking_url"`
	DropoffAddress  string                    `json:"dropoff_address"`
	Instructions    string                    `json:"instructions,omitempty"`
	CreatedAt       time.Time                 `json:"created_at"`
}
