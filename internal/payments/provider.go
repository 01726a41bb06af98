package payments

import (
	"context"

	"github.com/angelmondragon/catering-checkout/pkg/enums"
)

// Provider is the card processor that creates and confirms payment intents.
type Provider interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	ConfirmIntent(ctx context.Context, intentID, paymentMethodID string) (*Intent, error)
}

// IntentRequest describes a charge; amounts are in minor units.
type IntentRequest struct {
	AmountCents         int64
	Currency            enums.Currency
	PaymentMethodID     string
	Metadata            map[string]string
	ConnectedAccountID  string
	ApplicationFeeCents int64
}

// Intent is the provider's payment intent; only id and status drive checkout.
type Intent struct {
	ID                 string                    `json:"id"`
	Status             enums.PaymentIntentStatus `json:"status"`
	AmountCents        int64                     `json:"amount_cents"`
	Currency           enums.Currency            `json:"currency"`
	ConnectedAccountID string                    `json:"connected_account_id,omitempty"`
	ClientSecret       string                    `json:"-"`
}

// Confirmed reports whether the intent has been confirmed by the provider.
func (i *Intent) Confirmed() bool {
	return i != nil && i.Status.IsConfirmed()
}
