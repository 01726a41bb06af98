package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"

	"github.com/angelmondragon/catering-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/catering-checkout/pkg/errors"
	pkgstripe "github.com/angelmondragon/catering-checkout/pkg/stripe"
)

// StripeIntentClient exposes the subset of Stripe payment intent operations used by checkout.
type StripeIntentClient interface {
	New(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Confirm(ctx context.Context, id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error)
}

type stripeIntentWrapper struct{}

// NewStripeIntentClient wraps the configured Stripe client so the provider can be tested.
func NewStripeIntentClient(api *pkgstripe.Client) StripeIntentClient {
	if api == nil {
		return nil
	}
	return &stripeIntentWrapper{}
}

func (w *stripeIntentWrapper) New(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if params != nil {
		params.Context = ctx
	}
	return paymentintent.New(params)
}

func (w *stripeIntentWrapper) Confirm(ctx context.Context, id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error) {
	if params != nil {
		params.Context = ctx
	}
	return paymentintent.Confirm(id, params)
}

// StripeProvider routes payment intents through Stripe Connect destination charges.
type StripeProvider struct {
	client StripeIntentClient
}

// NewStripeProvider builds the Stripe-backed payment provider.
func NewStripeProvider(client StripeIntentClient) (*StripeProvider, error) {
	if client == nil {
		return nil, fmt.Errorf("stripe intent client required")
	}
	return &StripeProvider{client: client}, nil
}

func (p *StripeProvider) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if req.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	currency := req.Currency
	if currency == "" {
		currency = enums.CurrencyUSD
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.AmountCents),
		Currency:           stripe.String(currency.String()),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	if req.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(req.PaymentMethodID)
	}
	if req.ConnectedAccountID != "" {
		params.TransferData = &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(req.ConnectedAccountID),
		}
		if req.ApplicationFeeCents > 0 {
			params.ApplicationFeeAmount = stripe.Int64(req.ApplicationFeeCents)
		}
	}
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}

	pi, err := p.client.New(ctx, params)
	if err != nil {
		return nil, mapStripeError(err, "create payment intent")
	}
	return intentFromStripe(pi, req.ConnectedAccountID)
}

func (p *StripeProvider) ConfirmIntent(ctx context.Context, intentID, paymentMethodID string) (*Intent, error) {
	if intentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	if paymentMethodID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method required")
	}
	pi, err := p.client.Confirm(ctx, intentID, &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(paymentMethodID),
	})
	if err != nil {
		return nil, mapStripeError(err, "confirm payment intent")
	}
	return intentFromStripe(pi, "")
}

func intentFromStripe(pi *stripe.PaymentIntent, connectedAccountID string) (*Intent, error) {
	if pi == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stripe returned no payment intent")
	}
	status, err := enums.ParsePaymentIntentStatus(string(pi.Status))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unrecognized payment intent status")
	}
	currency, err := enums.ParseCurrency(string(pi.Currency))
	if err != nil {
		currency = enums.Currency(pi.Currency)
	}
	if connectedAccountID == "" && pi.TransferData != nil && pi.TransferData.Destination != nil {
		connectedAccountID = pi.TransferData.Destination.ID
	}
	return &Intent{
		ID:                 pi.ID,
		Status:             status,
		AmountCents:        pi.Amount,
		Currency:           currency,
		ConnectedAccountID: connectedAccountID,
		ClientSecret:       pi.ClientSecret,
	}, nil
}

func mapStripeError(err error, op string) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
		msg := stripeErr.Msg
		if msg == "" {
			msg = "your card was declined"
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, msg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
