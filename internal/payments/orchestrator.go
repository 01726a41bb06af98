package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/catering-checkout/internal/delivery"
	"github.com/angelmondragon/catering-checkout/internal/notifications"
	"github.com/angelmondragon/catering-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/catering-checkout/pkg/errors"
	"github.com/angelmondragon/catering-checkout/pkg/logger"
	"github.com/angelmondragon/catering-checkout/pkg/metrics"
	"github.com/angelmondragon/catering-checkout/pkg/types"
)

// payment stage labels
const (
	stageCreateIntent  = "create_intent"
	stageConfirmIntent = "confirm_intent"
	stageDeliveryOrder = "delivery_order"
)

// OrchestratorOptions configures the payment orchestrator.
type OrchestratorOptions struct {
	Accounts AccountDirectory
	Policy   SplitPolicy
	Currency enums.Currency
	Notifier notifications.Notifier
	Metrics  *metrics.CheckoutMetrics
	Logger   *logger.Logger
	Now      func() time.Time
}

// Orchestrator sequences intent creation, confirmation and delivery booking.
type Orchestrator struct {
	payments   Provider
	deliveries delivery.Provider
	accounts   AccountDirectory
	policy     SplitPolicy
	currency   enums.Currency
	notifier   notifications.Notifier
	metrics    *metrics.CheckoutMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// NewOrchestrator builds the payment orchestrator.
func NewOrchestrator(payments Provider, deliveries delivery.Provider, opts OrchestratorOptions) (*Orchestrator, error) {
	if payments == nil {
		return nil, fmt.Errorf("payment provider required")
	}
	if deliveries == nil {
		return nil, fmt.Errorf("delivery provider required")
	}
	accounts := opts.Accounts
	if accounts == nil {
		accounts = StaticAccounts{}
	}
	currency := opts.Currency
	if currency == "" {
		currency = enums.CurrencyUSD
	}
	if !currency.IsValid() {
		return nil, fmt.Errorf("unsupported currency %q", currency)
	}
	policy := opts.Policy
	if policy.PlatformFeeRate.IsZero() {
		policy.PlatformFeeRate = DefaultPlatformFeeRate
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.Discard{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		payments:   payments,
		deliveries: deliveries,
		accounts:   accounts,
		policy:     policy,
		currency:   currency,
		notifier:   notifier,
		metrics:    opts.Metrics,
		logg:       opts.Logger,
		now:        now,
	}, nil
}

// CreateIntentInput carries everything needed to price and request a payment intent.
type CreateIntentInput struct {
	SessionID       string
	Amount          decimal.Decimal
	Tip             decimal.Decimal
	CartItems       []types.CartItem
	OrderType       enums.OrderType
	Quote           *delivery.Quote
	PaymentMethodID string
}

// Preview computes the split the shopper would be charged without calling the provider.
func (o *Orchestrator) Preview(orderType enums.OrderType, subtotal, tip decimal.Decimal, quote *delivery.Quote) Split {
	fee := decimal.Zero
	if orderType == enums.OrderTypeDelivery && delivery.IsQuoteValid(quote, o.now()) {
		fee = quote.Fee
	}
	return o.policy.Calculate(subtotal, fee, tip)
}

// CreatePaymentIntent requests an intent for the order. Delivery orders are charged the split
// total (subtotal, delivery fee, tip and tax); pickup orders are charged the raw amount.
func (o *Orchestrator) CreatePaymentIntent(ctx context.Context, in CreateIntentInput) (*Intent, *Split, error) {
	p, err := o.price(in)
	if err != nil {
		return nil, nil, err
	}
	catererID, split := p.catererID, p.split

	req := IntentRequest{
		AmountCents:     ToCents(p.charge),
		Currency:        o.currency,
		PaymentMethodID: in.PaymentMethodID,
		Metadata: map[string]string{
			"caterer_id": catererID,
			"order_type": string(in.OrderType),
			"subtotal":   split.Subtotal.StringFixed(2),
		},
	}
	if in.SessionID != "" {
		req.Metadata["checkout_session_id"] = in.SessionID
	}
	if in.Quote != nil && in.OrderType == enums.OrderTypeDelivery {
		req.Metadata["delivery_quote_id"] = in.Quote.ID
	}
	if acct, ok := o.accounts.ConnectedAccount(catererID); ok {
		req.ConnectedAccountID = acct
		req.ApplicationFeeCents = ToCents(split.PlatformAmount)
	} else {
		o.logg.Warn(o.logg.WithField(ctx, "caterer_id", catererID), "no connected account for caterer; platform collects the full charge")
	}

	started := time.Now()
	intent, err := o.payments.CreateIntent(ctx, req)
	o.metrics.ObservePaymentStage(stageCreateIntent, err, time.Since(started))
	if err != nil {
		return nil, nil, wrapProviderError(err, "payment intent creation failed")
	}
	return intent, &split, nil
}

// pricing is the charge computed for one order snapshot.
type pricing struct {
	catererID string
	split     Split
	charge    decimal.Decimal
}

func (o *Orchestrator) price(in CreateIntentInput) (pricing, error) {
	catererID, err := SingleCaterer(in.CartItems)
	if err != nil {
		return pricing{}, err
	}
	amount := in.Amount
	if amount.IsZero() {
		amount = types.CartSubtotal(in.CartItems)
	}
	if !amount.IsPositive() {
		return pricing{}, pkgerrors.New(pkgerrors.CodeValidation, "order amount must be positive")
	}

	p := pricing{catererID: catererID}
	switch in.OrderType {
	case enums.OrderTypeDelivery:
		if !delivery.IsQuoteValid(in.Quote, o.now()) {
			return pricing{}, pkgerrors.New(pkgerrors.CodeQuoteUnavailable, "delivery quote expired; refresh the quote")
		}
		p.split = o.policy.Calculate(amount, in.Quote.Fee, in.Tip)
		p.charge = p.split.TotalAmount
	case enums.OrderTypePickup:
		p.split = o.policy.Calculate(amount, decimal.Zero, decimal.Zero)
		p.charge = amount
	default:
		return pricing{}, pkgerrors.New(pkgerrors.CodeValidation, "order type required")
	}
	return p, nil
}

// CompleteInput is the checkout snapshot needed to place the order.
type CompleteInput struct {
	SessionID       string
	OrderType       enums.OrderType
	PaymentMethodID string
	Intent          *Intent
	Amount          decimal.Decimal
	Tip             decimal.Decimal
	CartItems       []types.CartItem
	Quote           *delivery.Quote
	Address         *types.Address
	Instructions    string
}

// Result is the outcome of CompletePayment. Intent is set whenever one exists,
// including on failure, so a retry reuses it instead of charging again.
type Result struct {
	OK            bool
	Intent        *Intent
	Split         *Split
	DeliveryOrder *delivery.Order
	Err           error
}

// CompletePayment creates (when needed) and confirms the payment intent, then books the
// courier for delivery orders. It never returns an error past its boundary: failures are
// reported to the notifier and carried in Result.Err.
func (o *Orchestrator) CompletePayment(ctx context.Context, in CompleteInput) Result {
	if o.logg != nil && in.SessionID != "" {
		ctx = o.logg.WithSessionID(ctx, in.SessionID)
	}
	res := o.complete(ctx, in)
	if res.Err != nil {
		notifications.NotifyError(ctx, o.notifier, res.Err)
		o.logg.Warn(o.logg.WithField(ctx, "error", res.Err.Error()), "payment completion failed")
		return res
	}
	res.OK = true
	o.notifier.Notify(ctx, enums.NotificationLevelSuccess, "order placed")
	return res
}

func (o *Orchestrator) complete(ctx context.Context, in CompleteInput) Result {
	res := Result{Intent: in.Intent}

	if in.PaymentMethodID == "" {
		res.Err = pkgerrors.New(pkgerrors.CodeValidation, "select a payment method")
		return res
	}
	if in.OrderType == enums.OrderTypeDelivery {
		if in.Address == nil {
			res.Err = pkgerrors.New(pkgerrors.CodeValidation, "select a delivery address")
			return res
		}
		if !delivery.IsQuoteValid(in.Quote, o.now()) {
			res.Err = pkgerrors.New(pkgerrors.CodeQuoteUnavailable, "delivery quote expired; refresh the quote")
			return res
		}
	}

	intentInput := CreateIntentInput{
		SessionID:       in.SessionID,
		Amount:          in.Amount,
		Tip:             in.Tip,
		CartItems:       in.CartItems,
		OrderType:       in.OrderType,
		Quote:           in.Quote,
		PaymentMethodID: in.PaymentMethodID,
	}
	if res.Intent != nil && !res.Intent.Confirmed() {
		p, err := o.price(intentInput)
		if err != nil {
			res.Err = err
			return res
		}
		if want := ToCents(p.charge); res.Intent.AmountCents != want {
			o.logg.Warn(o.logg.WithFields(ctx, map[string]any{
				"payment_intent_id": res.Intent.ID,
				"intent_cents":      res.Intent.AmountCents,
				"order_cents":       want,
			}), "payment intent no longer matches the order; creating a new one")
			res.Intent = nil
		}
	}

	if res.Intent == nil {
		intent, split, err := o.CreatePaymentIntent(ctx, intentInput)
		if err != nil {
			res.Err = err
			return res
		}
		res.Intent = intent
		res.Split = split
	} else {
		split := o.Preview(in.OrderType, o.amountFor(in), in.Tip, in.Quote)
		res.Split = &split
	}

	if !res.Intent.Confirmed() {
		started := time.Now()
		confirmed, err := o.payments.ConfirmIntent(ctx, res.Intent.ID, in.PaymentMethodID)
		o.metrics.ObservePaymentStage(stageConfirmIntent, err, time.Since(started))
		if err != nil {
			res.Err = wrapProviderError(err, "payment confirmation failed")
			return res
		}
		if !confirmed.Confirmed() {
			res.Intent = confirmed
			res.Err = pkgerrors.New(pkgerrors.CodeValidation, "payment was not confirmed").
				WithDetails(map[string]any{"status": confirmed.Status})
			return res
		}
		res.Intent = confirmed
	}

	if in.OrderType != enums.OrderTypeDelivery {
		return res
	}

	started := time.Now()
	order, err := o.deliveries.CreateOrder(ctx, delivery.OrderRequest{
		QuoteID:         in.Quote.ID,
		DeliveryAddress: *in.Address,
		PaymentIntentID: res.Intent.ID,
		Instructions:    in.Instructions,
	})
	o.metrics.ObservePaymentStage(stageDeliveryOrder, err, time.Since(started))
	if err != nil {
		res.Err = wrapProviderError(err, "delivery order creation failed")
		return res
	}
	res.DeliveryOrder = order
	return res
}

func (o *Orchestrator) amountFor(in CompleteInput) decimal.Decimal {
	if !in.Amount.IsZero() {
		return in.Amount
	}
	return types.CartSubtotal(in.CartItems)
}

func wrapProviderError(err error, message string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
