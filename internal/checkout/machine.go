package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/catering-checkout/internal/delivery"
	"github.com/angelmondragon/catering-checkout/internal/notifications"
	"github.com/angelmondragon/catering-checkout/internal/payments"
	"github.com/angelmondragon/catering-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/catering-checkout/pkg/errors"
	"github.com/angelmondragon/catering-checkout/pkg/logger"
	"github.com/angelmondragon/catering-checkout/pkg/metrics"
	"github.com/angelmondragon/catering-checkout/pkg/types"
)

// DefaultMaxQuoteRetries caps automatic quote refreshes before a terminal error.
const DefaultMaxQuoteRetries = 2

// transition outcomes
const (
	outcomeAdvanced  = "advanced"
	outcomeRetreated = "retreated"
	outcomeRejected  = "rejected"
	outcomeIgnored   = "ignored"
)

// QuoteSource is the quote controller surface consulted by the machine.
type QuoteSource interface {
	IsQuoteValid() bool
	InFlight() bool
	Current() *delivery.Quote
	// Refresh re-quotes the address. issued is false when the refresh was
	// dropped without calling the provider.
	Refresh(ctx context.Context, address *types.Address) (q *delivery.Quote, issued bool)
	Now() time.Time
}

// PaymentCompleter places the order during review -> confirmation.
type PaymentCompleter interface {
	CompletePayment(ctx context.Context, in payments.CompleteInput) payments.Result
}

// Collaborators resolves the externally owned records referenced by the state.
type Collaborators interface {
	Address(id string) (types.Address, bool)
	CartItems() []types.CartItem
	Tip() decimal.Decimal
}

// MachineOptions configures optional machine behaviour.
type MachineOptions struct {
	SessionID       string
	MaxQuoteRetries int
	Notifier        notifications.Notifier
	Metrics         *metrics.CheckoutMetrics
	Logger          *logger.Logger
}

// Machine walks a State through delivery-method, payment, review and confirmation.
type Machine struct {
	state      *State
	quotes     QuoteSource
	payments   PaymentCompleter
	collab     Collaborators
	sessionID  string
	maxRetries int
	notifier   notifications.Notifier
	metrics    *metrics.CheckoutMetrics
	logg       *logger.Logger
}

// NewMachine builds a step machine over state.
func NewMachine(state *State, quotes QuoteSource, completer PaymentCompleter, collab Collaborators, opts MachineOptions) (*Machine, error) {
	if state == nil {
		return nil, fmt.Errorf("checkout state required")
	}
	if quotes == nil {
		return nil, fmt.Errorf("quote source required")
	}
	if completer == nil {
		return nil, fmt.Errorf("payment completer required")
	}
	if collab == nil {
		return nil, fmt.Errorf("collaborators required")
	}
	maxRetries := opts.MaxQuoteRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxQuoteRetries
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.Discard{}
	}
	return &Machine{
		state:      state,
		quotes:     quotes,
		payments:   completer,
		collab:     collab,
		sessionID:  opts.SessionID,
		maxRetries: maxRetries,
		notifier:   notifier,
		metrics:    opts.Metrics,
		logg:       opts.Logger,
	}, nil
}

// Steps returns the ordered flow for progress display.
func (m *Machine) Steps() []enums.CheckoutStep {
	return enums.CheckoutSteps()
}

// CanContinue evaluates the guard for the current step without side effects.
func (m *Machine) CanContinue() error {
	switch m.state.Step() {
	case enums.CheckoutStepDeliveryMethod:
		return CanContinue(m.guardInput())
	case enums.CheckoutStepPayment, enums.CheckoutStepReview:
		return requirePaymentMethod(m.state.SelectedPaymentMethodID())
	case enums.CheckoutStepConfirmation:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order already placed")
	default:
		return nil
	}
}

// Next advances one step when the current step's guard passes. The state is left on
// the current step whenever an error is returned.
func (m *Machine) Next(ctx context.Context) error {
	from := m.state.Step()
	ctx = m.logContext(ctx, from)

	var err error
	switch from {
	case enums.CheckoutStepDeliveryMethod:
		err = m.leaveDeliveryMethod(ctx)
	case enums.CheckoutStepPayment:
		err = m.leavePayment(ctx)
	case enums.CheckoutStepReview:
		err = m.placeOrder(ctx)
	case enums.CheckoutStepConfirmation:
		err = pkgerrors.New(pkgerrors.CodeStateConflict, "order already placed")
	default:
		m.logg.Warn(ctx, "unknown checkout step; ignoring next")
		m.metrics.IncTransition(string(from), outcomeIgnored)
		return nil
	}

	if err != nil {
		m.metrics.IncTransition(string(from), outcomeRejected)
		return err
	}
	m.metrics.IncTransition(string(from), outcomeAdvanced)
	m.logg.Info(m.logg.WithField(ctx, "to_step", string(m.state.Step())), "checkout step advanced")
	return nil
}

// Previous moves back one step. Neither the first step nor confirmation can go back.
func (m *Machine) Previous(ctx context.Context) error {
	from := m.state.Step()
	ctx = m.logContext(ctx, from)

	switch from {
	case enums.CheckoutStepPayment:
		m.state.setStep(enums.CheckoutStepDeliveryMethod)
	case enums.CheckoutStepReview:
		m.state.setStep(enums.CheckoutStepPayment)
	case enums.CheckoutStepDeliveryMethod:
		m.metrics.IncTransition(string(from), outcomeRejected)
		return pkgerrors.New(pkgerrors.CodeStateConflict, "already at the first step")
	case enums.CheckoutStepConfirmation:
		m.metrics.IncTransition(string(from), outcomeRejected)
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order already placed")
	default:
		m.logg.Warn(ctx, "unknown checkout step; ignoring previous")
		m.metrics.IncTransition(string(from), outcomeIgnored)
		return nil
	}
	m.metrics.IncTransition(string(from), outcomeRetreated)
	return nil
}

func (m *Machine) guardInput() GuardInput {
	return GuardInput{
		OrderType:  m.state.OrderType(),
		AddressID:  m.state.SelectedAddressID(),
		TimeSlot:   m.state.PickupTime(),
		QuoteReady: m.quotes.IsQuoteValid() || m.quotes.InFlight(),
	}
}

func (m *Machine) leaveDeliveryMethod(ctx context.Context) error {
	err := CanContinue(m.guardInput())
	if err == nil {
		m.state.SetQuote(m.quotes.Current(), m.quotes.Now())
		m.state.setStep(enums.CheckoutStepPayment)
		return nil
	}
	if !errors.Is(err, ErrQuoteNotReady) {
		notifications.NotifyError(ctx, m.notifier, err)
		return err
	}
	return m.refreshAndRetry(ctx)
}

// refreshAndRetry runs one refresh for a stale quote and re-evaluates the guard once.
// The retry counter persists across Next calls until a usable quote arrives or the
// address/slot/order type changes. A refresh the controller drops without calling the
// provider does not count.
func (m *Machine) refreshAndRetry(ctx context.Context) error {
	if m.state.quoteRetries >= m.maxRetries {
		return m.quoteExhausted(ctx)
	}

	addr, ok := m.collab.Address(m.state.SelectedAddressID())
	if !ok {
		err := pkgerrors.New(pkgerrors.CodeValidation, "selected address no longer exists")
		notifications.NotifyError(ctx, m.notifier, err)
		return err
	}

	m.logg.Info(m.logg.WithField(ctx, "attempt", m.state.quoteRetries+1), "delivery quote stale; refreshing")

	q, issued := m.quotes.Refresh(ctx, &addr)
	m.state.SetQuote(q, m.quotes.Now())

	if CanContinue(m.guardInput()) == nil {
		m.state.quoteRetries = 0
		m.state.setStep(enums.CheckoutStepPayment)
		return nil
	}
	// Only refreshes that reached the provider count against the budget.
	if !issued {
		err := pkgerrors.New(pkgerrors.CodeQuoteUnavailable, "delivery quote refresh skipped; try again shortly").
			WithDetails(map[string]any{"attempt": m.state.quoteRetries, "max_attempts": m.maxRetries, "terminal": false})
		m.notifier.Notify(ctx, enums.NotificationLevelWarning, err.Message())
		return err
	}
	m.state.quoteRetries++
	attempt := m.state.quoteRetries
	if attempt >= m.maxRetries {
		return m.quoteExhausted(ctx)
	}
	err := pkgerrors.New(pkgerrors.CodeQuoteUnavailable, "delivery quote could not be refreshed; try again").
		WithDetails(map[string]any{"attempt": attempt, "max_attempts": m.maxRetries, "terminal": false})
	m.notifier.Notify(ctx, enums.NotificationLevelWarning, err.Message())
	return err
}

func (m *Machine) quoteExhausted(ctx context.Context) error {
	err := pkgerrors.New(pkgerrors.CodeQuoteUnavailable, pkgerrors.MetadataFor(pkgerrors.CodeQuoteUnavailable).PublicMessage).
		WithDetails(map[string]any{"attempt": m.state.quoteRetries, "max_attempts": m.maxRetries, "terminal": true})
	m.notifier.Notify(ctx, enums.NotificationLevelError, err.Message())
	m.logg.Warn(ctx, "delivery quote retries exhausted")
	return err
}

func (m *Machine) leavePayment(ctx context.Context) error {
	if err := requirePaymentMethod(m.state.SelectedPaymentMethodID()); err != nil {
		notifications.NotifyError(ctx, m.notifier, err)
		return err
	}
	m.state.setStep(enums.CheckoutStepReview)
	return nil
}

// placeOrder runs payment orchestration before committing review -> confirmation.
func (m *Machine) placeOrder(ctx context.Context) error {
	if err := requirePaymentMethod(m.state.SelectedPaymentMethodID()); err != nil {
		notifications.NotifyError(ctx, m.notifier, err)
		return err
	}

	in := payments.CompleteInput{
		SessionID:       m.sessionID,
		OrderType:       m.state.OrderType(),
		PaymentMethodID: m.state.SelectedPaymentMethodID(),
		Intent:          m.state.PaymentIntent(),
		Tip:             m.collab.Tip(),
		CartItems:       m.collab.CartItems(),
		Instructions:    m.state.DeliveryInstructions(),
	}
	if f, ok := m.state.Fulfillment().(DeliveryFulfillment); ok {
		in.Quote = m.quotes.Current()
		if addr, found := m.collab.Address(f.AddressID); found {
			in.Address = &addr
		}
	}

	res := m.payments.CompletePayment(ctx, in)
	m.state.SetPaymentIntent(res.Intent)
	if !res.OK {
		if res.Err == nil {
			return pkgerrors.New(pkgerrors.CodeInternal, "payment did not complete")
		}
		return res.Err
	}
	m.state.setDeliveryOrder(res.DeliveryOrder)
	m.state.setStep(enums.CheckoutStepConfirmation)
	return nil
}

func (m *Machine) logContext(ctx context.Context, step enums.CheckoutStep) context.Context {
	if m.logg == nil {
		return ctx
	}
	if m.sessionID != "" {
		ctx = m.logg.WithSessionID(ctx, m.sessionID)
	}
	return m.logg.WithStep(ctx, string(step))
}
