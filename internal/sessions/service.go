package sessions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/catering-checkout/internal/checkout"
	"github.com/angelmondragon/catering-checkout/internal/delivery"
	"github.com/angelmondragon/catering-checkout/internal/notifications"
	"github.com/angelmondragon/catering-checkout/internal/payments"
	"github.com/angelmondragon/catering-checkout/pkg/config"
	"github.com/angelmondragon/catering-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/catering-checkout/pkg/errors"
	"github.com/angelmondragon/catering-checkout/pkg/logger"
	"github.com/angelmondragon/catering-checkout/pkg/metrics"
	"github.com/angelmondragon/catering-checkout/pkg/types"
)

// Service is the checkout session facade used by the HTTP controllers.
type Service interface {
	Start(ctx context.Context, input StartInput) (*View, error)
	Get(ctx context.Context, sessionID string) (*View, error)
	SetOrderType(ctx context.Context, sessionID string, orderType enums.OrderType) (*View, error)
	SelectAddress(ctx context.Context, sessionID, addressID string) (*View, error)
	AddAddress(ctx context.Context, sessionID string, address types.Address) (*View, error)
	AddPaymentMethod(ctx context.Context, sessionID string, method types.PaymentMethod) (*View, error)
	SelectPaymentMethod(ctx context.Context, sessionID, paymentMethodID string) (*View, error)
	SelectTimeSlot(ctx context.Context, sessionID, slot string, date time.Time) (*View, error)
	SetDeliveryInstructions(ctx context.Context, sessionID, instructions string) (*View, error)
	FetchQuote(ctx context.Context, sessionID string) (*View, error)
	RefreshQuote(ctx context.Context, sessionID string) (*View, error)
	Next(ctx context.Context, sessionID string) (*View, error)
	Previous(ctx context.Context, sessionID string) (*View, error)
	Cancel(ctx context.Context, sessionID string) error
	Notifications(ctx context.Context, sessionID string) ([]notifications.Notification, error)
	Sweep(ctx context.Context) int
}

// StartInput is the checkout entry handoff. The caterer id is explicit; every cart
// item must belong to it.
type StartInput struct {
	CatererID      string
	Cart           []types.CartItem
	Addresses      []types.Address
	PaymentMethods []types.PaymentMethod
	TimeSlots      []types.TimeSlot
	Tip            decimal.Decimal
}

// ServiceParams configure the session service.
type ServiceParams struct {
	Store      *Store
	Deliveries delivery.Provider
	Payments   payments.Provider
	Accounts   payments.AccountDirectory
	Gate       delivery.Gate
	Checkout   config.CheckoutConfig
	Currency   enums.Currency
	Metrics    *metrics.CheckoutMetrics
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	store      *Store
	deliveries delivery.Provider
	payments   payments.Provider
	accounts   payments.AccountDirectory
	gate       delivery.Gate
	policy     payments.SplitPolicy
	currency   enums.Currency
	maxRetries int
	metrics    *metrics.CheckoutMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds the session service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("session store required")
	}
	if params.Deliveries == nil {
		return nil, fmt.Errorf("delivery provider required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment provider required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	gate := params.Gate
	if gate == nil {
		gate = delivery.NewIntervalGate(params.Checkout.QuoteMinInterval, now)
	}
	currency := params.Currency
	if currency == "" {
		currency = enums.CurrencyUSD
	}
	return &service{
		store:      params.Store,
		deliveries: params.Deliveries,
		payments:   params.Payments,
		accounts:   params.Accounts,
		gate:       gate,
		policy:     payments.NewSplitPolicy(params.Checkout.TaxRate, params.Checkout.PlatformFeeRate),
		currency:   currency,
		maxRetries: params.Checkout.QuoteMaxRetries,
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        now,
	}, nil
}

func (s *service) Start(ctx context.Context, input StartInput) (*View, error) {
	catererID := strings.TrimSpace(input.CatererID)
	if catererID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "caterer id required")
	}
	if len(input.Cart) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	for _, item := range input.Cart {
		if item.Caterer.ID != catererID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains items from more than one caterer; check out each caterer separately").
				WithDetails(map[string]any{"caterer_ids": types.CatererIDs(input.Cart)})
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart item quantity must be positive").
				WithDetails(map[string]any{"item_id": item.ID})
		}
	}
	if input.Tip.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tip must not be negative")
	}

	recs := &records{cart: append([]types.CartItem(nil), input.Cart...), tip: input.Tip}
	for _, addr := range input.Addresses {
		if _, err := recs.addAddress(addr); err != nil {
			return nil, err
		}
	}
	for _, method := range input.PaymentMethods {
		if _, err := recs.addPaymentMethod(method); err != nil {
			return nil, err
		}
	}
	for _, slot := range input.TimeSlots {
		if strings.TrimSpace(slot.Label) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "time slot label required")
		}
		if slot.ID == "" {
			slot.ID = slot.Label
		}
		recs.timeSlots = append(recs.timeSlots, slot)
	}

	id := uuid.NewString()
	inbox := notifications.NewInbox(0, s.logg)
	caterer := input.Cart[0].Caterer

	quotes, err := delivery.NewController(s.deliveries, delivery.ControllerOptions{
		Key:           id,
		PickupAddress: caterer.Address,
		Gate:          s.gate,
		Notifier:      inbox,
		Metrics:       s.metrics,
		Logger:        s.logg,
		Now:           s.now,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build quote controller")
	}
	orchestrator, err := payments.NewOrchestrator(s.payments, s.deliveries, payments.OrchestratorOptions{
		Accounts: s.accounts,
		Policy:   s.policy,
		Currency: s.currency,
		Notifier: inbox,
		Metrics:  s.metrics,
		Logger:   s.logg,
		Now:      s.now,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build payment orchestrator")
	}
	state := checkout.NewState()
	machine, err := checkout.NewMachine(state, quotes, orchestrator, recs, checkout.MachineOptions{
		SessionID:       id,
		MaxQuoteRetries: s.maxRetries,
		Notifier:        inbox,
		Metrics:         s.metrics,
		Logger:          s.logg,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build step machine")
	}

	sess := &Session{
		ID:           id,
		CreatedAt:    s.now().UTC(),
		caterer:      caterer,
		records:      recs,
		state:        state,
		quotes:       quotes,
		orchestrator: orchestrator,
		machine:      machine,
		inbox:        inbox,
	}
	for _, addr := range recs.addresses {
		if addr.IsDefault {
			_ = state.SelectAddress(addr.ID)
			break
		}
	}
	for _, method := range recs.paymentMethods {
		if method.IsDefault {
			_ = state.SelectPaymentMethod(method.ID)
			break
		}
	}
	s.store.Put(sess)

	ctx = s.logg.WithSessionID(ctx, id)
	s.logg.Info(s.logg.WithField(ctx, "caterer_id", catererID), "checkout session started")

	return s.view(sess), nil
}

func (s *service) Get(ctx context.Context, sessionID string) (*View, error) {
	return s.with(ctx, sessionID, func(context.Context, *Session) error { return nil })
}

func (s *service) SetOrderType(ctx context.Context, sessionID string, orderType enums.OrderType) (*View, error) {
	return s.with(ctx, sessionID, func(_ context.Context, sess *Session) error {
		before := sess.state.OrderType()
		if err := sess.state.SetOrderType(orderType); err != nil {
			return err
		}
		if before != orderType {
			sess.quotes.Clear()
		}
		return nil
	})
}

func (s *service) SelectAddress(ctx context.Context, sessionID, addressID string) (*View, error) {
	return s.with(ctx, sessionID, func(_ context.Context, sess *Session) error {
		if _, ok := sess.records.Address(addressID); !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		before := sess.state.SelectedAddressID()
		if err := sess.state.SelectAddress(addressID); err != nil {
			return err
		}
		if before != sess.state.SelectedAddressID() {
			sess.quotes.Clear()
		}
		return nil
	})
}

func (s *service) AddAddress(ctx context.Context, sessionID string, address types.Address) (*View, error) {
	return s.with(ctx, sessionID, func(_ context.Context, sess *Session) error {
		if err := ensureOpen(sess); err != nil {
			return err
		}
		added, err := sess.records.addAddress(address)
		if err != nil {
			return err
		}
		if added.IsDefault || sess.state.SelectedAddressID() == "" {
			if err := sess.state.SelectAddress(added.ID); err != nil {
				return err
			}
			sess.quotes.Clear()
		}
		return nil
	})
}

func (s *service) AddPaymentMethod(ctx context.Context, sessionID string, method types.PaymentMethod) (*View, error) {
	return s.with(ctx, sessionID, func(_ context.Context, sess *Session) error {
		if err := ensureOpen(sess); err != nil {
			return err
		}
		added, err := sess.records.addPaymentMethod(method)
		if err != nil {
			return err
		}
		if added.IsDefault || sess.state.SelectedPaymentMethodID() == "" {
			return sess.state.SelectPaymentMethod(added.ID)
		}
		return nil
	})
}

func (s *service) SelectPaymentMethod(ctx context.Context, sessionID, paymentMethodID string) (*View, error) {
	return s.with(ctx, sessionID, func(_ context.Context, sess *Session) error {
		if _, ok := types.FindPaymentMethod(sess.records.paymentMethods, paymentMethodID); !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
		}
		return sess.state.SelectPaymentMethod(paymentMethodID)
	})
}

func (s *service) SelectTimeSlot(ctx context.Context, sessionID, slot string, date time.Time) (*View, error) {
	return s.with(ctx, sessionID, func(_ context.Context, sess *Session) error {
		found, ok := types.FindTimeSlot(sess.records.timeSlots, slot)
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "time slot not found")
		}
		if !found.Available() {
			return pkgerrors.New(pkgerrors.CodeConflict, "time slot is full").
				WithDetails(map[string]any{"time_slot": found.Label})
		}
		beforeSlot, beforeDate := sess.state.PickupTime(), sess.state.SelectedDate()
		if err := sess.state.SelectTimeSlot(found.Label, date); err != nil {
			return err
		}
		sess.quotes.UpdateTimeSelection(found.Label, date)
		if beforeSlot != found.Label || !beforeDate.Equal(date) {
			sess.quotes.Clear()
		}
		return nil
	})
}

func (s *service) SetDeliveryInstructions(ctx context.Context, sessionID, instructions string) (*View, error) {
	return s.with(ctx, sessionID, func(_ context.Context, sess *Session) error {
		return sess.state.SetDeliveryInstructions(instructions)
	})
}

func (s *service) FetchQuote(ctx context.Context, sessionID string) (*View, error) {
	return s.quote(ctx, sessionID, false)
}

func (s *service) RefreshQuote(ctx context.Context, sessionID string) (*View, error) {
	return s.quote(ctx, sessionID, true)
}

// quote runs the provider call without the session lock so a concurrent request
// observes the in-flight guard instead of queueing behind it.
func (s *service) quote(ctx context.Context, sessionID string, refresh bool) (*View, error) {
	sess, ok := s.store.Get(sessionID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
	}
	ctx = s.logg.WithSessionID(ctx, sessionID)

	sess.mu.Lock()
	if err := ensureOpen(sess); err != nil {
		sess.mu.Unlock()
		return nil, err
	}
	if sess.state.OrderType() != enums.OrderTypeDelivery {
		sess.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery quotes apply to delivery orders only")
	}
	var address *types.Address
	if addr, found := sess.records.Address(sess.state.SelectedAddressID()); found {
		address = &addr
	}
	slot := sess.state.PickupTime()
	sess.mu.Unlock()

	if refresh {
		sess.quotes.RefreshQuote(ctx, address)
	} else {
		sess.quotes.FetchQuote(ctx, address, slot)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.state.SetQuote(sess.quotes.Current(), sess.quotes.Now())
	return s.view(sess), nil
}

func (s *service) Next(ctx context.Context, sessionID string) (*View, error) {
	return s.with(ctx, sessionID, func(ctx context.Context, sess *Session) error {
		return sess.machine.Next(ctx)
	})
}

func (s *service) Previous(ctx context.Context, sessionID string) (*View, error) {
	return s.with(ctx, sessionID, func(ctx context.Context, sess *Session) error {
		return sess.machine.Previous(ctx)
	})
}

func (s *service) Cancel(ctx context.Context, sessionID string) error {
	sess, ok := s.store.Get(sessionID)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
	}
	sess.mu.Lock()
	sess.state.Reset()
	sess.quotes.Clear()
	sess.mu.Unlock()
	s.forget(sessionID)
	s.logg.Info(s.logg.WithSessionID(ctx, sessionID), "checkout session canceled")
	return nil
}

func (s *service) Notifications(_ context.Context, sessionID string) ([]notifications.Notification, error) {
	sess, ok := s.store.Get(sessionID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
	}
	return sess.inbox.Drain(), nil
}

// Sweep evicts idle sessions and returns how many were dropped.
func (s *service) Sweep(ctx context.Context) int {
	evicted := s.store.Sweep()
	for _, id := range evicted {
		s.forgetGate(id)
	}
	if len(evicted) > 0 {
		s.logg.Info(s.logg.WithField(ctx, "evicted", len(evicted)), "idle checkout sessions evicted")
	}
	return len(evicted)
}

func (s *service) forget(sessionID string) {
	s.store.Delete(sessionID)
	s.forgetGate(sessionID)
}

func (s *service) forgetGate(sessionID string) {
	if g, ok := s.gate.(interface{ Forget(string) }); ok {
		g.Forget(sessionID)
	}
}

// with runs fn under the session lock and renders the resulting view. On error the
// view is not returned; state is whatever fn left, which setters keep consistent.
func (s *service) with(ctx context.Context, sessionID string, fn func(context.Context, *Session) error) (*View, error) {
	sess, ok := s.store.Get(sessionID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
	}
	ctx = s.logg.WithSessionID(ctx, sessionID)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := fn(ctx, sess); err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

func ensureOpen(sess *Session) error {
	if sess.state.Step().IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order already placed")
	}
	return nil
}

func (r *records) addAddress(addr types.Address) (types.Address, error) {
	if err := addr.Validate(); err != nil {
		return types.Address{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	if strings.TrimSpace(addr.ID) == "" {
		addr.ID = uuid.NewString()
	}
	if _, exists := r.Address(addr.ID); exists {
		return types.Address{}, pkgerrors.New(pkgerrors.CodeConflict, "address already exists")
	}
	if addr.IsDefault {
		for i := range r.addresses {
			r.addresses[i].IsDefault = false
		}
	}
	r.addresses = append(r.addresses, addr)
	return addr, nil
}

func (r *records) addPaymentMethod(method types.PaymentMethod) (types.PaymentMethod, error) {
	if strings.TrimSpace(method.ID) == "" {
		return types.PaymentMethod{}, pkgerrors.New(pkgerrors.CodeValidation, "payment method id required")
	}
	if _, exists := types.FindPaymentMethod(r.paymentMethods, method.ID); exists {
		return types.PaymentMethod{}, pkgerrors.New(pkgerrors.CodeConflict, "payment method already exists")
	}
	if method.IsDefault {
		for i := range r.paymentMethods {
			r.paymentMethods[i].IsDefault = false
		}
	}
	r.paymentMethods = append(r.paymentMethods, method)
	return method, nil
}
