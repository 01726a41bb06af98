package checkout

import (
	"strings"
	"time"

	"github.com/angelmondragon/catering-checkout/internal/delivery"
	"github.com/angelmondragon/catering-checkout/internal/payments"
	"github.com/angelmondragon/catering-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/catering-checkout/pkg/errors"
)

// State holds the shopper's selections for one checkout. It is mutated only through
// its setters so the step guards always see consistent data. State is not safe for
// concurrent use; the owning session serialises access.
type State struct {
	step                    enums.CheckoutStep
	orderType               enums.OrderType
	selectedAddressID       string
	selectedPaymentMethodID string
	deliveryInstructions    string
	pickupTime              string
	selectedDate            time.Time
	paymentIntent           *payments.Intent
	deliveryQuote           *delivery.Quote
	deliveryOrder           *delivery.Order
	quoteRetries            int
}

// NewState returns the initial checkout state: delivery-method step, delivery order.
func NewState() *State {
	s := &State{}
	s.Reset()
	return s
}

// Reset discards every selection, e.g. on exit or cancellation.
func (s *State) Reset() {
	*s = State{
		step:      enums.CheckoutStepDeliveryMethod,
		orderType: enums.OrderTypeDelivery,
	}
}

func (s *State) Step() enums.CheckoutStep        { return s.step }
func (s *State) OrderType() enums.OrderType      { return s.orderType }
func (s *State) SelectedAddressID() string       { return s.selectedAddressID }
func (s *State) SelectedPaymentMethodID() string { return s.selectedPaymentMethodID }
func (s *State) DeliveryInstructions() string    { return s.deliveryInstructions }
func (s *State) PickupTime() string              { return s.pickupTime }
func (s *State) SelectedDate() time.Time         { return s.selectedDate }
func (s *State) PaymentIntent() *payments.Intent { return s.paymentIntent }
func (s *State) DeliveryQuote() *delivery.Quote  { return s.deliveryQuote }
func (s *State) DeliveryOrder() *delivery.Order  { return s.deliveryOrder }
func (s *State) QuoteRetries() int               { return s.quoteRetries }

// SetOrderType switches between delivery and pickup. Switching drops the held quote.
func (s *State) SetOrderType(orderType enums.OrderType) error {
	if !orderType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "order type must be delivery or pickup")
	}
	if err := s.ensureEditable(); err != nil {
		return err
	}
	if orderType != s.orderType {
		s.orderType = orderType
		s.clearQuote()
	}
	return nil
}

// SelectAddress records the chosen address id. A different address drops the held quote.
func (s *State) SelectAddress(addressID string) error {
	addressID = strings.TrimSpace(addressID)
	if addressID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "address id required")
	}
	if err := s.ensureEditable(); err != nil {
		return err
	}
	if addressID != s.selectedAddressID {
		s.selectedAddressID = addressID
		s.clearQuote()
	}
	return nil
}

// SelectPaymentMethod records the chosen payment method id.
func (s *State) SelectPaymentMethod(paymentMethodID string) error {
	paymentMethodID = strings.TrimSpace(paymentMethodID)
	if paymentMethodID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment method id required")
	}
	if err := s.ensureEditable(); err != nil {
		return err
	}
	s.selectedPaymentMethodID = paymentMethodID
	return nil
}

// SelectTimeSlot records the delivery or pickup window. A different slot drops the held quote.
func (s *State) SelectTimeSlot(slot string, date time.Time) error {
	slot = strings.TrimSpace(slot)
	if slot == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "time slot required")
	}
	if err := s.ensureEditable(); err != nil {
		return err
	}
	if slot != s.pickupTime || !date.Equal(s.selectedDate) {
		s.pickupTime = slot
		s.selectedDate = date
		s.clearQuote()
	}
	return nil
}

// SetDeliveryInstructions stores free-text courier instructions.
func (s *State) SetDeliveryInstructions(instructions string) error {
	if err := s.ensureEditable(); err != nil {
		return err
	}
	s.deliveryInstructions = strings.TrimSpace(instructions)
	return nil
}

// SetQuote replaces the held quote wholesale. A usable quote resets the auto-refresh budget.
// A different quote reprices the order, so an unconfirmed intent is dropped.
func (s *State) SetQuote(q *delivery.Quote, now time.Time) {
	if quoteID(q) != quoteID(s.deliveryQuote) {
		s.dropUnconfirmedIntent()
	}
	s.deliveryQuote = q
	if delivery.IsQuoteValid(q, now) {
		s.quoteRetries = 0
	}
}

// SetPaymentIntent records the provider intent so a retry reuses it.
func (s *State) SetPaymentIntent(intent *payments.Intent) {
	if intent != nil {
		s.paymentIntent = intent
	}
}

func (s *State) setDeliveryOrder(order *delivery.Order) {
	s.deliveryOrder = order
}

func (s *State) setStep(step enums.CheckoutStep) {
	s.step = step
}

// clearQuote runs whenever the selection the order was priced for changes.
func (s *State) clearQuote() {
	s.deliveryQuote = nil
	s.quoteRetries = 0
	s.dropUnconfirmedIntent()
}

// dropUnconfirmedIntent forgets an intent priced for an earlier selection. A
// confirmed intent is kept: the shopper has been charged.
func (s *State) dropUnconfirmedIntent() {
	if s.paymentIntent != nil && !s.paymentIntent.Confirmed() {
		s.paymentIntent = nil
	}
}

func quoteID(q *delivery.Quote) string {
	if q == nil {
		return ""
	}
	return q.ID
}

func (s *State) ensureEditable() error {
	if s.step.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order already placed")
	}
	return nil
}

// Fulfillment is how the order reaches the shopper: DeliveryFulfillment or PickupFulfillment.
type Fulfillment interface {
	OrderType() enums.OrderType
	isFulfillment()
}

// DeliveryFulfillment carries the fields a delivery order needs.
type DeliveryFulfillment struct {
	AddressID string
	TimeSlot  string
	Quote     *delivery.Quote
}

func (DeliveryFulfillment) OrderType() enums.OrderType { return enums.OrderTypeDelivery }
func (DeliveryFulfillment) isFulfillment()             {}

// PickupFulfillment carries the fields a pickup order needs.
type PickupFulfillment struct {
	TimeSlot string
}

func (PickupFulfillment) OrderType() enums.OrderType { return enums.OrderTypePickup }
func (PickupFulfillment) isFulfillment()             {}

// Fulfillment projects the order-type dependent selections.
func (s *State) Fulfillment() Fulfillment {
	if s.orderType == enums.OrderTypePickup {
		return PickupFulfillment{TimeSlot: s.pickupTime}
	}
	return DeliveryFulfillment{
		AddressID: s.selectedAddressID,
		TimeSlot:  s.pickupTime,
		Quote:     s.deliveryQuote,
	}
}

// View is the serialisable snapshot of the state.
type View struct {
	Step                    enums.CheckoutStep `json:"step"`
	OrderType               enums.OrderType    `json:"order_type"`
	SelectedAddressID       string             `json:"selected_address_id,omitempty"`
	SelectedPaymentMethodID string             `json:"selected_payment_method_id,omitempty"`
	DeliveryInstructions    string             `json:"delivery_instructions,omitempty"`
	PickupTime              string             `json:"pickup_time,omitempty"`
	SelectedDate            *time.Time         `json:"selected_date,omitempty"`
	PaymentIntent           *payments.Intent   `json:"payment_intent,omitempty"`
	DeliveryQuote           *delivery.Quote    `json:"delivery_quote,omitempty"`
	DeliveryOrder           *delivery.Order    `json:"delivery_order,omitempty"`
}

// View returns a snapshot for rendering.
func (s *State) View() View {
	v := View{
		Step:                    s.step,
		OrderType:               s.orderType,
		SelectedAddressID:       s.selectedAddressID,
		SelectedPaymentMethodID: s.selectedPaymentMethodID,
		DeliveryInstructions:    s.deliveryInstructions,
		PickupTime:              s.pickupTime,
		PaymentIntent:           s.paymentIntent,
		DeliveryQuote:           s.deliveryQuote,
		DeliveryOrder:           s.deliveryOrder,
	}
	if !s.selectedDate.IsZero() {
		date := s.selectedDate
		v.SelectedDate = &date
	}
	return v
}
