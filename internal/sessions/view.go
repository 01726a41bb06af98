package sessions

import (
	"math"

	"github.com/angelmondragon/catering-checkout/internal/checkout"
	"github.com/angelmondragon/catering-checkout/internal/delivery"
	"github.com/angelmondragon/catering-checkout/internal/payments"
	"github.com/angelmondragon/catering-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/catering-checkout/pkg/errors"
	"github.com/angelmondragon/catering-checkout/pkg/types"
)

// View is what the client renders for a checkout session.
type View struct {
	ID                    string                `json:"id"`
	Caterer               types.Caterer         `json:"caterer"`
	State                 checkout.View         `json:"state"`
	Steps                 []enums.CheckoutStep  `json:"steps"`
	CanContinue           bool                  `json:"can_continue"`
	ContinueBlockedReason string                `json:"continue_blocked_reason,omitempty"`
	Quote                 QuoteView             `json:"quote"`
	Split                 payments.Split        `json:"split"`
	Cart                  []types.CartItem      `json:"cart"`
	Addresses             []types.Address       `json:"addresses"`
	PaymentMethods        []types.PaymentMethod `json:"payment_methods"`
	TimeSlots             []types.TimeSlot      `json:"time_slots"`
	PendingNotifications  int                   `json:"pending_notifications"`
}

// QuoteView summarises the held quote's freshness.
type QuoteView struct {
	Current          *delivery.Quote `json:"current,omitempty"`
	Valid            bool            `json:"valid"`
	InFlight         bool            `json:"in_flight"`
	ExpiresInSeconds int64           `json:"expires_in_seconds"`
}

// view must be called with the session lock held.
func (s *service) view(sess *Session) *View {
	now := sess.quotes.Now()
	current := sess.quotes.Current()
	recs := sess.records

	v := &View{
		ID:             sess.ID,
		Caterer:        sess.caterer,
		State:          sess.state.View(),
		Steps:          sess.machine.Steps(),
		Cart:           append([]types.CartItem{}, recs.cart...),
		Addresses:      append([]types.Address{}, recs.addresses...),
		PaymentMethods: append([]types.PaymentMethod{}, recs.paymentMethods...),
		TimeSlots:      append([]types.TimeSlot{}, recs.timeSlots...),
		Quote: QuoteView{
			Current:          current,
			Valid:            delivery.IsQuoteValid(current, now),
			InFlight:         sess.quotes.InFlight(),
			ExpiresInSeconds: int64(math.Ceil(current.TimeRemaining(now).Seconds())),
		},
		Split:                sess.orchestrator.Preview(sess.state.OrderType(), types.CartSubtotal(recs.cart), recs.tip, current),
		PendingNotifications: sess.inbox.Pending(),
	}
	if err := sess.machine.CanContinue(); err != nil {
		v.ContinueBlockedReason = pkgerrors.PublicMessage(err)
	} else {
		v.CanContinue = true
	}
	return v
}
