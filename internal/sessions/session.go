package sessions

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/catering-checkout/internal/checkout"
	"github.com/angelmondragon/catering-checkout/internal/delivery"
	"github.com/angelmondragon/catering-checkout/internal/notifications"
	"github.com/angelmondragon/catering-checkout/internal/payments"
	"github.com/angelmondragon/catering-checkout/pkg/types"
)

// Session owns one shopper's checkout: state, quote controller, orchestrator and the
// records handed over at entry. mu serialises every mutation.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu           sync.Mutex
	caterer      types.Caterer
	records      *records
	state        *checkout.State
	quotes       *delivery.Controller
	orchestrator *payments.Orchestrator
	machine      *checkout.Machine
	inbox        *notifications.Inbox
}

// records are the externally owned collections passed by reference to the step machine.
// They are only read or written with the session lock held.
type records struct {
	cart           []types.CartItem
	addresses      []types.Address
	paymentMethods []types.PaymentMethod
	timeSlots      []types.TimeSlot
	tip            decimal.Decimal
}

func (r *records) Address(id string) (types.Address, bool) {
	return types.FindAddress(r.addresses, id)
}

func (r *records) CartItems() []types.CartItem {
	return append([]types.CartItem(nil), r.cart...)
}

func (r *records) Tip() decimal.Decimal {
	return r.tip
}
