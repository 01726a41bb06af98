package checkout

import (
	"strings"

	"github.com/angelmondragon/catering-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/catering-checkout/pkg/errors"
)

// ErrQuoteNotReady is returned by CanContinue when every selection is present but no
// usable quote is held or being fetched.
var ErrQuoteNotReady = pkgerrors.New(pkgerrors.CodeValidation, "delivery quote is not ready")

// GuardInput is everything the delivery-method step needs to decide whether to continue.
type GuardInput struct {
	OrderType enums.OrderType
	AddressID string
	TimeSlot  string
	// QuoteReady is true when the held quote is valid or a fetch is in flight.
	QuoteReady bool
}

// CanContinue is the single rule for leaving the delivery-method step. Both the
// continue-enabled projection and the Next transition call it.
func CanContinue(in GuardInput) error {
	switch in.OrderType {
	case enums.OrderTypePickup:
		if strings.TrimSpace(in.TimeSlot) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "select a time slot")
		}
		return nil
	case enums.OrderTypeDelivery:
		if strings.TrimSpace(in.AddressID) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "select a delivery address")
		}
		if strings.TrimSpace(in.TimeSlot) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "select a time slot")
		}
		if !in.QuoteReady {
			return ErrQuoteNotReady
		}
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "select delivery or pickup")
	}
}

func requirePaymentMethod(paymentMethodID string) error {
	if strings.TrimSpace(paymentMethodID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "select a payment method")
	}
	return nil
}
