package enums

import "fmt"

// CheckoutStep is a position in the linear checkout flow.
type CheckoutStep string

const (
	CheckoutStepDeliveryMethod CheckoutStep = "delivery-method"
	CheckoutStepPayment        CheckoutStep = "payment"
	CheckoutStepReview         CheckoutStep = "review"
	CheckoutStepConfirmation   CheckoutStep = "confirmation"
)

// checkoutSteps is ordered; index order is flow order.
var checkoutSteps = []CheckoutStep{
	CheckoutStepDeliveryMethod,
	CheckoutStepPayment,
	CheckoutStepReview,
	CheckoutStepConfirmation,
}

// CheckoutSteps returns the ordered flow.
func CheckoutSteps() []CheckoutStep {
	return append([]CheckoutStep(nil), checkoutSteps...)
}

// String implements fmt.Stringer.
func (s CheckoutStep) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CheckoutStep.
func (s CheckoutStep) IsValid() bool {
	return s.Index() >= 0
}

// Index returns the zero-based position in the flow, or -1 when unknown.
func (s CheckoutStep) Index() int {
	for i, candidate := range checkoutSteps {
		if candidate == s {
			return i
		}
	}
	return -1
}

// IsTerminal reports whether no transition leaves this step.
func (s CheckoutStep) IsTerminal() bool {
	return s == CheckoutStepConfirmation
}

// ParseCheckoutStep converts raw input into a CheckoutStep.
func ParseCheckoutStep(value string) (CheckoutStep, error) {
	for _, candidate := range checkoutSteps {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout step %q", value)
}
