package enums

import "fmt"

// PaymentIntentStatus mirrors the payment provider's intent lifecycle.
type PaymentIntentStatus string

const (
	PaymentIntentStatusRequiresPaymentMethod PaymentIntentStatus = "requires_payment_method"
	PaymentIntentStatusRequiresConfirmation  PaymentIntentStatus = "requires_confirmation"
	PaymentIntentStatusRequiresAction        PaymentIntentStatus = "requires_action"
	PaymentIntentStatusProcessing            PaymentIntentStatus = "processing"
	PaymentIntentStatusSucceeded             PaymentIntentStatus = "succeeded"
	PaymentIntentStatusCanceled              PaymentIntentStatus = "canceled"
)

var validPaymentIntentStatuses = []PaymentIntentStatus{
	PaymentIntentStatusRequiresPaymentMethod,
	PaymentIntentStatusRequiresConfirmation,
	PaymentIntentStatusRequiresAction,
	PaymentIntentStatusProcessing,
	PaymentIntentStatusSucceeded,
	PaymentIntentStatusCanceled,
}

// String implements fmt.Stringer.
func (p PaymentIntentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentIntentStatus.
func (p PaymentIntentStatus) IsValid() bool {
	for _, candidate := range validPaymentIntentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsConfirmed reports whether funds are captured or on their way.
func (p PaymentIntentStatus) IsConfirmed() bool {
	return p == PaymentIntentStatusSucceeded || p == PaymentIntentStatusProcessing
}

// ParsePaymentIntentStatus converts raw input into a PaymentIntentStatus.
func ParsePaymentIntentStatus(value string) (PaymentIntentStatus, error) {
	for _, candidate := range validPaymentIntentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment intent status %q", value)
}
