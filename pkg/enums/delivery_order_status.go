package enums

import "fmt"

// DeliveryOrderStatus tracks a courier order created from an accepted quote.
type DeliveryOrderStatus string

const (
	DeliveryOrderStatusCreated   DeliveryOrderStatus = "created"
	DeliveryOrderStatusPickedUp  DeliveryOrderStatus = "picked_up"
	DeliveryOrderStatusDelivered DeliveryOrderStatus = "delivered"
	DeliveryOrderStatusCanceled  DeliveryOrderStatus = "canceled"
)

var validDeliveryOrderStatuses = []DeliveryOrderStatus{
	DeliveryOrderStatusCreated,
	DeliveryOrderStatusPickedUp,
	DeliveryOrderStatusDelivered,
	DeliveryOrderStatusCanceled,
}

// String implements fmt.Stringer.
func (d DeliveryOrderStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryOrderStatus.
func (d DeliveryOrderStatus) IsValid() bool {
	for _, candidate := range validDeliveryOrderStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDeliveryOrderStatus converts raw input into a DeliveryOrderStatus.
func ParseDeliveryOrderStatus(value string) (DeliveryOrderStatus, error) {
	for _, candidate := range validDeliveryOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery order status %q", value)
}
