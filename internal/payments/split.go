package payments

import (
	"github.com/shopspring/decimal"
)

// DefaultPlatformFeeRate is the share of the food subtotal retained by the platform.
var DefaultPlatformFeeRate = decimal.NewFromFloat(0.15)

var hundred = decimal.NewFromInt(100)

// Split is the derived breakdown of a checkout charge. It is never persisted.
type Split struct {
	Subtotal         decimal.Decimal `json:"subtotal"`
	DeliveryFee      decimal.Decimal `json:"delivery_fee"`
	TipAmount        decimal.Decimal `json:"tip_amount"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	RestaurantAmount decimal.Decimal `json:"restaurant_amount"`
	PlatformAmount   decimal.Decimal `json:"platform_amount"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
}

// SplitPolicy holds the rates applied to a subtotal.
type SplitPolicy struct {
	TaxRate         decimal.Decimal
	PlatformFeeRate decimal.Decimal
}

// NewSplitPolicy builds a policy from configured float rates.
func NewSplitPolicy(taxRate, platformFeeRate float64) SplitPolicy {
	return SplitPolicy{
		TaxRate:         decimal.NewFromFloat(taxRate),
		PlatformFeeRate: decimal.NewFromFloat(platformFeeRate),
	}
}

// Calculate computes the split. The restaurant receives subtotal*(1-platform rate);
// delivery fee and tip pass through; tax applies to the subtotal only.
func (p SplitPolicy) Calculate(subtotal, deliveryFee, tip decimal.Decimal) Split {
	tax := subtotal.Mul(p.TaxRate).Round(2)
	restaurant := subtotal.Mul(decimal.NewFromInt(1).Sub(p.PlatformFeeRate)).Round(2)
	return Split{
		Subtotal:         subtotal.Round(2),
		DeliveryFee:      deliveryFee.Round(2),
		TipAmount:        tip.Round(2),
		TaxAmount:        tax,
		RestaurantAmount: restaurant,
		PlatformAmount:   subtotal.Round(2).Sub(restaurant),
		TotalAmount:      subtotal.Add(deliveryFee).Add(tip).Add(tax).Round(2),
	}
}

// CalculateSplit applies the default platform fee with the given tax rate.
func CalculateSplit(subtotal, deliveryFee, tip, taxRate decimal.Decimal) Split {
	return SplitPolicy{TaxRate: taxRate, PlatformFeeRate: DefaultPlatformFeeRate}.Calculate(subtotal, deliveryFee, tip)
}

// ToCents converts a dollar amount to the provider's minor unit.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromCents converts minor units back to dollars.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
