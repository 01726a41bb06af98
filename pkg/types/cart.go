package types

import "github.com/shopspring/decimal"

// Caterer identifies the kitchen that prepares a cart item.
type Caterer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// CartItem is a dish line supplied by the cart provider.
type CartItem struct {
	ID        string          `json:"id"`
	DishID    string          `json:"dish_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Caterer   Caterer         `json:"caterer"`
}

// LineTotal returns the item's subtotal, deriving it from unit price when unset.
func (c CartItem) LineTotal() decimal.Decimal {
	if !c.Subtotal.IsZero() {
		return c.Subtotal
	}
	return c.UnitPrice.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

// CartSubtotal sums every line.
func CartSubtotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// CatererIDs returns the distinct caterers in first-seen order.
func CatererIDs(items []CartItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, 1)
	for _, item := range items {
		if _, ok := seen[item.Caterer.ID]; ok {
			continue
		}
		seen[item.Caterer.ID] = struct{}{}
		ids = append(ids, item.Caterer.ID)
	}
	return ids
}
