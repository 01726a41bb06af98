package payments

import (
	"strings"

	pkgerrors "github.com/angelmondragon/catering-checkout/pkg/errors"
	"github.com/angelmondragon/catering-checkout/pkg/types"
)

// AccountDirectory resolves a caterer's connected account in the payment provider.
type AccountDirectory interface {
	ConnectedAccount(catererID string) (string, bool)
}

// StaticAccounts is a fixed caterer id to connected account mapping.
type StaticAccounts map[string]string

func (s StaticAccounts) ConnectedAccount(catererID string) (string, bool) {
	acct, ok := s[strings.TrimSpace(catererID)]
	if !ok || strings.TrimSpace(acct) == "" {
		return "", false
	}
	return acct, true
}

// SingleCaterer returns the only caterer supplying the cart. Carts spanning more
// than one caterer are rejected; routing all funds to one of them would misroute payment.
func SingleCaterer(items []types.CartItem) (string, error) {
	if len(items) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	ids := types.CatererIDs(items)
	if len(ids) > 1 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cart contains items from more than one caterer; check out each caterer separately").
			WithDetails(map[string]any{"caterer_ids": ids})
	}
	if strings.TrimSpace(ids[0]) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cart items missing caterer")
	}
	return ids[0], nil
}
