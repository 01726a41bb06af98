package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/catering-checkout/pkg/errors"
	"github.com/angelmondragon/catering-checkout/pkg/types"
)

func cartFor(catererIDs ...string) []types.CartItem {
	items := make([]types.CartItem, 0, len(catererIDs))
	for i, id := range catererIDs {
		items = append(items, types.CartItem{
			ID:        string(rune('a' + i)),
			Quantity:  1,
			UnitPrice: d("10"),
			Caterer:   types.Caterer{ID: id},
		})
	}
	return items
}

func TestSingleCaterer(t *testing.T) {
	id, err := SingleCaterer(cartFor("cat-1", "cat-1"))
	require.NoError(t, err)
	assert.Equal(t, "cat-1", id)

	_, err = SingleCaterer(cartFor("cat-1", "cat-2"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = SingleCaterer(nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = SingleCaterer(cartFor(""))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestStaticAccounts(t *testing.T) {
	accounts := StaticAccounts{"cat-1": "acct_1", "cat-2": " "}

	acct, ok := accounts.ConnectedAccount("cat-1")
	assert.True(t, ok)
	assert.Equal(t, "acct_1", acct)

	_, ok = accounts.ConnectedAccount("cat-2")
	assert.False(t, ok)

	_, ok = accounts.ConnectedAccount("missing")
	assert.False(t, ok)
}
