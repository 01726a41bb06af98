package payments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/catering-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/catering-checkout/pkg/errors"
)

type stubStripeIntents struct {
	newParams     *stripe.PaymentIntentParams
	confirmID     string
	confirmParams *stripe.PaymentIntentConfirmParams
	result        *stripe.PaymentIntent
	err           error
}

func (s *stubStripeIntents) New(_ context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	s.newParams = params
	return s.result, s.err
}

func (s *stubStripeIntents) Confirm(_ context.Context, id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error) {
	s.confirmID = id
	s.confirmParams = params
	return s.result, s.err
}

func TestStripeProviderCreateIntent(t *testing.T) {
	client := &stubStripeIntents{result: &stripe.PaymentIntent{
		ID:       "pi_123",
		Status:   stripe.PaymentIntentStatusRequiresConfirmation,
		Amount:   11300,
		Currency: stripe.CurrencyUSD,
	}}
	p, err := NewStripeProvider(client)
	require.NoError(t, err)

	intent, err := p.CreateIntent(context.Background(), IntentRequest{
		AmountCents:         11300,
		Currency:            enums.CurrencyUSD,
		PaymentMethodID:     "pm_1",
		ConnectedAccountID:  "acct_1",
		ApplicationFeeCents: 1500,
		Metadata:            map[string]string{"caterer_id": "cat-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, enums.PaymentIntentStatusRequiresConfirmation, intent.Status)
	assert.Equal(t, "acct_1", intent.ConnectedAccountID)

	params := client.newParams
	require.NotNil(t, params)
	assert.Equal(t, int64(11300), *params.Amount)
	assert.Equal(t, "usd", *params.Currency)
	assert.Equal(t, "pm_1", *params.PaymentMethod)
	assert.Equal(t, "acct_1", *params.TransferData.Destination)
	assert.Equal(t, int64(1500), *params.ApplicationFeeAmount)
	assert.Equal(t, "cat-1", params.Metadata["caterer_id"])
}

func TestStripeProviderConfirm(t *testing.T) {
	client := &stubStripeIntents{result: &stripe.PaymentIntent{
		ID:       "pi_123",
		Status:   stripe.PaymentIntentStatusSucceeded,
		Currency: stripe.CurrencyUSD,
	}}
	p, err := NewStripeProvider(client)
	require.NoError(t, err)

	intent, err := p.ConfirmIntent(context.Background(), "pi_123", "pm_1")
	require.NoError(t, err)
	assert.True(t, intent.Confirmed())
	assert.Equal(t, "pi_123", client.confirmID)
	assert.Equal(t, "pm_1", *client.confirmParams.PaymentMethod)
}

func TestStripeProviderMapsErrors(t *testing.T) {
	client := &stubStripeIntents{err: &stripe.Error{Type: stripe.ErrorTypeCard, Msg: "Your card has insufficient funds."}}
	p, err := NewStripeProvider(client)
	require.NoError(t, err)

	_, err = p.ConfirmIntent(context.Background(), "pi_123", "pm_1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, "Your card has insufficient funds.", pkgerrors.PublicMessage(err))

	client.err = &stripe.Error{Type: stripe.ErrorTypeAPI, Msg: "boom"}
	_, err = p.CreateIntent(context.Background(), IntentRequest{AmountCents: 100})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestStripeProviderRequiresClient(t *testing.T) {
	_, err := NewStripeProvider(nil)
	assert.Error(t, err)
	assert.Nil(t, NewStripeIntentClient(nil))
}
