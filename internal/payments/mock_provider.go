package payments

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/angelmondragon/catering-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/catering-checkout/pkg/errors"
)

// DeclinedPaymentMethod is rejected by the mock provider on confirmation.
const DeclinedPaymentMethod = "pm_card_declined"

// MockProvider keeps intents in memory and approves every card except DeclinedPaymentMethod.
type MockProvider struct {
	mu      sync.Mutex
	intents map[string]Intent
}

func NewMockProvider() *MockProvider {
	return &MockProvider{intents: map[string]Intent{}}
}

func (m *MockProvider) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	currency := req.Currency
	if currency == "" {
		currency = enums.CurrencyUSD
	}
	status := enums.PaymentIntentStatusRequiresPaymentMethod
	if req.PaymentMethodID != "" {
		status = enums.PaymentIntentStatusRequiresConfirmation
	}
	id := "pi_mock_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	intent := Intent{
		ID:                 id,
		Status:             status,
		AmountCents:        req.AmountCents,
		Currency:           currency,
		ConnectedAccountID: req.ConnectedAccountID,
		ClientSecret:       id + "_secret",
	}

	m.mu.Lock()
	m.intents[id] = intent
	m.mu.Unlock()

	return &intent, nil
}

func (m *MockProvider) ConfirmIntent(ctx context.Context, intentID, paymentMethodID string) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if paymentMethodID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	intent, ok := m.intents[intentID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
	}
	if intent.Status == enums.PaymentIntentStatusCanceled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment intent canceled")
	}
	if paymentMethodID == DeclinedPaymentMethod {
		intent.Status = enums.PaymentIntentStatusRequiresPaymentMethod
		m.intents[intentID] = intent
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "your card was declined")
	}
	intent.Status = enums.PaymentIntentStatusSucceeded
	m.intents[intentID] = intent
	out := intent
	return &out, nil
}

// Intent returns a stored intent for inspection.
func (m *MockProvider) Intent(id string) (Intent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	intent, ok := m.intents[id]
	return intent, ok
}
