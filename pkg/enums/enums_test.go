package enums

import "testing"

func TestCheckoutStepOrder(t *testing.T) {
	steps := CheckoutSteps()
	if len(steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(steps))
	}
	for i, step := range steps {
		if step.Index() != i {
			t.Fatalf("step %s expected index %d got %d", step, i, step.Index())
		}
	}
	if !CheckoutStepConfirmation.IsTerminal() {
		t.Fatal("confirmation must be terminal")
	}
	if CheckoutStep("shipping").IsValid() {
		t.Fatal("unknown step reported valid")
	}

	steps[0] = CheckoutStepReview
	if CheckoutSteps()[0] != CheckoutStepDeliveryMethod {
		t.Fatal("CheckoutSteps must return a copy")
	}
}

func TestParseOrderType(t *testing.T) {
	if got, err := ParseOrderType("pickup"); err != nil || got != OrderTypePickup {
		t.Fatalf("unexpected parse result %q, %v", got, err)
	}
	if _, err := ParseOrderType("drone"); err == nil {
		t.Fatal("expected error for unknown order type")
	}
}

func TestParseCurrencyIsCaseInsensitive(t *testing.T) {
	got, err := ParseCurrency(" USD ")
	if err != nil {
		t.Fatalf("parse currency: %v", err)
	}
	if got != CurrencyUSD {
		t.Fatalf("expected usd got %q", got)
	}
}

func TestPaymentIntentStatusConfirmed(t *testing.T) {
	if !PaymentIntentStatusSucceeded.IsConfirmed() {
		t.Fatal("succeeded should be confirmed")
	}
	if PaymentIntentStatusRequiresAction.IsConfirmed() {
		t.Fatal("requires_action should not be confirmed")
	}
}
