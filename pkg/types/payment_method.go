package types

// PaymentMethod is a saved card token; only the provider id is ever charged.
type PaymentMethod struct {
	ID        string `json:"id"`
	Brand     string `json:"brand"`
	Last4     string `json:"last4"`
	ExpMonth  int    `json:"exp_month"`
	ExpYear   int    `json:"exp_year"`
	IsDefault bool   `json:"is_default"`
}

// FindPaymentMethod looks up a payment method by id.
func FindPaymentMethod(methods []PaymentMethod, id string) (PaymentMethod, bool) {
	for _, method := range methods {
		if method.ID == id {
			return method, true
		}
	}
	return PaymentMethod{}, false
}
