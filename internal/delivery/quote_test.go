package delivery

import (
	"testing"
	"time"

	"github.com/angelmondragon/catering-checkout/pkg/enums"
)

func TestIsQuoteValid(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		quote *Quote
		want  bool
	}{
		{name: "nil", quote: nil, want: false},
		{name: "active unexpired", quote: &Quote{Status: enums.QuoteStatusActive, ExpiresAt: now.Add(time.Minute)}, want: true},
		{name: "active at expiry", quote: &Quote{Status: enums.QuoteStatusActive, ExpiresAt: now}, want: false},
		{name: "active expired", quote: &Quote{Status: enums.QuoteStatusActive, ExpiresAt: now.Add(-time.Second)}, want: false},
		{name: "fulfilled unexpired", quote: &Quote{Status: enums.QuoteStatusFulfilled, ExpiresAt: now.Add(time.Minute)}, want: false},
		{name: "expired status unexpired", quote: &Quote{Status: enums.QuoteStatusExpired, ExpiresAt: now.Add(time.Minute)}, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsQuoteValid(tc.quote, now); got != tc.want {
				t.Fatalf("IsQuoteValid() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsQuoteValidFalseAfterExpiryForEveryStatus(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	statuses := []enums.QuoteStatus{enums.QuoteStatusActive, enums.QuoteStatusExpired, enums.QuoteStatusFulfilled}
	for _, status := range statuses {
		for _, offset := range []time.Duration{0, time.Nanosecond, time.Hour} {
			q := &Quote{Status: status, ExpiresAt: now.Add(-offset)}
			if IsQuoteValid(q, now) {
				t.Fatalf("status %s expired by %v reported valid", status, offset)
			}
		}
	}
}

func TestQuoteTimeRemaining(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	q := &Quote{Status: enums.QuoteStatusActive, ExpiresAt: now.Add(90 * time.Second)}
	if got := q.TimeRemaining(now); got != 90*time.Second {
		t.Fatalf("expected 90s remaining, got %v", got)
	}
	if got := q.TimeRemaining(now.Add(2 * time.Minute)); got != 0 {
		t.Fatalf("expected zero after expiry, got %v", got)
	}
}
