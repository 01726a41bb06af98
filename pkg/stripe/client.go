package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/catering-checkout/pkg/config"
	"github.com/angelmondragon/catering-checkout/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

const (
	appName           = "catering-checkout"
	connectedAcctPfx  = "acct_"
	publishableKeyPfx = "pk_"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errPublishableKey   = errors.New("stripe api key must be a secret or restricted key, not a publishable key")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// Client wraps Stripe's API client used to create and confirm payment intents
// on behalf of caterer connected accounts.
type Client struct {
	api         *stripe.Client
	environment string
}

// NewClient initializes Stripe once with the configured secret key and env.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	if strings.HasPrefix(apiKey, publishableKeyPfx) {
		return nil, errPublishableKey
	}

	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	stripe.SetAppInfo(&stripe.AppInfo{Name: appName})
	api := stripe.NewClient(apiKey)
	stripe.Key = apiKey

	logg.Info(logg.WithField(ctx, "stripe_env", env), "stripe client initialized")

	return &Client{
		api:         api,
		environment: env,
	}, nil
}

// API returns the underlying Stripe API client.
func (c *Client) API() *stripe.Client {
	if c == nil {
		return nil
	}
	return c.api
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// Live reports whether charges are real.
func (c *Client) Live() bool {
	return c.Environment() == liveEnv
}

// ValidateConnectedAccounts checks that every caterer maps to a Stripe
// connected account id.
func ValidateConnectedAccounts(accounts map[string]string) error {
	for catererID, acct := range accounts {
		if strings.TrimSpace(catererID) == "" {
			return fmt.Errorf("connected account %q has no caterer id", acct)
		}
		if !strings.HasPrefix(strings.TrimSpace(acct), connectedAcctPfx) {
			return fmt.Errorf("caterer %q: connected account must start with %q", catererID, connectedAcctPfx)
		}
	}
	return nil
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}
