package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Redis    RedisConfig
	Checkout CheckoutConfig
	Payments PaymentsConfig
	Stripe   StripeConfig
	Delivery DeliveryConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Payments.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CATERING_APP_ENV" required:"true"`
	Port         string `envconfig:"CATERING_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CATERING_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CATERING_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"CATERING_LOG_FORMAT"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// RedisConfig is optional; an empty URL and address keeps throttling and idempotency in-process.
type RedisConfig struct {
	URL          string        `envconfig:"CATERING_REDIS_URL"`
	Address      string        `envconfig:"CATERING_REDIS_ADDR"`
	Password     string        `envconfig:"CATERING_REDIS_PASSWORD"`
	DB           int           `envconfig:"CATERING_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CATERING_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CATERING_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CATERING_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CATERING_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CATERING_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint has been configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type CheckoutConfig struct {
	QuoteTTL           time.Duration `envconfig:"CATERING_QUOTE_TTL" default:"5m"`
	QuoteMinInterval   time.Duration `envconfig:"CATERING_QUOTE_MIN_INTERVAL" default:"500ms"`
	QuoteMaxRetries    int           `envconfig:"CATERING_QUOTE_MAX_RETRIES" default:"2"`
	TaxRate            float64       `envconfig:"CATERING_TAX_RATE" default:"0.08"`
	PlatformFeeRate    float64       `envconfig:"CATERING_PLATFORM_FEE_RATE" default:"0.15"`
	SessionIdleTTL     time.Duration `envconfig:"CATERING_SESSION_IDLE_TTL" default:"30m"`
	SessionSweepPeriod time.Duration `envconfig:"CATERING_SESSION_SWEEP_PERIOD" default:"1m"`
}

func (c CheckoutConfig) validate() error {
	if c.QuoteTTL <= 0 {
		return fmt.Errorf("%s must be positive", EnvQuoteTTL)
	}
	if c.QuoteMinInterval < 0 {
		return fmt.Errorf("%s must not be negative", EnvQuoteMinInterval)
	}
	if c.QuoteMaxRetries < 1 {
		return fmt.Errorf("%s must be at least 1", EnvQuoteMaxRetries)
	}
	if c.TaxRate < 0 || c.TaxRate >= 1 {
		return fmt.Errorf("%s must be within [0, 1)", EnvTaxRate)
	}
	if c.PlatformFeeRate < 0 || c.PlatformFeeRate >= 1 {
		return fmt.Errorf("%s must be within [0, 1)", EnvPlatformFeeRate)
	}
	return nil
}

type PaymentsConfig struct {
	Provider string `envconfig:"CATERING_PAYMENTS_PROVIDER" default:"mock"`
	Currency string `envconfig:"CATERING_PAYMENTS_CURRENCY" default:"usd"`
	// ConnectedAccounts maps caterer ids to payment-provider sub-merchant accounts ("caterer:acct,...").
	ConnectedAccounts map[string]string `envconfig:"CATERING_CONNECTED_ACCOUNTS"`
}

// ProviderName returns the normalized payment provider name.
func (p PaymentsConfig) ProviderName() string {
	name := strings.TrimSpace(strings.ToLower(p.Provider))
	if name == "" {
		return PaymentProviderMock
	}
	return name
}

func (p PaymentsConfig) validate() error {
	switch p.ProviderName() {
	case PaymentProviderMock, PaymentProviderStripe:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvPaymentsProvider, PaymentProviderMock, PaymentProviderStripe)
	}
}

type StripeConfig struct {
	APIKey string `envconfig:"CATERING_STRIPE_API_KEY"`
	Env    string `envconfig:"CATERING_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type DeliveryConfig struct {
	BaseFee         float64       `envconfig:"CATERING_DELIVERY_BASE_FEE" default:"4.99"`
	PerMileFee      float64       `envconfig:"CATERING_DELIVERY_PER_MILE_FEE" default:"0.75"`
	PeakSurcharge   float64       `envconfig:"CATERING_DELIVERY_PEAK_SURCHARGE" default:"2.00"`
	DefaultLeadTime time.Duration `envconfig:"CATERING_DELIVERY_LEAD_TIME" default:"45m"`
}
