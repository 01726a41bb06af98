package config

// EnvPrefix is empty because every field carries its full CATERING_* name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	PaymentProviderMock   = "mock"
	PaymentProviderStripe = "stripe"
)

const (
	EnvAppEnv   = "CATERING_APP_ENV"
	EnvPort     = "CATERING_APP_PORT"
	EnvLogLevel = "CATERING_LOG_LEVEL"

	EnvRedisURL = "CATERING_REDIS_URL"

	EnvQuoteTTL          = "CATERING_QUOTE_TTL"
	EnvQuoteMinInterval  = "CATERING_QUOTE_MIN_INTERVAL"
	EnvQuoteMaxRetries   = "CATERING_QUOTE_MAX_RETRIES"
	EnvTaxRate           = "CATERING_TAX_RATE"
	EnvPlatformFeeRate   = "CATERING_PLATFORM_FEE_RATE"
	EnvSessionIdleTTL    = "CATERING_SESSION_IDLE_TTL"
	EnvPaymentsProvider  = "CATERING_PAYMENTS_PROVIDER"
	EnvConnectedAccounts = "CATERING_CONNECTED_ACCOUNTS"

	EnvStripeAPIKey = "CATERING_STRIPE_API_KEY"
	EnvStripeEnv    = "CATERING_STRIPE_ENV"
)
