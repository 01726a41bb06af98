package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("expected App.Env to be production, got %q", cfg.App.Env)
	}
	if cfg.Checkout.QuoteTTL != 5*time.Minute {
		t.Fatalf("expected quote ttl 5m, got %v", cfg.Checkout.QuoteTTL)
	}
	if cfg.Checkout.QuoteMinInterval != 500*time.Millisecond {
		t.Fatalf("expected min interval 500ms, got %v", cfg.Checkout.QuoteMinInterval)
	}
	if cfg.Checkout.QuoteMaxRetries != 2 {
		t.Fatalf("expected max retries 2, got %d", cfg.Checkout.QuoteMaxRetries)
	}
	if cfg.Checkout.TaxRate != 0.08 {
		t.Fatalf("expected tax rate 0.08, got %v", cfg.Checkout.TaxRate)
	}
	if cfg.Payments.ProviderName() != PaymentProviderMock {
		t.Fatalf("expected mock provider, got %q", cfg.Payments.ProviderName())
	}
	if cfg.Redis.Enabled() {
		t.Fatal("expected redis to be disabled without url")
	}
}

func TestLoad_ConnectedAccounts(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvConnectedAccounts, "cat-1:acct_111,cat-2:acct_222")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if got := cfg.Payments.ConnectedAccounts["cat-2"]; got != "acct_222" {
		t.Fatalf("unexpected connected account %q", got)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAppEnv); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAppEnv, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_RejectsUnknownProvider(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvPaymentsProvider, "square")

	if _, err := Load(); err == nil {
		t.Fatal("expected unknown payment provider to be rejected")
	}
}

func TestLoad_RejectsInvalidTaxRate(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvTaxRate, "1.5")

	if _, err := Load(); err == nil {
		t.Fatal("expected tax rate above 1 to be rejected")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "production")
	t.Setenv(EnvPort, "8081")
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "prod"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
}

func TestStripeEnvironmentDefaults(t *testing.T) {
	if got := (StripeConfig{}).Environment(); got != "test" {
		t.Fatalf("expected default env test, got %q", got)
	}
	if got := (StripeConfig{Env: " LIVE "}).Environment(); got != "live" {
		t.Fatalf("expected live, got %q", got)
	}
}
