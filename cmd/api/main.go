package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/catering-checkout/api/routes"
	"github.com/angelmondragon/catering-checkout/internal/cron"
	"github.com/angelmondragon/catering-checkout/internal/delivery"
	"github.com/angelmondragon/catering-checkout/internal/payments"
	"github.com/angelmondragon/catering-checkout/internal/sessions"
	"github.com/angelmondragon/catering-checkout/pkg/config"
	"github.com/angelmondragon/catering-checkout/pkg/enums"
	"github.com/angelmondragon/catering-checkout/pkg/logger"
	"github.com/angelmondragon/catering-checkout/pkg/metrics"
	"github.com/angelmondragon/catering-checkout/pkg/redis"
	pkgstripe "github.com/angelmondragon/catering-checkout/pkg/stripe"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	params := routes.Params{
		Config:   cfg,
		Logger:   logg,
		Gatherer: prometheus.DefaultGatherer,
	}

	var gate delivery.Gate
	if cfg.Redis.Enabled() {
		redisClient, redisErr := redis.New(ctx, cfg.Redis, logg)
		if redisErr != nil {
			return redisErr
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
		gate = delivery.NewRedisGate(redisClient, cfg.Checkout.QuoteMinInterval, logg)
		params.RedisPinger = redisClient
		params.Idempotency = redisClient
	} else {
		logg.Info(ctx, "redis not configured; quote throttling and idempotency stay in-process")
	}

	paymentProvider, err := newPaymentProvider(ctx, cfg, logg)
	if err != nil {
		return err
	}

	currency, err := enums.ParseCurrency(cfg.Payments.Currency)
	if err != nil {
		return err
	}

	svc, err := sessions.NewService(sessions.ServiceParams{
		Store:      sessions.NewStore(cfg.Checkout.SessionIdleTTL, nil),
		Deliveries: delivery.NewMockProvider(cfg.Delivery, delivery.WithQuoteTTL(cfg.Checkout.QuoteTTL)),
		Payments:   paymentProvider,
		Accounts:   payments.StaticAccounts(cfg.Payments.ConnectedAccounts),
		Gate:       gate,
		Checkout:   cfg.Checkout,
		Currency:   currency,
		Metrics:    metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer),
		Logger:     logg,
	})
	if err != nil {
		return err
	}
	params.Sessions = svc

	jobs, err := cron.NewRegistry(sessions.NewSweepJob(svc))
	if err != nil {
		return err
	}
	scheduler, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Checkout.SessionSweepPeriod,
	})
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(params),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":              cfg.App.Env,
		"addr":             addr,
		"payment_provider": cfg.Payments.ProviderName(),
	})
	logg.Info(ctx, "starting api server")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return serveErr
		}
		return nil
	})
	g.Go(func() error {
		if runErr := scheduler.Run(gctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
			return runErr
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logg.Info(ctx, "api server shut down")
	return err
}

func newPaymentProvider(ctx context.Context, cfg *config.Config, logg *logger.Logger) (payments.Provider, error) {
	if cfg.Payments.ProviderName() != config.PaymentProviderStripe {
		logg.Warn(ctx, "using in-memory mock payment provider")
		return payments.NewMockProvider(), nil
	}
	if err := pkgstripe.ValidateConnectedAccounts(cfg.Payments.ConnectedAccounts); err != nil {
		return nil, err
	}
	client, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return nil, err
	}
	return payments.NewStripeProvider(payments.NewStripeIntentClient(client))
}
