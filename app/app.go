package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"

	"github.com/artframerapp/artframer/internal/cache"
	"github.com/artframerapp/artframer/internal/catalog"
	"github.com/artframerapp/artframer/internal/config"
	"github.com/artframerapp/artframer/internal/currency"
	"github.com/artframerapp/artframer/internal/db"
	"github.com/artframerapp/artframer/internal/email"
	"github.com/artframerapp/artframer/internal/handlers"
	"github.com/artframerapp/artframer/internal/logging"
	"github.com/artframerapp/artframer/internal/observability"
	"github.com/artframerapp/artframer/internal/pricing"
	"github.com/artframerapp/artframer/internal/prodigi"
	"github.com/artframerapp/artframer/internal/services"
	"github.com/artframerapp/artframer/internal/shipping"
	"github.com/artframerapp/artframer/internal/stripe"
)

const providerHTTPTimeout = 30 * time.Second

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *pgxpool.Pool
	CacheProvider cache.Provider
	Handlers      *handlers.Handlers
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			EnableTracing:    true,
			TracesSampleRate: cfg.SentryTracesSampleRate,
			EnableLogs:       true,
		}); err != nil {
			return nil, fmt.Errorf("failed to initialize sentry: %w", err)
		}
	}

	logger := newLogger(cfg)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	frameCatalog, err := loadCatalog(cfg)
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, err
	}

	providerClient := observability.NewHTTPClient(providerHTTPTimeout)

	prodigiClient := prodigi.NewClient(cfg.ProdigiBaseURL, cfg.ProdigiAPIKey, providerClient, logger.With("component", "prodigi_client"))
	converter := currency.NewAPIConverter(cfg.ExchangeRateBaseURL, providerClient, cacheProvider, logger.With("component", "currency_converter"))
	resolver := catalog.NewResolver(frameCatalog)

	pricer := pricing.NewAggregator(
		prodigiClient,
		resolver,
		converter,
		pricing.NewStaticTaxCalculator(),
		logger.With("component", "pricing_aggregator"),
	)
	shipper := shipping.NewAggregator(
		prodigiClient,
		frameCatalog,
		cfg.MaxRecommendedDelivery,
		logger.With("component", "shipping_aggregator"),
	)

	orderStore := db.NewOrderStore(database)
	paymentClient := stripe.NewClient(cfg.StripeSecretKey)

	emailSender, err := newEmailSender(cfg)
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, err
	}

	checkoutService := services.NewCheckoutService(
		pricer,
		orderStore,
		paymentClient,
		emailSender,
		cacheProvider,
		cfg.StorefrontBaseURL,
		cfg.DefaultShippingMethod,
		cfg.DefaultCurrency,
		logger.With("component", "checkout_service"),
	)

	h, err := handlers.New(handlers.Dependencies{
		Config:          cfg,
		DB:              database,
		Pricer:          pricer,
		Shipper:         shipper,
		CheckoutService: checkoutService,
		Logger:          logger,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		DB:            database,
		CacheProvider: cacheProvider,
		Handlers:      h,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
	sentry.Flush(2 * time.Second)
}

func loadCatalog(cfg *config.Config) (*catalog.FrameCatalog, error) {
	if cfg.CatalogPath == "" {
		return catalog.DefaultCatalog()
	}

	data, err := os.ReadFile(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	parsed, err := catalog.NewParser().Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	if err := catalog.NewValidator().Validate(parsed); err != nil {
		return nil, fmt.Errorf("invalid catalog file: %w", err)
	}
	return parsed, nil
}

func newEmailSender(cfg *config.Config) (services.OrderEmailSender, error) {
	if cfg.EmailAPIKey == "" {
		return nil, nil
	}

	renderer, err := email.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize email templates: %w", err)
	}
	provider := email.NewResendProvider(cfg.EmailAPIKey, cfg.EmailFromAddress)
	return services.NewConfirmationSender(provider, renderer, cfg.StorefrontBaseURL), nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = tint.NewHandler(os.Stdout, &tint.Options{Level: cfg.LogLevel})
	}

	if cfg.SentryDSN != "" {
		sentryHandler := sentryslog.Option{
			EventLevel: []slog.Level{slog.LevelError},
			LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelError},
		}.NewSentryHandler(context.Background())
		handler = logging.MultiHandler(handler, sentryHandler)
	}

	return slog.New(handler)
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
