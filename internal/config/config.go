package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	ProdigiAPIKey  string `env:"PRODIGI_API_KEY,required" validate:"required"`
	ProdigiBaseURL string `env:"PRODIGI_BASE_URL" envDefault:"https://api.prodigi.com" validate:"required,url"`

	ExchangeRateBaseURL string `env:"EXCHANGE_RATE_BASE_URL" envDefault:"https://api.exchangerate.host" validate:"required,url"`

	StripeSecretKey     string `env:"STRIPE_SECRET_KEY,required" validate:"required"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required" validate:"required"`

	StorefrontBaseURL string `env:"STOREFRONT_BASE_URL,required" validate:"required,url"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis"`

	EmailAPIKey      string `env:"EMAIL_API_KEY"`
	EmailFromAddress string `env:"EMAIL_FROM_ADDRESS" validate:"required_with=EmailAPIKey,omitempty,email"`

	CatalogPath string `env:"CATALOG_PATH"`

	DefaultCurrency        string `env:"DEFAULT_CURRENCY" envDefault:"USD" validate:"required,len=3"`
	DefaultShippingMethod  string `env:"DEFAULT_SHIPPING_METHOD" envDefault:"Standard"`
	MaxRecommendedDelivery int    `env:"MAX_RECOMMENDED_DELIVERY_DAYS" envDefault:"10" validate:"gt=0"`

	SentryDSN              string  `env:"SENTRY_DSN"`
	SentryEnvironment      string  `env:"SENTRY_ENVIRONMENT" envDefault:"development"`
	SentryTracesSampleRate float64 `env:"SENTRY_TRACES_SAMPLE_RATE" envDefault:"0.1" validate:"gte=0,lte=1"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	baseURL := strings.TrimSpace(c.StorefrontBaseURL)
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Hostname() == "" {
		return fmt.Errorf("STOREFRONT_BASE_URL must be a valid absolute URL")
	}
	if !isLocalHost(parsed.Hostname()) && !strings.EqualFold(parsed.Scheme, "https") {
		return fmt.Errorf("STOREFRONT_BASE_URL must use https outside local development")
	}

	c.DefaultCurrency = strings.ToUpper(strings.TrimSpace(c.DefaultCurrency))

	return nil
}

func isLocalHost(host string) bool {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}
