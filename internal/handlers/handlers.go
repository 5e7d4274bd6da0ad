package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artframerapp/artframer/internal/config"
	"github.com/artframerapp/artframer/internal/logging"
	"github.com/artframerapp/artframer/internal/models"
	"github.com/artframerapp/artframer/internal/pricing"
	"github.com/artframerapp/artframer/internal/services"
	"github.com/artframerapp/artframer/internal/shipping"
)

const (
	maxWebhookBodyBytes = 1 << 20 // 1 MB
	maxAPIBodyBytes     = 256 << 10
)

type cartPricer interface {
	CalculatePricing(ctx context.Context, items []models.CartItem, destinationCountry, shippingMethod, resultCurrency string) (*pricing.PricingResult, error)
}

type shippingCalculator interface {
	CalculateShipping(ctx context.Context, items []models.CartItem, address models.Address) ([]shipping.Option, error)
	RecommendedMethod(options []shipping.Option) *shipping.Option
}

type checkoutService interface {
	Checkout(ctx context.Context, input services.CheckoutInput) (*services.CheckoutResult, error)
	HandlePaymentCompleted(ctx context.Context, eventID string, payload []byte) error
	HandlePaymentExpired(ctx context.Context, eventID string, payload []byte) error
}

// Handlers provides the HTTP request handlers for the pricing API.
type Handlers struct {
	config   *config.Config
	db       *pgxpool.Pool
	pricer   cartPricer
	shipper  shippingCalculator
	checkout checkoutService
	logger   *slog.Logger
}

type Dependencies struct {
	Config          *config.Config
	DB              *pgxpool.Pool
	Pricer          cartPricer
	Shipper         shippingCalculator
	CheckoutService checkoutService
	Logger          *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.Pricer == nil {
		return nil, fmt.Errorf("handlers dependencies: pricer is required")
	}
	if deps.Shipper == nil {
		return nil, fmt.Errorf("handlers dependencies: shipper is required")
	}
	if deps.CheckoutService == nil {
		return nil, fmt.Errorf("handlers dependencies: checkoutService is required")
	}

	return &Handlers{
		config:   deps.Config,
		db:       deps.DB,
		pricer:   deps.Pricer,
		shipper:  deps.Shipper,
		checkout: deps.CheckoutService,
		logger:   logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			logger.Error("database health check failed", "error", err)
			http.Error(w, "Database unhealthy", http.StatusServiceUnavailable)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	}); err != nil {
		logger.Error("failed to encode health response", "error", err)
	}
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to encode response", "error", err)
	}
}

// decodeJSON reads a size-limited JSON body into dst, rejecting unknown
// fields so storefront typos fail loudly.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxAPIBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
