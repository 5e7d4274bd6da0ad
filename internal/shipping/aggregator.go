package shipping

import (
	"context"
	"io"
	"log/slog"
	"sort"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/artframerapp/artframer/internal/catalog"
	"github.com/artframerapp/artframer/internal/logging"
	"github.com/artframerapp/artframer/internal/models"
	"github.com/artframerapp/artframer/internal/observability"
	"github.com/artframerapp/artframer/internal/prodigi"
)

type shippingClient interface {
	GetShippingOptions(ctx context.Context, req prodigi.ShippingRequest) ([]prodigi.ShippingQuote, error)
}

const defaultMaxRecommendedDays = 10

// Aggregator requests shipping options for a full cart and ranks them by
// cost. Zero provider quotes degrade to a heuristic estimate rather than a
// hard failure.
type Aggregator struct {
	client             shippingClient
	fallback           *fallbackEstimator
	maxRecommendedDays int
	logger             *slog.Logger
}

func NewAggregator(client shippingClient, cat *catalog.FrameCatalog, maxRecommendedDays int, logger *slog.Logger) *Aggregator {
	if maxRecommendedDays <= 0 {
		maxRecommendedDays = defaultMaxRecommendedDays
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Aggregator{
		client:             client,
		fallback:           &fallbackEstimator{catalog: cat},
		maxRecommendedDays: maxRecommendedDays,
		logger:             logger,
	}
}

// CalculateShipping validates the address, requests provider shipping
// quotes and returns options sorted by total cost. An empty provider
// response yields a single fallback option tagged SourceFallback.
func (a *Aggregator) CalculateShipping(ctx context.Context, items []models.CartItem, address models.Address) ([]Option, error) {
	span := sentry.StartSpan(
		ctx,
		"service.shipping.calculate",
		sentry.WithOpName("service.shipping"),
		sentry.WithDescription("CalculateShipping"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := logging.FromContext(ctx, a.logger)
	meter := observability.MeterFromContext(ctx)

	if err := ValidateAddress(address); err != nil {
		meter.Count("shipping.rejected", 1, sentry.WithAttributes(
			attribute.String("reason", "invalid_address"),
		))
		return nil, err
	}
	if len(items) == 0 {
		return nil, &models.ValidationError{Fields: []models.FieldError{
			{Field: "items", Message: "cart is empty"},
		}}
	}

	quotes, err := a.client.GetShippingOptions(ctx, prodigi.ShippingRequest{
		Items:   quoteItems(items),
		Address: address,
	})
	if err != nil {
		meter.Count("shipping.failed", 1, sentry.WithAttributes(
			attribute.String("reason", "provider_call_failed"),
		))
		return nil, &ShippingError{Detail: "provider shipping request failed", Err: err}
	}

	if len(quotes) == 0 {
		logger.Warn("provider returned no shipping quotes, using fallback estimate",
			"items", len(items), "destination", address.CountryCode)
		meter.Count("shipping.fallback", 1)
		return []Option{a.fallback.estimate(items, address)}, nil
	}

	options := make([]Option, 0, len(quotes))
	for _, quote := range quotes {
		options = append(options, Option{
			Method: quote.Method,
			Cost: Cost{
				Items:    quote.ItemsCost.Round(2),
				Shipping: quote.ShippingCost.Round(2),
				Total:    quote.ItemsCost.Add(quote.ShippingCost).Round(2),
				Currency: quote.Currency,
			},
			Delivery: Delivery{
				MinDays:   quote.DeliveryMinDays,
				MaxDays:   quote.DeliveryMaxDays,
				Formatted: formatDelivery(quote.DeliveryMinDays, quote.DeliveryMaxDays),
			},
			Source: SourceProvider,
		})
	}
	sort.SliceStable(options, func(i, j int) bool {
		return options[i].Cost.Total.LessThan(options[j].Cost.Total)
	})

	meter.Count("shipping.calculated", 1, sentry.WithAttributes(
		attribute.Int("options", len(options)),
	))
	return options, nil
}

// RecommendedMethod picks the cheapest option delivering within the
// configured threshold, falling back to the cheapest overall when nothing
// is fast enough. Options must already be sorted by cost.
func (a *Aggregator) RecommendedMethod(options []Option) *Option {
	if len(options) == 0 {
		return nil
	}
	for i := range options {
		if options[i].Delivery.MaxDays <= a.maxRecommendedDays {
			return &options[i]
		}
	}
	return &options[0]
}

func quoteItems(items []models.CartItem) []prodigi.QuoteItem {
	quoteItems := make([]prodigi.QuoteItem, 0, len(items))
	for _, item := range items {
		quoteItems = append(quoteItems, prodigi.QuoteItem{
			SKU:        item.SKU,
			Attributes: catalog.NormalizeAttributes(item.Frame.Attributes()),
			Quantity:   item.Quantity,
		})
	}
	return quoteItems
}
