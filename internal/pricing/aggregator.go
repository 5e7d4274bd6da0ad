package pricing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/shopspring/decimal"

	"github.com/artframerapp/artframer/internal/catalog"
	"github.com/artframerapp/artframer/internal/currency"
	"github.com/artframerapp/artframer/internal/logging"
	"github.com/artframerapp/artframer/internal/models"
	"github.com/artframerapp/artframer/internal/observability"
	"github.com/artframerapp/artframer/internal/prodigi"
)

type quoteClient interface {
	GetQuote(ctx context.Context, req prodigi.QuoteRequest) (*prodigi.Quote, error)
}

type skuResolver interface {
	ResolveSKU(frame models.FrameConfig) (string, error)
}

const defaultQuoteCurrency = "USD"

// Aggregator runs the full pricing pipeline: SKU resolution, attribute
// normalization, quote request shaping, quote matching, currency conversion
// and tax. It holds no mutable state; concurrent calculations for different
// carts are fully independent.
type Aggregator struct {
	quotes    quoteClient
	resolver  skuResolver
	converter currency.Converter
	tax       TaxCalculator
	logger    *slog.Logger
}

func NewAggregator(quotes quoteClient, resolver skuResolver, converter currency.Converter, tax TaxCalculator, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Aggregator{
		quotes:    quotes,
		resolver:  resolver,
		converter: converter,
		tax:       tax,
		logger:    logger,
	}
}

// CalculatePricing prices a cart for a destination. resultCurrency may be
// empty to keep the provider's quote currency. The returned result is never
// an unflagged zero: provider failures surface as *PricingError, and items
// the quote did not cover are listed in Unmatched with Estimated set.
func (a *Aggregator) CalculatePricing(ctx context.Context, items []models.CartItem, destinationCountry, shippingMethod, resultCurrency string) (*PricingResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.pricing.calculate",
		sentry.WithOpName("service.pricing"),
		sentry.WithDescription("CalculatePricing"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := logging.FromContext(ctx, a.logger)
	meter := observability.MeterFromContext(ctx)

	if err := validateCart(items, destinationCountry); err != nil {
		meter.Count("pricing.rejected", 1, sentry.WithAttributes(
			attribute.String("reason", "invalid_input"),
		))
		return nil, err
	}

	resolved, err := a.resolveSKUs(items)
	if err != nil {
		meter.Count("pricing.rejected", 1, sentry.WithAttributes(
			attribute.String("reason", "sku_not_found"),
		))
		return nil, err
	}

	quote, err := a.quotes.GetQuote(ctx, buildQuoteRequest(resolved, destinationCountry, shippingMethod))
	if err != nil {
		meter.Count("pricing.failed", 1, sentry.WithAttributes(
			attribute.String("reason", "provider_call_failed"),
		))
		return nil, &PricingError{Detail: "provider quote request failed", Err: err}
	}

	match := MatchQuotes(resolved, quote.Lines)
	if len(match.ItemPrices) == 0 {
		meter.Count("pricing.failed", 1, sentry.WithAttributes(
			attribute.String("reason", "no_usable_quote_lines"),
		))
		return nil, &PricingError{Detail: fmt.Sprintf("provider returned no usable quote lines for %d items", len(items))}
	}
	for _, idx := range match.Unmatched {
		logger.Warn("cart item has no quote line, excluded from subtotal",
			"item_index", idx, "sku", resolved[idx].SKU)
	}
	if len(match.Unmatched) > 0 {
		meter.Count("pricing.items.unmatched", int64(len(match.Unmatched)))
	}

	quoteCurrency := quote.Currency
	if quoteCurrency == "" {
		quoteCurrency = defaultQuoteCurrency
	}
	resultCurrency = strings.ToUpper(strings.TrimSpace(resultCurrency))
	if resultCurrency == "" {
		resultCurrency = quoteCurrency
	}

	result := &PricingResult{
		Currency:   resultCurrency,
		ItemPrices: make(map[int]ItemPrice, len(match.ItemPrices)),
		Estimated:  match.Estimated,
		Unmatched:  match.Unmatched,
	}

	subtotal := decimal.Zero
	for idx, price := range match.ItemPrices {
		unitCost, err := a.converter.Convert(ctx, price.UnitCost, quoteCurrency, resultCurrency)
		if err != nil {
			meter.Count("pricing.failed", 1, sentry.WithAttributes(
				attribute.String("reason", "currency_conversion_failed"),
			))
			return nil, &PricingError{Detail: "currency conversion failed", Err: err}
		}
		result.ItemPrices[idx] = ItemPrice{UnitCost: unitCost, Source: price.Source}
		subtotal = subtotal.Add(unitCost.Mul(decimal.NewFromInt(int64(resolved[idx].Quantity))))
	}

	shipping, err := a.converter.Convert(ctx, quote.ShippingCost, quoteCurrency, resultCurrency)
	if err != nil {
		return nil, &PricingError{Detail: "currency conversion failed", Err: err}
	}

	result.Subtotal = subtotal.Round(2)
	result.Shipping = shipping.Round(2)
	result.Tax = a.tax.TaxFor(destinationCountry, result.Subtotal)
	result.Total = result.Subtotal.Add(result.Tax).Add(result.Shipping).Round(2)

	meter.Count("pricing.calculated", 1, sentry.WithAttributes(
		attribute.Bool("estimated", result.Estimated),
	))
	logger.Info("pricing calculated",
		"items", len(items),
		"destination", destinationCountry,
		"currency", result.Currency,
		"subtotal", result.Subtotal.StringFixed(2),
		"total", result.Total.StringFixed(2),
		"estimated", result.Estimated,
		"unmatched", len(result.Unmatched),
	)

	return result, nil
}

func (a *Aggregator) resolveSKUs(items []models.CartItem) ([]models.CartItem, error) {
	resolved := make([]models.CartItem, len(items))
	copy(resolved, items)

	for i := range resolved {
		if strings.TrimSpace(resolved[i].SKU) != "" {
			continue
		}
		sku, err := a.resolver.ResolveSKU(resolved[i].Frame)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		resolved[i].SKU = sku
	}
	return resolved, nil
}

// buildQuoteRequest groups distinct (sku, attributes) tuples, summing
// quantities, preserving first-appearance order.
func buildQuoteRequest(items []models.CartItem, destinationCountry, shippingMethod string) prodigi.QuoteRequest {
	req := prodigi.QuoteRequest{
		ShippingMethod:     shippingMethod,
		DestinationCountry: destinationCountry,
	}

	index := make(map[string]int)
	for _, item := range items {
		attrs := catalog.NormalizeAttributes(item.Frame.Attributes())
		key := matchKey(item.SKU, attrs)
		if i, ok := index[key]; ok {
			req.Items[i].Quantity += item.Quantity
			continue
		}
		index[key] = len(req.Items)
		req.Items = append(req.Items, prodigi.QuoteItem{
			SKU:        item.SKU,
			Attributes: attrs,
			Quantity:   item.Quantity,
		})
	}
	return req
}

func validateCart(items []models.CartItem, destinationCountry string) error {
	var fields []models.FieldError
	if len(items) == 0 {
		fields = append(fields, models.FieldError{Field: "items", Message: "cart is empty"})
	}
	for i, item := range items {
		if item.Quantity < 1 {
			fields = append(fields, models.FieldError{
				Field:   fmt.Sprintf("items[%d].quantity", i),
				Message: "quantity must be at least 1",
			})
		}
	}
	if strings.TrimSpace(destinationCountry) == "" {
		fields = append(fields, models.FieldError{Field: "destinationCountry", Message: "destination country is required"})
	}

	if len(fields) > 0 {
		return &models.ValidationError{Fields: fields}
	}
	return nil
}
