package prodigi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/shopspring/decimal"

	"github.com/artframerapp/artframer/internal/logging"
)

const (
	quotesPath = "/v4.0/quotes"

	maxAttempts      = 3
	initialBackoff   = 500 * time.Millisecond
	maxResponseBytes = 1 << 20 // 1 MB
)

// Client is an explicitly constructed, dependency-injected quoting client.
// It owns the bounded retry policy for rate limits and transient 5xx; the
// matcher above it never retries.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL, apiKey string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

// GetQuote requests price quotes for the given tuples and flattens the
// first matching provider quote into lines plus a shipping cost.
func (c *Client) GetQuote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	span := sentry.StartSpan(
		ctx,
		"http.client.prodigi.quote",
		sentry.WithOpName("http.client"),
		sentry.WithDescription("GetQuote"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	resp, err := c.postQuotes(ctx, req)
	if err != nil {
		return nil, err
	}

	quote := &Quote{Method: req.ShippingMethod}
	if len(resp.Quotes) == 0 {
		return quote, nil
	}

	// price against the first quote entry; later entries are alternative
	// shipping methods for the same items
	entry := resp.Quotes[0]
	for _, item := range entry.Items {
		unitCost, err := decimal.NewFromString(item.UnitCost.Amount)
		if err != nil {
			return nil, fmt.Errorf("failed to parse unit cost %q for sku %s: %w", item.UnitCost.Amount, item.SKU, err)
		}
		quote.Lines = append(quote.Lines, QuoteLine{
			SKU:        item.SKU,
			Attributes: item.Attributes,
			UnitCost:   unitCost,
			Currency:   item.UnitCost.Currency,
		})
		if quote.Currency == "" {
			quote.Currency = item.UnitCost.Currency
		}
	}
	if entry.CostSummary.Shipping.Amount != "" {
		shipping, err := decimal.NewFromString(entry.CostSummary.Shipping.Amount)
		if err != nil {
			return nil, fmt.Errorf("failed to parse shipping cost %q: %w", entry.CostSummary.Shipping.Amount, err)
		}
		quote.ShippingCost = shipping
		if quote.Method == "" {
			quote.Method = entry.ShipmentMethod
		}
	}
	return quote, nil
}

// GetShippingOptions requests quotes without pinning a shipping method so
// the provider returns one quote entry per available method.
func (c *Client) GetShippingOptions(ctx context.Context, req ShippingRequest) ([]ShippingQuote, error) {
	span := sentry.StartSpan(
		ctx,
		"http.client.prodigi.shipping",
		sentry.WithOpName("http.client"),
		sentry.WithDescription("GetShippingOptions"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	resp, err := c.postQuotes(ctx, QuoteRequest{
		DestinationCountry: req.Address.CountryCode,
		Items:              req.Items,
	})
	if err != nil {
		return nil, err
	}

	quotes := make([]ShippingQuote, 0, len(resp.Quotes))
	for _, entry := range resp.Quotes {
		itemsCost, err := decimal.NewFromString(entry.CostSummary.Items.Amount)
		if err != nil {
			return nil, fmt.Errorf("failed to parse items cost %q: %w", entry.CostSummary.Items.Amount, err)
		}
		shippingCost, err := decimal.NewFromString(entry.CostSummary.Shipping.Amount)
		if err != nil {
			return nil, fmt.Errorf("failed to parse shipping cost %q: %w", entry.CostSummary.Shipping.Amount, err)
		}

		quote := ShippingQuote{
			Method:       entry.ShipmentMethod,
			ItemsCost:    itemsCost,
			ShippingCost: shippingCost,
			Currency:     entry.CostSummary.Shipping.Currency,
		}
		for _, shipment := range entry.Shipments {
			if quote.DeliveryMinDays == 0 || shipment.DeliveryMinDays < quote.DeliveryMinDays {
				quote.DeliveryMinDays = shipment.DeliveryMinDays
			}
			if shipment.DeliveryMaxDays > quote.DeliveryMaxDays {
				quote.DeliveryMaxDays = shipment.DeliveryMaxDays
			}
		}
		quotes = append(quotes, quote)
	}
	return quotes, nil
}

func (c *Client) postQuotes(ctx context.Context, req QuoteRequest) (*quoteResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode quote request: %w", err)
	}

	logger := logging.FromContext(ctx, c.logger)

	var lastErr error
	backoff := initialBackoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			logger.Warn("retrying prodigi quote request", "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		resp, err := c.doQuotes(ctx, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.Retryable() {
			return nil, err
		}
	}

	return nil, lastErr
}

func (c *Client) doQuotes(ctx context.Context, body []byte) (*quoteResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+quotesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build quote request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer httpResp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read quote response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, &APIError{
			Kind:       errorKind(httpResp.StatusCode),
			StatusCode: httpResp.StatusCode,
			Detail:     string(payload),
		}
	}

	var resp quoteResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}
	return &resp, nil
}

func errorKind(statusCode int) string {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return KindRateLimited
	case statusCode == http.StatusNotFound:
		return KindNotFound
	case statusCode >= 500:
		return KindServer
	default:
		return KindBadRequest
	}
}
