// Package currency converts amounts between currencies using cached
// exchange rates.
package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/artframerapp/artframer/internal/cache"
)

// Converter converts an amount from one currency to another.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

const (
	ratesTTL         = time.Hour
	maxResponseBytes = 1 << 20
)

// APIConverter fetches rate tables from an exchange-rate REST API and keeps
// them in the cache provider for an hour.
type APIConverter struct {
	baseURL    string
	httpClient *http.Client
	cache      cache.Provider
	logger     *slog.Logger
}

func NewAPIConverter(baseURL string, httpClient *http.Client, cacheProvider cache.Provider, logger *slog.Logger) *APIConverter {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &APIConverter{
		baseURL:    baseURL,
		httpClient: httpClient,
		cache:      cacheProvider,
		logger:     logger,
	}
}

type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

func (c *APIConverter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == "" || to == "" {
		return decimal.Zero, fmt.Errorf("currency codes are required")
	}
	if from == to {
		return amount, nil
	}

	rates, err := c.rates(ctx, from)
	if err != nil {
		return decimal.Zero, err
	}

	rate, ok := rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("no exchange rate from %s to %s", from, to)
	}

	return amount.Mul(decimal.NewFromFloat(rate)), nil
}

func (c *APIConverter) rates(ctx context.Context, base string) (map[string]float64, error) {
	key := cache.RatesKey(base)
	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, key); err == nil {
			var rates map[string]float64
			if err := json.Unmarshal([]byte(cached), &rates); err == nil {
				return rates, nil
			}
			c.logger.Warn("discarding corrupt cached rates", "base", base)
		}
	}

	rates, err := c.fetchRates(ctx, base)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		encoded, err := json.Marshal(rates)
		if err == nil {
			if err := c.cache.Set(ctx, key, string(encoded), ratesTTL); err != nil {
				c.logger.Warn("failed to cache exchange rates", "base", base, "error", err)
			}
		}
	}
	return rates, nil
}

func (c *APIConverter) fetchRates(ctx context.Context, base string) (map[string]float64, error) {
	url := fmt.Sprintf("%s/latest?base=%s", c.baseURL, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build rates request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rates request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read rates response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates request failed with status %d", resp.StatusCode)
	}

	var decoded ratesResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode rates response: %w", err)
	}
	if len(decoded.Rates) == 0 {
		return nil, fmt.Errorf("rates response for %s is empty", base)
	}
	return decoded.Rates, nil
}
