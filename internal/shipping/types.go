// Package shipping ranks provider shipping options for a cart and falls
// back to heuristic estimates when the provider offers none.
package shipping

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/artframerapp/artframer/internal/prodigi"
)

// Option sources. Fallback options carry a storefront disclaimer.
const (
	SourceProvider = "provider"
	SourceFallback = "intelligent_fallback"
)

type Cost struct {
	Items    decimal.Decimal `json:"items"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
}

type Delivery struct {
	MinDays   int    `json:"min"`
	MaxDays   int    `json:"max"`
	Formatted string `json:"formatted"`
}

// Option is one shipping method offered for a cart + destination.
type Option struct {
	Method   string   `json:"method"`
	Cost     Cost     `json:"cost"`
	Delivery Delivery `json:"delivery"`
	Source   string   `json:"source"`
}

// ShippingError means the provider shipping call failed outright. The
// fallback estimator only covers the empty-quote case, not provider errors.
type ShippingError struct {
	Detail string
	Err    error
}

func (e *ShippingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("shipping failed: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("shipping failed: %s", e.Detail)
}

func (e *ShippingError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the underlying provider failure is transient.
func (e *ShippingError) Retryable() bool {
	var apiErr *prodigi.APIError
	if errors.As(e.Err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}

func formatDelivery(minDays, maxDays int) string {
	if minDays == maxDays {
		return fmt.Sprintf("%d business days", minDays)
	}
	return fmt.Sprintf("%d-%d business days", minDays, maxDays)
}
