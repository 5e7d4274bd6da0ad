// Package pricing reconciles provider quotes against cart items and
// produces the checkout price breakdown.
package pricing

import "github.com/shopspring/decimal"

// PriceSource tags how an item price was established. Consumers must
// distinguish the two: estimated prices carry a storefront disclaimer.
type PriceSource string

const (
	PriceExact     PriceSource = "exact"
	PriceEstimated PriceSource = "estimated"
)

// ItemPrice is the reconciled unit cost for one cart item.
type ItemPrice struct {
	UnitCost decimal.Decimal `json:"unitCost"`
	Source   PriceSource     `json:"source"`
}

// PricingResult is the breakdown handed to the checkout UI. Amounts are in
// Currency, rounded to two decimal places. Invariants: the matched item
// prices times quantities sum to Subtotal within a cent, and
// Total = Subtotal + Tax + Shipping.
type PricingResult struct {
	Subtotal   decimal.Decimal   `json:"subtotal"`
	Tax        decimal.Decimal   `json:"tax"`
	Shipping   decimal.Decimal   `json:"shipping"`
	Total      decimal.Decimal   `json:"total"`
	Currency   string            `json:"currency"`
	ItemPrices map[int]ItemPrice `json:"itemPrices"`
	Estimated  bool              `json:"isEstimated"`
	Unmatched  []int             `json:"unmatchedItems,omitempty"`
}
