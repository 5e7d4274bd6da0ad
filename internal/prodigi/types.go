// Package prodigi wraps the print fulfillment provider's quoting API.
package prodigi

import (
	"github.com/shopspring/decimal"

	"github.com/artframerapp/artframer/internal/models"
)

// QuoteItem is one distinct (sku, attributes, quantity) tuple in an
// outbound quote request.
type QuoteItem struct {
	SKU        string            `json:"sku"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Quantity   int               `json:"copies"`
}

// QuoteRequest groups the distinct tuples for one cart plus destination.
// Requests are built fresh per pricing calculation and never cached: quotes
// are destination- and cart-composition-specific.
type QuoteRequest struct {
	ShippingMethod     string      `json:"shippingMethod"`
	DestinationCountry string      `json:"destinationCountryCode"`
	Items              []QuoteItem `json:"items"`
}

// QuoteLine is one priced entry the provider returned. Attribute keys come
// back inconsistently cased; consumers normalize before matching.
type QuoteLine struct {
	SKU        string
	Attributes map[string]string
	UnitCost   decimal.Decimal
	Currency   string
}

// Quote is the reconciled provider response for one quote request.
type Quote struct {
	Method       string
	Lines        []QuoteLine
	ShippingCost decimal.Decimal
	Currency     string
}

// ShippingQuote is one shipping method the provider offered for a cart.
type ShippingQuote struct {
	Method          string
	ItemsCost       decimal.Decimal
	ShippingCost    decimal.Decimal
	Currency        string
	DeliveryMinDays int
	DeliveryMaxDays int
}

// ShippingRequest asks for shipping quotes for a full cart + destination.
type ShippingRequest struct {
	Items   []QuoteItem
	Address models.Address
}

type money struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type quoteResponseItem struct {
	SKU        string            `json:"sku"`
	Copies     int               `json:"copies"`
	Attributes map[string]string `json:"attributes"`
	UnitCost   money             `json:"unitCost"`
}

type quoteResponseShipment struct {
	Method          string `json:"method"`
	Cost            money  `json:"cost"`
	DeliveryMinDays int    `json:"deliveryMinDays"`
	DeliveryMaxDays int    `json:"deliveryMaxDays"`
}

type quoteResponseEntry struct {
	ShipmentMethod string                  `json:"shipmentMethod"`
	CostSummary    struct {
		Items    money `json:"items"`
		Shipping money `json:"shipping"`
	} `json:"costSummary"`
	Shipments []quoteResponseShipment `json:"shipments"`
	Items     []quoteResponseItem     `json:"items"`
}

type quoteResponse struct {
	Outcome string               `json:"outcome"`
	Quotes  []quoteResponseEntry `json:"quotes"`
}
