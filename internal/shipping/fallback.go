package shipping

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/artframerapp/artframer/internal/catalog"
	"github.com/artframerapp/artframer/internal/models"
)

// Heuristic shipping estimate used when the provider returns zero quotes.
// Costs come from item weights in the frame catalog; the result is tagged
// SourceFallback so the storefront renders a disclaimer.

const (
	fallbackBaseCost     = 4.95
	fallbackCostPerKilo  = 6.00
	intlCostMultiplier   = 1.8
	defaultItemGrams     = 1000
	domesticDeliveryMin  = 5
	domesticDeliveryMax  = 10
	intlDeliveryMin      = 10
	intlDeliveryMax      = 20
	domesticCountryCode  = "US"
	fallbackMethodBudget = "Budget"
)

type fallbackEstimator struct {
	catalog *catalog.FrameCatalog
}

func (e *fallbackEstimator) estimate(items []models.CartItem, address models.Address) Option {
	grams := 0
	itemsCost := decimal.Zero
	for _, item := range items {
		grams += e.itemGrams(item) * item.Quantity
		itemsCost = itemsCost.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	kilos := decimal.NewFromInt(int64(grams)).Div(decimal.NewFromInt(1000))
	cost := decimal.NewFromFloat(fallbackBaseCost).Add(kilos.Mul(decimal.NewFromFloat(fallbackCostPerKilo)))

	minDays, maxDays := domesticDeliveryMin, domesticDeliveryMax
	if !strings.EqualFold(address.CountryCode, domesticCountryCode) {
		cost = cost.Mul(decimal.NewFromFloat(intlCostMultiplier))
		minDays, maxDays = intlDeliveryMin, intlDeliveryMax
	}
	cost = cost.Round(2)

	return Option{
		Method: fallbackMethodBudget,
		Cost: Cost{
			Items:    itemsCost.Round(2),
			Shipping: cost,
			Total:    itemsCost.Add(cost).Round(2),
			Currency: "USD",
		},
		Delivery: Delivery{
			MinDays:   minDays,
			MaxDays:   maxDays,
			Formatted: formatDelivery(minDays, maxDays),
		},
		Source: SourceFallback,
	}
}

func (e *fallbackEstimator) itemGrams(item models.CartItem) int {
	if e.catalog != nil {
		if entry, ok := e.catalog.Lookup(item.SKU); ok && entry.WeightGrams > 0 {
			return entry.WeightGrams
		}
	}
	return defaultItemGrams
}
