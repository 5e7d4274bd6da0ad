package pricing

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/artframerapp/artframer/internal/models"
	"github.com/artframerapp/artframer/internal/prodigi"
)

func usd(amount string) decimal.Decimal {
	return decimal.RequireFromString(amount)
}

func TestMatchQuotesUniqueSKUs(t *testing.T) {
	t.Parallel()

	items := []models.CartItem{
		{SKU: "global-can-8x20-x", Quantity: 1},
		{SKU: "global-pos-a2-x", Quantity: 2},
	}
	lines := []prodigi.QuoteLine{
		{SKU: "global-can-8x20-x", UnitCost: usd("45.00"), Currency: "USD"},
		{SKU: "global-pos-a2-x", UnitCost: usd("12.50"), Currency: "USD"},
	}

	result := MatchQuotes(items, lines)

	if result.Estimated {
		t.Error("Estimated = true, want false for a full exact match")
	}
	if len(result.Unmatched) != 0 {
		t.Errorf("Unmatched = %v, want none", result.Unmatched)
	}
	if len(result.ItemPrices) != 2 {
		t.Fatalf("matched %d items, want 2", len(result.ItemPrices))
	}
	if got := result.ItemPrices[0]; got.Source != PriceExact || !got.UnitCost.Equal(usd("45.00")) {
		t.Errorf("item 0 price = %+v", got)
	}
	if got := result.ItemPrices[1]; got.Source != PriceExact || !got.UnitCost.Equal(usd("12.50")) {
		t.Errorf("item 1 price = %+v", got)
	}
}

func TestMatchQuotesDuplicateSKUDistinctAttributes(t *testing.T) {
	t.Parallel()

	items := []models.CartItem{
		{SKU: "fra-box-ema-mount2-gla-a3-x", Quantity: 1, Frame: models.FrameConfig{MountColor: "Snow White"}},
		{SKU: "fra-box-ema-mount2-gla-a3-x", Quantity: 1, Frame: models.FrameConfig{MountColor: "Dark Grey"}},
	}
	// provider echoes attributes with inconsistent key casing
	lines := []prodigi.QuoteLine{
		{SKU: "fra-box-ema-mount2-gla-a3-x", Attributes: map[string]string{"mountcolor": "dark grey"}, UnitCost: usd("62.00"), Currency: "USD"},
		{SKU: "fra-box-ema-mount2-gla-a3-x", Attributes: map[string]string{"mountColor": "snow white"}, UnitCost: usd("58.00"), Currency: "USD"},
	}

	result := MatchQuotes(items, lines)

	if result.Estimated {
		t.Error("Estimated = true, want false")
	}
	if got := result.ItemPrices[0]; got.Source != PriceExact || !got.UnitCost.Equal(usd("58.00")) {
		t.Errorf("snow white item price = %+v, want exact 58.00", got)
	}
	if got := result.ItemPrices[1]; got.Source != PriceExact || !got.UnitCost.Equal(usd("62.00")) {
		t.Errorf("dark grey item price = %+v, want exact 62.00", got)
	}
}

func TestMatchQuotesDuplicateSKUConsumedInCartOrder(t *testing.T) {
	t.Parallel()

	items := []models.CartItem{
		{SKU: "global-can-8x20-x", Quantity: 1},
		{SKU: "global-can-8x20-x", Quantity: 1},
	}
	lines := []prodigi.QuoteLine{
		{SKU: "global-can-8x20-x", UnitCost: usd("45.00"), Currency: "USD"},
		{SKU: "global-can-8x20-x", UnitCost: usd("47.00"), Currency: "USD"},
	}

	result := MatchQuotes(items, lines)

	if !result.ItemPrices[0].UnitCost.Equal(usd("45.00")) {
		t.Errorf("first item got %s, want the first quote line 45.00", result.ItemPrices[0].UnitCost)
	}
	if !result.ItemPrices[1].UnitCost.Equal(usd("47.00")) {
		t.Errorf("second item got %s, want the second quote line 47.00", result.ItemPrices[1].UnitCost)
	}
}

func TestMatchQuotesSharedSKUSingleLineFallsBackToAverage(t *testing.T) {
	t.Parallel()

	items := []models.CartItem{
		{SKU: "fra-box-ema-mount2-gla-a3-x", Quantity: 1},
		{SKU: "fra-box-ema-mount2-gla-a3-x", Quantity: 1},
	}
	lines := []prodigi.QuoteLine{
		{SKU: "fra-box-ema-mount2-gla-a3-x", UnitCost: usd("60.00"), Currency: "USD"},
	}

	result := MatchQuotes(items, lines)

	if !result.Estimated {
		t.Error("Estimated = false, want true when a line is shared")
	}
	for i := range items {
		price, ok := result.ItemPrices[i]
		if !ok {
			t.Fatalf("item %d has no price", i)
		}
		if !price.UnitCost.Equal(usd("60.00")) {
			t.Errorf("item %d price = %s, want 60.00", i, price.UnitCost)
		}
	}
	if result.ItemPrices[0].Source != PriceExact {
		t.Errorf("first item source = %s, want exact", result.ItemPrices[0].Source)
	}
	if result.ItemPrices[1].Source != PriceEstimated {
		t.Errorf("second item source = %s, want estimated", result.ItemPrices[1].Source)
	}
}

func TestMatchQuotesAttributeMismatchAveragesSKULines(t *testing.T) {
	t.Parallel()

	items := []models.CartItem{
		{SKU: "global-can-8x20-x", Quantity: 1, Frame: models.FrameConfig{Wrap: "mirror"}},
	}
	lines := []prodigi.QuoteLine{
		{SKU: "global-can-8x20-x", Attributes: map[string]string{"wrap": "black"}, UnitCost: usd("40.00"), Currency: "USD"},
		{SKU: "global-can-8x20-x", Attributes: map[string]string{"wrap": "white"}, UnitCost: usd("50.00"), Currency: "USD"},
	}

	result := MatchQuotes(items, lines)

	price := result.ItemPrices[0]
	if price.Source != PriceEstimated {
		t.Errorf("source = %s, want estimated", price.Source)
	}
	if !price.UnitCost.Equal(usd("45.00")) {
		t.Errorf("price = %s, want unweighted average 45.00", price.UnitCost)
	}
	if !result.Estimated {
		t.Error("Estimated = false, want true")
	}
}

func TestMatchQuotesUnknownSKUIsReportedUnmatched(t *testing.T) {
	t.Parallel()

	items := []models.CartItem{
		{SKU: "global-can-8x20-x", Quantity: 1},
		{SKU: "met-pan-12x18-x", Quantity: 1},
	}
	lines := []prodigi.QuoteLine{
		{SKU: "global-can-8x20-x", UnitCost: usd("45.00"), Currency: "USD"},
	}

	result := MatchQuotes(items, lines)

	if !reflect.DeepEqual(result.Unmatched, []int{1}) {
		t.Errorf("Unmatched = %v, want [1]", result.Unmatched)
	}
	if _, ok := result.ItemPrices[1]; ok {
		t.Error("unmatched item must not carry a price")
	}
	if !result.Estimated {
		t.Error("Estimated = false, want true when an item is unmatched")
	}
}

func TestMatchQuotesDeterministic(t *testing.T) {
	t.Parallel()

	items := []models.CartItem{
		{SKU: "global-can-8x20-x", Quantity: 1, Frame: models.FrameConfig{Wrap: "Black"}},
		{SKU: "global-can-8x20-x", Quantity: 2, Frame: models.FrameConfig{Wrap: "White"}},
		{SKU: "global-pos-a2-x", Quantity: 1},
		{SKU: "acr-pan-11x14-x", Quantity: 1},
	}
	lines := []prodigi.QuoteLine{
		{SKU: "global-can-8x20-x", Attributes: map[string]string{"Wrap": "black"}, UnitCost: usd("45.00"), Currency: "USD"},
		{SKU: "global-can-8x20-x", Attributes: map[string]string{"wrap": "White"}, UnitCost: usd("46.00"), Currency: "USD"},
		{SKU: "global-pos-a2-x", UnitCost: usd("12.50"), Currency: "USD"},
	}

	first := MatchQuotes(items, lines)
	for range 50 {
		again := MatchQuotes(items, lines)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("MatchQuotes not deterministic: %+v != %+v", first, again)
		}
	}
}
