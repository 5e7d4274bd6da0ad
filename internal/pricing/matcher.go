package pricing

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/artframerapp/artframer/internal/catalog"
	"github.com/artframerapp/artframer/internal/models"
	"github.com/artframerapp/artframer/internal/prodigi"
)

// MatchResult maps cart item indexes to reconciled unit costs. Unmatched
// holds the indexes of items no quote line covered; those items contribute
// nothing to the subtotal and must be surfaced to the caller.
type MatchResult struct {
	ItemPrices map[int]ItemPrice
	Unmatched  []int
	Estimated  bool
}

// MatchQuotes reconciles provider quote lines with cart items.
//
// Each item builds a (sku, sorted normalized attributes) key and claims the
// first unconsumed quote line with the same key, walking items in cart
// order so duplicate SKUs resolve deterministically. An item whose key has
// no exact line but whose SKU appears in the quote falls back to the
// unweighted average unit cost across that SKU's lines and is tagged
// estimated. Items whose SKU appears nowhere are reported unmatched, never
// silently zero-priced.
func MatchQuotes(items []models.CartItem, lines []prodigi.QuoteLine) MatchResult {
	result := MatchResult{ItemPrices: make(map[int]ItemPrice, len(items))}

	exact := make(map[string][]int)
	bySKU := make(map[string][]int)
	for i, line := range lines {
		key := matchKey(line.SKU, line.Attributes)
		exact[key] = append(exact[key], i)
		sku := normalizeSKU(line.SKU)
		bySKU[sku] = append(bySKU[sku], i)
	}

	consumed := make([]bool, len(lines))
	for i, item := range items {
		key := matchKey(item.SKU, item.Frame.Attributes())
		if lineIdx, ok := claimLine(exact[key], consumed); ok {
			consumed[lineIdx] = true
			result.ItemPrices[i] = ItemPrice{
				UnitCost: lines[lineIdx].UnitCost,
				Source:   PriceExact,
			}
			continue
		}

		skuLines := bySKU[normalizeSKU(item.SKU)]
		if len(skuLines) > 0 {
			result.ItemPrices[i] = ItemPrice{
				UnitCost: averageUnitCost(lines, skuLines),
				Source:   PriceEstimated,
			}
			result.Estimated = true
			continue
		}

		result.Unmatched = append(result.Unmatched, i)
		result.Estimated = true
	}

	return result
}

// claimLine returns the first line index not yet consumed by an earlier
// cart item.
func claimLine(lineIdxs []int, consumed []bool) (int, bool) {
	for _, idx := range lineIdxs {
		if !consumed[idx] {
			return idx, true
		}
	}
	return 0, false
}

func averageUnitCost(lines []prodigi.QuoteLine, idxs []int) decimal.Decimal {
	sum := decimal.Zero
	for _, idx := range idxs {
		sum = sum.Add(lines[idx].UnitCost)
	}
	return sum.Div(decimal.NewFromInt(int64(len(idxs))))
}

// matchKey builds the deterministic lookup key for a SKU + attribute set.
// Attributes are normalized first so the provider's casing inconsistencies
// (mountColor vs mountcolor) cannot split a match.
func matchKey(sku string, attributes map[string]string) string {
	normalized := catalog.NormalizeAttributes(attributes)

	keys := make([]string, 0, len(normalized))
	for key := range normalized {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(normalizeSKU(sku))
	for _, key := range keys {
		b.WriteByte('|')
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(normalized[key])
	}
	return b.String()
}

func normalizeSKU(sku string) string {
	return strings.ToLower(strings.TrimSpace(sku))
}
