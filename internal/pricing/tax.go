package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TaxCalculator computes destination-dependent tax on a taxable amount.
// Real jurisdiction logic lives behind this interface; the static table is
// the default collaborator.
type TaxCalculator interface {
	TaxFor(destinationCountry string, taxable decimal.Decimal) decimal.Decimal
}

// StaticTaxCalculator applies a flat per-country rate. Countries not in the
// table are untaxed here (US sales tax is collected by Stripe at checkout).
type StaticTaxCalculator struct {
	rates map[string]decimal.Decimal
}

func NewStaticTaxCalculator() *StaticTaxCalculator {
	return &StaticTaxCalculator{
		rates: map[string]decimal.Decimal{
			"GB": decimal.NewFromFloat(0.20),
			"DE": decimal.NewFromFloat(0.19),
			"FR": decimal.NewFromFloat(0.20),
			"AU": decimal.NewFromFloat(0.10),
			"NZ": decimal.NewFromFloat(0.15),
			"CA": decimal.NewFromFloat(0.05),
		},
	}
}

func (c *StaticTaxCalculator) TaxFor(destinationCountry string, taxable decimal.Decimal) decimal.Decimal {
	rate, ok := c.rates[strings.ToUpper(strings.TrimSpace(destinationCountry))]
	if !ok {
		return decimal.Zero
	}
	return taxable.Mul(rate).Round(2)
}
