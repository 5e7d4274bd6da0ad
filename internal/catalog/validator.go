package catalog

import (
	"fmt"
	"strings"
)

var knownProductTypes = map[string]bool{
	ProductCanvas:      true,
	ProductFramedPrint: true,
	ProductAcrylic:     true,
	ProductMetal:       true,
	ProductPoster:      true,
}

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks the catalog for the defects that break SKU resolution:
// duplicate SKUs, unknown product families and missing sizes.
func (v *Validator) Validate(cat *FrameCatalog) error {
	if cat == nil {
		return fmt.Errorf("catalog is required")
	}
	if len(cat.Products) == 0 {
		return fmt.Errorf("catalog has no products")
	}

	seen := make(map[string]bool, len(cat.Products))
	for i, product := range cat.Products {
		sku := strings.TrimSpace(product.SKU)
		if sku == "" {
			return fmt.Errorf("product %d: sku is required", i)
		}
		if seen[sku] {
			return fmt.Errorf("duplicate sku: %s", sku)
		}
		seen[sku] = true

		if !knownProductTypes[product.ProductType] {
			return fmt.Errorf("product %s: unknown product type %q", sku, product.ProductType)
		}
		if strings.TrimSpace(product.Size) == "" {
			return fmt.Errorf("product %s: size is required", sku)
		}
		if product.ProductType == ProductCanvas && product.Edge != EdgeSlim && product.Edge != EdgeStandard {
			return fmt.Errorf("product %s: canvas edge must be %s or %s", sku, EdgeSlim, EdgeStandard)
		}
	}

	return nil
}
