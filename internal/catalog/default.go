package catalog

import (
	_ "embed"
	"fmt"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// DefaultCatalog parses and validates the embedded frame catalog. Deploys
// that track new provider variants override it via CATALOG_PATH.
func DefaultCatalog() (*FrameCatalog, error) {
	cat, err := NewParser().Parse(defaultCatalogYAML)
	if err != nil {
		return nil, fmt.Errorf("embedded catalog is invalid: %w", err)
	}
	if err := NewValidator().Validate(cat); err != nil {
		return nil, fmt.Errorf("embedded catalog is invalid: %w", err)
	}
	return cat, nil
}

// Lookup returns the catalog entry for a SKU.
func (c *FrameCatalog) Lookup(sku string) (ProductEntry, bool) {
	if c == nil {
		return ProductEntry{}, false
	}
	for _, entry := range c.Products {
		if entry.SKU == sku {
			return entry, true
		}
	}
	return ProductEntry{}, false
}
