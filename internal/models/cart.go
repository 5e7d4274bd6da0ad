// Package models defines the request-scoped value objects shared across the
// pricing and shipping pipeline.
package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FrameConfig describes one custom framed product as the customer configured
// it. Empty fields mean the attribute does not apply to the product type.
type FrameConfig struct {
	ProductType string `json:"productType"`
	Size        string `json:"size"`
	Color       string `json:"color"`
	Style       string `json:"style"`
	Material    string `json:"material"`
	Wrap        string `json:"wrap"`
	Glaze       string `json:"glaze"`
	Mount       string `json:"mount"`
	MountColor  string `json:"mountColor"`
	PaperType   string `json:"paperType"`
	Finish      string `json:"finish"`
	Edge        string `json:"edge"`
	CanvasType  string `json:"canvasType"`
}

// Attributes returns the non-empty semantic attributes as the raw map sent
// to the fulfillment provider. Keys use the provider's documented casing;
// callers normalize before building lookup keys.
func (c FrameConfig) Attributes() map[string]string {
	attrs := make(map[string]string)
	set := func(key, value string) {
		if strings.TrimSpace(value) != "" {
			attrs[key] = value
		}
	}
	set("color", c.Color)
	set("style", c.Style)
	set("material", c.Material)
	set("wrap", c.Wrap)
	set("glaze", c.Glaze)
	set("mount", c.Mount)
	set("mountColor", c.MountColor)
	set("paperType", c.PaperType)
	set("finish", c.Finish)
	set("edge", c.Edge)
	return attrs
}

// CartItem is one storefront cart line. SKU may be empty until the resolver
// derives it from the frame configuration.
type CartItem struct {
	ID            string          `json:"id"`
	ProductID     string          `json:"productId"`
	SKU           string          `json:"sku"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	Currency      string          `json:"currency"`
	Frame         FrameConfig     `json:"frameConfig"`
}
