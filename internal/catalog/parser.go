package catalog

// Package catalog provides frame catalog parsing, attribute normalization
// and SKU resolution.

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Product type families supported by the fulfillment provider.
const (
	ProductCanvas      = "canvas"
	ProductFramedPrint = "framed-print"
	ProductAcrylic     = "acrylic"
	ProductMetal       = "metal"
	ProductPoster      = "poster"
)

// Canvas edge depths. 19mm is the "slim" family, 38mm the "standard" one;
// the two map to disjoint SKU ranges.
const (
	EdgeSlim     = "19mm"
	EdgeStandard = "38mm"
)

type FrameCatalog struct {
	Products []ProductEntry `yaml:"products"`
}

// ProductEntry is one buyable variant in the provider catalog.
type ProductEntry struct {
	SKU         string `yaml:"sku"`
	ProductType string `yaml:"product_type"`
	Size        string `yaml:"size"`
	Edge        string `yaml:"edge"`
	CanvasType  string `yaml:"canvas_type"`
	WeightGrams int    `yaml:"weight_grams"`
	Active      bool   `yaml:"active"`
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(content []byte) (*FrameCatalog, error) {
	var cat FrameCatalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	return &cat, nil
}

func (p *Parser) ParseFromString(content string) (*FrameCatalog, error) {
	return p.Parse([]byte(content))
}
