package models

// Address is the shipping destination collected at checkout. Validation
// tags drive the field-level error list returned before any provider call.
type Address struct {
	Name        string `json:"name" validate:"required"`
	Line1       string `json:"line1" validate:"required"`
	Line2       string `json:"line2"`
	City        string `json:"city" validate:"required"`
	State       string `json:"state"`
	PostalCode  string `json:"postalCode" validate:"required"`
	CountryCode string `json:"countryCode" validate:"required,iso3166_1_alpha2"`
}
