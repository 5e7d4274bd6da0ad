package handlers

import (
	"net/http"

	"github.com/artframerapp/artframer/internal/models"
)

type pricingRequest struct {
	Items              []models.CartItem `json:"items"`
	DestinationCountry string            `json:"destinationCountry"`
	ShippingMethod     string            `json:"shippingMethod"`
	Currency           string            `json:"currency"`
}

// Pricing prices a cart against live provider quotes.
func (h *Handlers) Pricing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req pricingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, &models.ValidationError{Fields: []models.FieldError{
			{Field: "body", Message: err.Error()},
		}})
		return
	}

	if req.DestinationCountry == "" {
		h.writeError(w, r, &models.ValidationError{Fields: []models.FieldError{
			{Field: "destinationCountry", Message: "destinationCountry is required"},
		}})
		return
	}

	method := req.ShippingMethod
	if method == "" {
		method = h.config.DefaultShippingMethod
	}
	currency := req.Currency
	if currency == "" {
		currency = h.config.DefaultCurrency
	}

	result, err := h.pricer.CalculatePricing(ctx, req.Items, req.DestinationCountry, method, currency)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, result)
}
