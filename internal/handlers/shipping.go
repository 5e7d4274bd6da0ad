package handlers

import (
	"net/http"

	"github.com/artframerapp/artframer/internal/models"
	"github.com/artframerapp/artframer/internal/shipping"
)

type shippingRequest struct {
	Items   []models.CartItem `json:"items"`
	Address models.Address    `json:"address"`
}

type shippingResponse struct {
	Options     []shipping.Option `json:"options"`
	Recommended *shipping.Option  `json:"recommended,omitempty"`
}

// Shipping returns the ranked shipping options for a cart and destination.
func (h *Handlers) Shipping(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req shippingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, &models.ValidationError{Fields: []models.FieldError{
			{Field: "body", Message: err.Error()},
		}})
		return
	}

	options, err := h.shipper.CalculateShipping(ctx, req.Items, req.Address)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, shippingResponse{
		Options:     options,
		Recommended: h.shipper.RecommendedMethod(options),
	})
}
