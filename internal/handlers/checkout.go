package handlers

import (
	"net/http"

	"github.com/artframerapp/artframer/internal/models"
	"github.com/artframerapp/artframer/internal/pricing"
	"github.com/artframerapp/artframer/internal/services"
)

type checkoutRequest struct {
	Items          []models.CartItem `json:"items"`
	Address        models.Address    `json:"address"`
	CustomerEmail  string            `json:"customerEmail"`
	CustomerName   string            `json:"customerName"`
	Currency       string            `json:"currency"`
	ShippingMethod string            `json:"shippingMethod"`
}

type checkoutResponse struct {
	OrderID     string                 `json:"orderId"`
	CheckoutURL string                 `json:"checkoutUrl"`
	Pricing     *pricing.PricingResult `json:"pricing"`
}

// Checkout prices the cart, records a pending order, and returns the
// hosted payment page URL.
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, &models.ValidationError{Fields: []models.FieldError{
			{Field: "body", Message: err.Error()},
		}})
		return
	}

	result, err := h.checkout.Checkout(ctx, services.CheckoutInput{
		Items:          req.Items,
		Address:        req.Address,
		CustomerEmail:  req.CustomerEmail,
		CustomerName:   req.CustomerName,
		Currency:       req.Currency,
		ShippingMethod: req.ShippingMethod,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, checkoutResponse{
		OrderID:     result.OrderID.String(),
		CheckoutURL: result.CheckoutURL,
		Pricing:     result.Pricing,
	})
}
