package handlers

import (
	"errors"
	"net/http"

	"github.com/artframerapp/artframer/internal/catalog"
	"github.com/artframerapp/artframer/internal/models"
	"github.com/artframerapp/artframer/internal/pricing"
	"github.com/artframerapp/artframer/internal/shipping"
)

// apiError is the storefront-facing error shape. Message stays
// user-presentable; provider detail goes to logs, not to the client.
type apiError struct {
	Title     string              `json:"title"`
	Message   string              `json:"message"`
	Action    string              `json:"action"`
	Retryable bool                `json:"retryable"`
	Fields    []models.FieldError `json:"fields,omitempty"`
}

// translateError maps domain errors to an HTTP status and a storefront
// error payload.
func translateError(err error) (int, apiError) {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, apiError{
			Title:     "Invalid request",
			Message:   "Some fields are missing or malformed.",
			Action:    "Correct the highlighted fields and try again.",
			Retryable: false,
			Fields:    validationErr.Fields,
		}
	}

	if errors.Is(err, catalog.ErrSKUNotFound) {
		return http.StatusUnprocessableEntity, apiError{
			Title:     "Frame configuration unavailable",
			Message:   "We couldn't find a product matching this frame configuration.",
			Action:    "Change the size, edge, or material and try again.",
			Retryable: false,
		}
	}

	var pricingErr *pricing.PricingError
	if errors.As(err, &pricingErr) {
		if pricingErr.Retryable() {
			return http.StatusServiceUnavailable, apiError{
				Title:     "Pricing temporarily unavailable",
				Message:   "Our pricing provider is busy right now.",
				Action:    "Wait a moment and try again.",
				Retryable: true,
			}
		}
		return http.StatusBadGateway, apiError{
			Title:     "Pricing unavailable",
			Message:   "We couldn't price this cart.",
			Action:    "Review the cart and try again.",
			Retryable: false,
		}
	}

	var shippingErr *shipping.ShippingError
	if errors.As(err, &shippingErr) {
		if shippingErr.Retryable() {
			return http.StatusServiceUnavailable, apiError{
				Title:     "Shipping temporarily unavailable",
				Message:   "Our shipping provider is busy right now.",
				Action:    "Wait a moment and try again.",
				Retryable: true,
			}
		}
		return http.StatusBadGateway, apiError{
			Title:     "Shipping unavailable",
			Message:   "We couldn't calculate shipping for this destination.",
			Action:    "Check the delivery address and try again.",
			Retryable: false,
		}
	}

	return http.StatusInternalServerError, apiError{
		Title:     "Something went wrong",
		Message:   "An unexpected error occurred.",
		Action:    "Try again; contact support if it keeps happening.",
		Retryable: true,
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, payload := translateError(err)
	logger := h.loggerFromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err, "status", status)
	} else {
		logger.Info("request rejected", "error", err, "status", status)
	}
	h.writeJSON(w, r, status, payload)
}
