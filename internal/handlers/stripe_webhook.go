package handlers

import (
	"net/http"

	stripewebhook "github.com/artframerapp/artframer/internal/stripe"
)

// StripeWebhook verifies and dispatches Stripe payment events. Event-level
// idempotency lives in the checkout service, so redeliveries are safe.
func (h *Handlers) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)

	event, err := stripewebhook.ReadWebhookEvent(r, h.config.StripeWebhookSecret)
	if err != nil {
		logger.Error("failed to read Stripe webhook payload", "error", err)
		http.Error(w, "Invalid webhook", http.StatusBadRequest)
		return
	}

	if event == nil || event.ID == "" {
		logger.Error("missing Stripe event ID")
		http.Error(w, "Missing event ID", http.StatusBadRequest)
		return
	}

	var processErr error
	switch event.Type {
	case "checkout.session.completed":
		processErr = h.checkout.HandlePaymentCompleted(ctx, event.ID, event.Data.Raw)
	case "checkout.session.expired":
		processErr = h.checkout.HandlePaymentExpired(ctx, event.ID, event.Data.Raw)
	default:
		logger.Debug("ignoring Stripe event", "type", event.Type, "event_id", event.ID)
	}

	if processErr != nil {
		logger.Error("failed to process Stripe webhook", "error", processErr, "type", event.Type)
		http.Error(w, "Processing failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
