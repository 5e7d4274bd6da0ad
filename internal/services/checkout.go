// Package services wires pricing, persistence, payment, and email into the
// checkout flows exposed by the HTTP layer.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/artframerapp/artframer/internal/cache"
	"github.com/artframerapp/artframer/internal/db"
	"github.com/artframerapp/artframer/internal/logging"
	"github.com/artframerapp/artframer/internal/models"
	"github.com/artframerapp/artframer/internal/observability"
	"github.com/artframerapp/artframer/internal/pricing"
	"github.com/artframerapp/artframer/internal/shipping"
	"github.com/artframerapp/artframer/internal/stripe"
)

// webhookDedupTTL bounds how long a processed Stripe event ID is
// remembered. Stripe retries for up to three days.
const webhookDedupTTL = 72 * time.Hour

type cartPricer interface {
	CalculatePricing(ctx context.Context, items []models.CartItem, destinationCountry, shippingMethod, resultCurrency string) (*pricing.PricingResult, error)
}

type checkoutOrderStore interface {
	Create(ctx context.Context, order *db.Order) error
	GetByStripeSessionID(ctx context.Context, sessionID string) (*db.Order, error)
	UpdateStripeSession(ctx context.Context, id uuid.UUID, sessionID string) error
	MarkPaid(ctx context.Context, id uuid.UUID) error
	MarkPaymentFailed(ctx context.Context, id uuid.UUID, reason string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

type paymentClient interface {
	CreateCheckoutSession(ctx context.Context, params stripe.CheckoutSessionParams) (*stripeapi.CheckoutSession, error)
}

type CheckoutService struct {
	pricer            cartPricer
	orderStore        checkoutOrderStore
	payments          paymentClient
	emailSender       OrderEmailSender
	cache             cache.Provider
	storefrontBaseURL string
	defaultMethod     string
	defaultCurrency   string
	logger            *slog.Logger
}

func NewCheckoutService(pricer cartPricer, orderStore checkoutOrderStore, payments paymentClient, emailSender OrderEmailSender, cacheProvider cache.Provider, storefrontBaseURL, defaultMethod, defaultCurrency string, logger *slog.Logger) *CheckoutService {
	if emailSender == nil {
		emailSender = noopOrderEmailSender{}
	}

	return &CheckoutService{
		pricer:            pricer,
		orderStore:        orderStore,
		payments:          payments,
		emailSender:       emailSender,
		cache:             cacheProvider,
		storefrontBaseURL: storefrontBaseURL,
		defaultMethod:     defaultMethod,
		defaultCurrency:   defaultCurrency,
		logger:            logger,
	}
}

func (s *CheckoutService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

type CheckoutInput struct {
	Items          []models.CartItem
	Address        models.Address
	CustomerEmail  string
	CustomerName   string
	Currency       string
	ShippingMethod string
}

type CheckoutResult struct {
	OrderID     uuid.UUID
	CheckoutURL string
	Pricing     *pricing.PricingResult
}

// Checkout prices the cart, persists a pending order, and opens a hosted
// payment session for it.
func (s *CheckoutService) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.checkout.create",
		sentry.WithOpName("service.checkout"),
		sentry.WithDescription("Checkout"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	recordFailure := func(reason string) {
		meter.Count("checkout.failed", 1, sentry.WithAttributes(
			attribute.String("reason", reason),
		))
	}
	meter.Count("checkout.received", 1)

	if err := shipping.ValidateAddress(input.Address); err != nil {
		recordFailure("invalid_address")
		return nil, err
	}
	if input.CustomerEmail == "" {
		recordFailure("missing_email")
		return nil, &models.ValidationError{Fields: []models.FieldError{
			{Field: "customerEmail", Message: "customerEmail is required"},
		}}
	}

	method := input.ShippingMethod
	if method == "" {
		method = s.defaultMethod
	}
	currency := input.Currency
	if currency == "" {
		currency = s.defaultCurrency
	}

	result, err := s.pricer.CalculatePricing(ctx, input.Items, input.Address.CountryCode, method, currency)
	if err != nil {
		recordFailure("pricing_failed")
		return nil, fmt.Errorf("failed to price cart: %w", err)
	}

	order := buildOrder(input, result)
	if err := s.orderStore.Create(ctx, order); err != nil {
		recordFailure("order_create_failed")
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	session, err := s.payments.CreateCheckoutSession(ctx, stripe.CheckoutSessionParams{
		OrderID:        order.ID,
		Currency:       result.Currency,
		Lines:          checkoutLines(input.Items, result),
		TaxCents:       order.TaxCents,
		ShippingCents:  order.ShippingCents,
		ShippingMethod: method,
		CustomerEmail:  input.CustomerEmail,
		SuccessURL:     fmt.Sprintf("%s/checkout/success?order=%s", s.storefrontBaseURL, order.ID),
		CancelURL:      fmt.Sprintf("%s/checkout/cancelled?order=%s", s.storefrontBaseURL, order.ID),
	})
	if err != nil {
		recordFailure("payment_session_failed")
		if markErr := s.orderStore.MarkFailed(ctx, order.ID, "payment session creation failed"); markErr != nil {
			logger.Error("failed to mark order failed", "error", markErr, "order_id", order.ID)
		}
		return nil, fmt.Errorf("failed to create payment session: %w", err)
	}

	if err := s.orderStore.UpdateStripeSession(ctx, order.ID, session.ID); err != nil {
		recordFailure("order_update_failed")
		return nil, fmt.Errorf("failed to attach payment session to order: %w", err)
	}

	meter.Count("checkout.session_created", 1)
	logger.Info("checkout session created",
		"order_id", order.ID,
		"session_id", session.ID,
		"total", order.TotalCents,
		"currency", result.Currency,
		"estimated", result.Estimated)

	return &CheckoutResult{
		OrderID:     order.ID,
		CheckoutURL: session.URL,
		Pricing:     result,
	}, nil
}

func buildOrder(input CheckoutInput, result *pricing.PricingResult) *db.Order {
	address := input.Address
	order := &db.Order{
		CustomerEmail:      input.CustomerEmail,
		CustomerName:       input.CustomerName,
		DestinationCountry: input.Address.CountryCode,
		Currency:           result.Currency,
		SubtotalCents:      toCents(result.Subtotal),
		TaxCents:           toCents(result.Tax),
		ShippingCents:      toCents(result.Shipping),
		TotalCents:         toCents(result.Total),
		Estimated:          result.Estimated,
		ShippingAddress:    &address,
		Status:             db.StatusPendingPayment,
	}

	for i, item := range input.Items {
		price, ok := result.ItemPrices[i]
		if !ok {
			continue
		}
		order.Items = append(order.Items, db.OrderItem{
			CartItemID: item.ID,
			SKU:        item.SKU,
			Quantity:   item.Quantity,
			UnitCost:   price.UnitCost.StringFixed(2),
			Source:     string(price.Source),
		})
	}

	return order
}

func checkoutLines(items []models.CartItem, result *pricing.PricingResult) []stripe.CheckoutLine {
	lines := make([]stripe.CheckoutLine, 0, len(items))
	for i, item := range items {
		price, ok := result.ItemPrices[i]
		if !ok {
			continue
		}
		lines = append(lines, stripe.CheckoutLine{
			Name:            lineName(item),
			UnitAmountCents: toCents(price.UnitCost),
			Quantity:        int64(item.Quantity),
		})
	}
	return lines
}

func lineName(item models.CartItem) string {
	if item.Frame.ProductType != "" && item.Frame.Size != "" {
		return fmt.Sprintf("%s %s", item.Frame.ProductType, item.Frame.Size)
	}
	if item.SKU != "" {
		return item.SKU
	}
	return "Framed artwork"
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

type checkoutSessionPayload struct {
	stripeapi.CheckoutSession
}

// HandlePaymentCompleted processes a checkout.session.completed event:
// marks the order paid and sends the confirmation email. Redelivered
// events are deduplicated by event ID.
func (s *CheckoutService) HandlePaymentCompleted(ctx context.Context, eventID string, payload []byte) error {
	span := sentry.StartSpan(
		ctx,
		"service.checkout.payment_completed",
		sentry.WithOpName("service.checkout"),
		sentry.WithDescription("HandlePaymentCompleted"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	if s.alreadyProcessed(ctx, eventID) {
		logger.Info("skipping already processed webhook event", "event_id", eventID)
		return nil
	}

	var session checkoutSessionPayload
	if err := json.Unmarshal(payload, &session); err != nil {
		return fmt.Errorf("invalid event object: %w", err)
	}
	if session.ID == "" {
		return fmt.Errorf("missing session ID")
	}

	order, err := s.orderStore.GetByStripeSessionID(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("failed to get order: %w", err)
	}

	if markErr := s.orderStore.MarkPaid(ctx, order.ID); markErr != nil {
		if errors.Is(markErr, db.ErrInvalidStatusTransition) {
			logger.Info("ignoring checkout.session.completed due to state transition",
				"order_id", order.ID, "session_id", session.ID, "error", markErr)
			s.rememberEvent(ctx, eventID)
			return nil
		}
		return fmt.Errorf("failed to mark order as paid: %w", markErr)
	}

	meter.Count("checkout.paid", 1)
	logger.Info("order paid", "order_id", order.ID, "session_id", session.ID)

	if err := s.emailSender.SendOrderConfirmation(ctx, order); err != nil {
		// Payment already succeeded; a lost email must not fail the webhook.
		meter.Count("checkout.email_failed", 1)
		logger.Error("failed to send order confirmation email", "error", err, "order_id", order.ID)
	}

	s.rememberEvent(ctx, eventID)
	return nil
}

// HandlePaymentExpired marks the order behind an expired checkout session
// as payment_failed so the storefront can offer a retry.
func (s *CheckoutService) HandlePaymentExpired(ctx context.Context, eventID string, payload []byte) error {
	logger := s.loggerFromContext(ctx)

	if s.alreadyProcessed(ctx, eventID) {
		logger.Info("skipping already processed webhook event", "event_id", eventID)
		return nil
	}

	var session checkoutSessionPayload
	if err := json.Unmarshal(payload, &session); err != nil {
		return fmt.Errorf("invalid event object: %w", err)
	}
	if session.ID == "" {
		return fmt.Errorf("missing session ID")
	}

	order, err := s.orderStore.GetByStripeSessionID(ctx, session.ID)
	if err != nil {
		if errors.Is(err, db.ErrOrderNotFound) {
			logger.Warn("expired session has no order", "session_id", session.ID)
			s.rememberEvent(ctx, eventID)
			return nil
		}
		return fmt.Errorf("failed to get order: %w", err)
	}

	if markErr := s.orderStore.MarkPaymentFailed(ctx, order.ID, "checkout session expired"); markErr != nil {
		if errors.Is(markErr, db.ErrInvalidStatusTransition) {
			logger.Info("ignoring checkout.session.expired due to state transition",
				"order_id", order.ID, "session_id", session.ID, "error", markErr)
			s.rememberEvent(ctx, eventID)
			return nil
		}
		return fmt.Errorf("failed to mark payment failed: %w", markErr)
	}

	logger.Info("checkout session expired", "order_id", order.ID, "session_id", session.ID)
	s.rememberEvent(ctx, eventID)
	return nil
}

func (s *CheckoutService) alreadyProcessed(ctx context.Context, eventID string) bool {
	if s.cache == nil || eventID == "" {
		return false
	}
	value, err := s.cache.Get(ctx, cache.WebhookKey("stripe", eventID))
	return err == nil && value != ""
}

func (s *CheckoutService) rememberEvent(ctx context.Context, eventID string) {
	if s.cache == nil || eventID == "" {
		return
	}
	if err := s.cache.Set(ctx, cache.WebhookKey("stripe", eventID), "processed", webhookDedupTTL); err != nil {
		s.loggerFromContext(ctx).Warn("failed to record webhook event", "error", err, "event_id", eventID)
	}
}
