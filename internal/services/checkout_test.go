package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/artframerapp/artframer/internal/cache"
	"github.com/artframerapp/artframer/internal/db"
	"github.com/artframerapp/artframer/internal/models"
	"github.com/artframerapp/artframer/internal/pricing"
	"github.com/artframerapp/artframer/internal/stripe"
)

type fakePricer struct {
	result *pricing.PricingResult
	err    error
	calls  int
}

func (f *fakePricer) CalculatePricing(_ context.Context, _ []models.CartItem, _, _, _ string) (*pricing.PricingResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeOrderStore struct {
	orders    map[uuid.UUID]*db.Order
	bySession map[string]uuid.UUID
	createErr error
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		orders:    make(map[uuid.UUID]*db.Order),
		bySession: make(map[string]uuid.UUID),
	}
}

func (f *fakeOrderStore) Create(_ context.Context, order *db.Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	order.ID = uuid.New()
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrderStore) GetByStripeSessionID(_ context.Context, sessionID string) (*db.Order, error) {
	id, ok := f.bySession[sessionID]
	if !ok {
		return nil, db.ErrOrderNotFound
	}
	return f.orders[id], nil
}

func (f *fakeOrderStore) UpdateStripeSession(_ context.Context, id uuid.UUID, sessionID string) error {
	order, ok := f.orders[id]
	if !ok {
		return db.ErrOrderNotFound
	}
	order.StripeCheckoutSessionID = sessionID
	f.bySession[sessionID] = id
	return nil
}

func (f *fakeOrderStore) MarkPaid(_ context.Context, id uuid.UUID) error {
	return f.setStatus(id, db.StatusPaid, "")
}

func (f *fakeOrderStore) MarkPaymentFailed(_ context.Context, id uuid.UUID, reason string) error {
	return f.setStatus(id, db.StatusPaymentFailed, reason)
}

func (f *fakeOrderStore) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	return f.setStatus(id, db.StatusFailed, reason)
}

func (f *fakeOrderStore) setStatus(id uuid.UUID, status db.OrderStatus, reason string) error {
	order, ok := f.orders[id]
	if !ok {
		return db.ErrOrderNotFound
	}
	if order.Status != db.StatusPendingPayment {
		return fmt.Errorf("order is %s: %w", order.Status, db.ErrInvalidStatusTransition)
	}
	order.Status = status
	order.FailureReason = reason
	return nil
}

type fakePayments struct {
	session *stripeapi.CheckoutSession
	err     error
	params  []stripe.CheckoutSessionParams
}

func (f *fakePayments) CreateCheckoutSession(_ context.Context, params stripe.CheckoutSessionParams) (*stripeapi.CheckoutSession, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

type fakeEmailSender struct {
	sent []uuid.UUID
	err  error
}

func (f *fakeEmailSender) SendOrderConfirmation(_ context.Context, order *db.Order) error {
	f.sent = append(f.sent, order.ID)
	return f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pricedResult() *pricing.PricingResult {
	return &pricing.PricingResult{
		Subtotal: decimal.RequireFromString("90.00"),
		Tax:      decimal.RequireFromString("0.00"),
		Shipping: decimal.RequireFromString("9.95"),
		Total:    decimal.RequireFromString("99.95"),
		Currency: "USD",
		ItemPrices: map[int]pricing.ItemPrice{
			0: {UnitCost: decimal.RequireFromString("45.00"), Source: pricing.PriceExact},
		},
	}
}

func checkoutInput() CheckoutInput {
	return CheckoutInput{
		Items: []models.CartItem{
			{ID: "item-1", SKU: "global-can-8x20-x", Quantity: 2, Currency: "USD"},
		},
		Address: models.Address{
			Name:        "Ada Lovelace",
			Line1:       "1 Analytical Way",
			City:        "Austin",
			State:       "TX",
			PostalCode:  "78701",
			CountryCode: "US",
		},
		CustomerEmail: "ada@example.com",
		CustomerName:  "Ada Lovelace",
	}
}

func newTestService(t *testing.T, pricer *fakePricer, store *fakeOrderStore, payments *fakePayments, sender OrderEmailSender) *CheckoutService {
	t.Helper()

	cacheProvider, err := cache.NewMemoryProvider()
	if err != nil {
		t.Fatalf("NewMemoryProvider() error = %v", err)
	}
	t.Cleanup(func() { _ = cacheProvider.Close() })

	return NewCheckoutService(pricer, store, payments, sender, cacheProvider,
		"https://artframer.example.com", "Standard", "USD", testLogger())
}

func TestCheckoutCreatesPendingOrderAndSession(t *testing.T) {
	t.Parallel()

	pricer := &fakePricer{result: pricedResult()}
	store := newFakeOrderStore()
	payments := &fakePayments{session: &stripeapi.CheckoutSession{ID: "cs_123", URL: "https://checkout.stripe.test/cs_123"}}
	svc := newTestService(t, pricer, store, payments, nil)

	result, err := svc.Checkout(context.Background(), checkoutInput())
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}

	if result.CheckoutURL != "https://checkout.stripe.test/cs_123" {
		t.Errorf("CheckoutURL = %q", result.CheckoutURL)
	}

	order := store.orders[result.OrderID]
	if order == nil {
		t.Fatal("order was not persisted")
	}
	if order.Status != db.StatusPendingPayment {
		t.Errorf("status = %s, want pending_payment", order.Status)
	}
	if order.TotalCents != 9995 {
		t.Errorf("TotalCents = %d, want 9995", order.TotalCents)
	}
	if order.StripeCheckoutSessionID != "cs_123" {
		t.Errorf("session = %q, want cs_123", order.StripeCheckoutSessionID)
	}
	if len(order.Items) != 1 || order.Items[0].UnitCost != "45.00" {
		t.Errorf("order items = %+v", order.Items)
	}

	if len(payments.params) != 1 {
		t.Fatalf("payment sessions created = %d, want 1", len(payments.params))
	}
	params := payments.params[0]
	if len(params.Lines) != 1 || params.Lines[0].UnitAmountCents != 4500 || params.Lines[0].Quantity != 2 {
		t.Errorf("checkout lines = %+v", params.Lines)
	}
	if params.ShippingCents != 995 {
		t.Errorf("ShippingCents = %d, want 995", params.ShippingCents)
	}
}

func TestCheckoutRejectsInvalidAddressBeforePricing(t *testing.T) {
	t.Parallel()

	pricer := &fakePricer{result: pricedResult()}
	svc := newTestService(t, pricer, newFakeOrderStore(), &fakePayments{}, nil)

	input := checkoutInput()
	input.Address.CountryCode = ""

	_, err := svc.Checkout(context.Background(), input)

	var validationErr *models.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Checkout() error = %v, want *models.ValidationError", err)
	}
	if pricer.calls != 0 {
		t.Error("pricer must not run for an invalid address")
	}
}

func TestCheckoutRequiresCustomerEmail(t *testing.T) {
	t.Parallel()

	pricer := &fakePricer{result: pricedResult()}
	svc := newTestService(t, pricer, newFakeOrderStore(), &fakePayments{}, nil)

	input := checkoutInput()
	input.CustomerEmail = ""

	_, err := svc.Checkout(context.Background(), input)

	var validationErr *models.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Checkout() error = %v, want *models.ValidationError", err)
	}
}

func TestCheckoutPaymentFailureMarksOrderFailed(t *testing.T) {
	t.Parallel()

	store := newFakeOrderStore()
	payments := &fakePayments{err: errors.New("stripe down")}
	svc := newTestService(t, &fakePricer{result: pricedResult()}, store, payments, nil)

	_, err := svc.Checkout(context.Background(), checkoutInput())
	if err == nil {
		t.Fatal("Checkout() expected error when payment session fails")
	}

	if len(store.orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(store.orders))
	}
	for _, order := range store.orders {
		if order.Status != db.StatusFailed {
			t.Errorf("status = %s, want failed", order.Status)
		}
	}
}

func TestHandlePaymentCompletedMarksPaidAndSendsEmail(t *testing.T) {
	t.Parallel()

	store := newFakeOrderStore()
	sender := &fakeEmailSender{}
	payments := &fakePayments{session: &stripeapi.CheckoutSession{ID: "cs_456", URL: "https://checkout.stripe.test/cs_456"}}
	svc := newTestService(t, &fakePricer{result: pricedResult()}, store, payments, sender)

	result, err := svc.Checkout(context.Background(), checkoutInput())
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}

	payload := []byte(`{"id": "cs_456"}`)
	if err := svc.HandlePaymentCompleted(context.Background(), "evt_1", payload); err != nil {
		t.Fatalf("HandlePaymentCompleted() error = %v", err)
	}

	order := store.orders[result.OrderID]
	if order.Status != db.StatusPaid {
		t.Errorf("status = %s, want paid", order.Status)
	}
	if len(sender.sent) != 1 || sender.sent[0] != result.OrderID {
		t.Errorf("confirmations sent = %v", sender.sent)
	}
}

func TestHandlePaymentCompletedIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newFakeOrderStore()
	sender := &fakeEmailSender{}
	payments := &fakePayments{session: &stripeapi.CheckoutSession{ID: "cs_789", URL: "https://checkout.stripe.test/cs_789"}}
	svc := newTestService(t, &fakePricer{result: pricedResult()}, store, payments, sender)

	if _, err := svc.Checkout(context.Background(), checkoutInput()); err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}

	payload := []byte(`{"id": "cs_789"}`)
	if err := svc.HandlePaymentCompleted(context.Background(), "evt_dup", payload); err != nil {
		t.Fatalf("first delivery error = %v", err)
	}
	if err := svc.HandlePaymentCompleted(context.Background(), "evt_dup", payload); err != nil {
		t.Fatalf("redelivery error = %v", err)
	}
	// A retried delivery under a fresh event ID hits the status guard
	// instead of the cache and still must not duplicate the email.
	if err := svc.HandlePaymentCompleted(context.Background(), "evt_dup2", payload); err != nil {
		t.Fatalf("fresh event ID redelivery error = %v", err)
	}

	if len(sender.sent) != 1 {
		t.Errorf("confirmations sent = %d, want 1", len(sender.sent))
	}
}

func TestHandlePaymentExpiredMarksPaymentFailed(t *testing.T) {
	t.Parallel()

	store := newFakeOrderStore()
	payments := &fakePayments{session: &stripeapi.CheckoutSession{ID: "cs_exp", URL: "https://checkout.stripe.test/cs_exp"}}
	svc := newTestService(t, &fakePricer{result: pricedResult()}, store, payments, nil)

	result, err := svc.Checkout(context.Background(), checkoutInput())
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}

	if err := svc.HandlePaymentExpired(context.Background(), "evt_exp", []byte(`{"id": "cs_exp"}`)); err != nil {
		t.Fatalf("HandlePaymentExpired() error = %v", err)
	}

	order := store.orders[result.OrderID]
	if order.Status != db.StatusPaymentFailed {
		t.Errorf("status = %s, want payment_failed", order.Status)
	}
}
