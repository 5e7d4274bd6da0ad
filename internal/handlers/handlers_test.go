package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/artframerapp/artframer/internal/catalog"
	"github.com/artframerapp/artframer/internal/config"
	"github.com/artframerapp/artframer/internal/models"
	"github.com/artframerapp/artframer/internal/pricing"
	"github.com/artframerapp/artframer/internal/prodigi"
	"github.com/artframerapp/artframer/internal/services"
	"github.com/artframerapp/artframer/internal/shipping"
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

type fakeShipper struct {
	options []shipping.Option
	err     error
}

func (f *fakeShipper) CalculateShipping(context.Context, []models.CartItem, models.Address) ([]shipping.Option, error) {
	return f.options, f.err
}

func (f *fakeShipper) RecommendedMethod(options []shipping.Option) *shipping.Option {
	if len(options) == 0 {
		return nil
	}
	return &options[0]
}

type fakeCheckout struct {
	result *services.CheckoutResult
	err    error
}

func (f *fakeCheckout) Checkout(context.Context, services.CheckoutInput) (*services.CheckoutResult, error) {
	return f.result, f.err
}

func (f *fakeCheckout) HandlePaymentCompleted(context.Context, string, []byte) error { return nil }
func (f *fakeCheckout) HandlePaymentExpired(context.Context, string, []byte) error   { return nil }

func testConfig() *config.Config {
	return &config.Config{
		StorefrontBaseURL:     "https://artframer.example.com",
		StripeWebhookSecret:   "whsec_test",
		DefaultCurrency:       "USD",
		DefaultShippingMethod: "Standard",
	}
}

func newTestHandlers(t *testing.T, pricer *fakePricer, shipper *fakeShipper, checkout *fakeCheckout) *Handlers {
	t.Helper()

	if pricer == nil {
		pricer = &fakePricer{}
	}
	if shipper == nil {
		shipper = &fakeShipper{}
	}
	if checkout == nil {
		checkout = &fakeCheckout{}
	}

	h, err := New(Dependencies{
		Config:          testConfig(),
		Pricer:          pricer,
		Shipper:         shipper,
		CheckoutService: checkout,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return h
}

func TestNewRequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := New(Dependencies{Config: testConfig()})
	if err == nil {
		t.Fatal("New() expected error for missing dependencies")
	}
}

func TestPricingReturnsResult(t *testing.T) {
	t.Parallel()

	pricer := &fakePricer{result: &pricing.PricingResult{
		Subtotal: decimal.RequireFromString("45.00"),
		Total:    decimal.RequireFromString("54.95"),
		Currency: "USD",
		ItemPrices: map[int]pricing.ItemPrice{
			0: {UnitCost: decimal.RequireFromString("45.00"), Source: pricing.PriceExact},
		},
	}}
	h := newTestHandlers(t, pricer, nil, nil)

	body := `{"items":[{"sku":"global-can-8x20-x","quantity":1}],"destinationCountry":"US"}`
	req := httptest.NewRequest(http.MethodPost, "/api/pricing", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Pricing(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result pricing.PricingResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if !result.Total.Equal(decimal.RequireFromString("54.95")) {
		t.Errorf("total = %s, want 54.95", result.Total)
	}
}

func TestPricingRequiresDestinationCountry(t *testing.T) {
	t.Parallel()

	pricer := &fakePricer{}
	h := newTestHandlers(t, pricer, nil, nil)

	body := `{"items":[{"sku":"global-can-8x20-x","quantity":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/pricing", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Pricing(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if pricer.calls != 0 {
		t.Error("pricer must not run without a destination country")
	}

	var payload apiError
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid error JSON: %v", err)
	}
	if payload.Retryable {
		t.Error("validation errors must not be retryable")
	}
	if len(payload.Fields) == 0 || payload.Fields[0].Field != "destinationCountry" {
		t.Errorf("fields = %+v, want destinationCountry", payload.Fields)
	}
}

func TestPricingRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	h := newTestHandlers(t, &fakePricer{}, nil, nil)

	body := `{"items":[],"destinationCountry":"US","curency":"USD"}`
	req := httptest.NewRequest(http.MethodPost, "/api/pricing", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Pricing(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unknown field", rec.Code)
	}
}

func TestPricingTranslatesSKUNotFound(t *testing.T) {
	t.Parallel()

	pricer := &fakePricer{err: fmt.Errorf("item 0: %w", catalog.ErrSKUNotFound)}
	h := newTestHandlers(t, pricer, nil, nil)

	body := `{"items":[{"quantity":1}],"destinationCountry":"US"}`
	req := httptest.NewRequest(http.MethodPost, "/api/pricing", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Pricing(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var payload apiError
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid error JSON: %v", err)
	}
	if payload.Retryable {
		t.Error("SKU resolution failures must not be retryable")
	}
}

func TestPricingTranslatesRetryableProviderFailure(t *testing.T) {
	t.Parallel()

	pricer := &fakePricer{err: &pricing.PricingError{
		Detail: "quote request failed",
		Err:    &prodigi.APIError{Kind: prodigi.KindRateLimited, StatusCode: 429},
	}}
	h := newTestHandlers(t, pricer, nil, nil)

	body := `{"items":[{"sku":"a","quantity":1}],"destinationCountry":"US"}`
	req := httptest.NewRequest(http.MethodPost, "/api/pricing", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Pricing(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var payload apiError
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid error JSON: %v", err)
	}
	if !payload.Retryable {
		t.Error("rate-limited provider failures must be retryable")
	}
}

func TestShippingReturnsRankedOptionsAndRecommendation(t *testing.T) {
	t.Parallel()

	shipper := &fakeShipper{options: []shipping.Option{
		{Method: "Budget", Source: shipping.SourceProvider},
		{Method: "Express", Source: shipping.SourceProvider},
	}}
	h := newTestHandlers(t, nil, shipper, nil)

	body := `{"items":[{"sku":"a","quantity":1}],"address":{"name":"Ada","line1":"1 Way","city":"Austin","postalCode":"78701","countryCode":"US"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/shipping", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Shipping(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp shippingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if len(resp.Options) != 2 {
		t.Fatalf("options = %d, want 2", len(resp.Options))
	}
	if resp.Recommended == nil || resp.Recommended.Method != "Budget" {
		t.Errorf("recommended = %+v", resp.Recommended)
	}
}

func TestShippingTranslatesValidationError(t *testing.T) {
	t.Parallel()

	shipper := &fakeShipper{err: &models.ValidationError{Fields: []models.FieldError{
		{Field: "countryCode", Message: "countryCode is required"},
	}}}
	h := newTestHandlers(t, nil, shipper, nil)

	body := `{"items":[{"sku":"a","quantity":1}],"address":{}}`
	req := httptest.NewRequest(http.MethodPost, "/api/shipping", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Shipping(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCheckoutReturnsSessionURL(t *testing.T) {
	t.Parallel()

	checkout := &fakeCheckout{result: &services.CheckoutResult{
		CheckoutURL: "https://checkout.stripe.test/cs_1",
		Pricing:     &pricing.PricingResult{Currency: "USD"},
	}}
	h := newTestHandlers(t, nil, nil, checkout)

	body := `{"items":[{"sku":"a","quantity":1}],"address":{"name":"Ada","line1":"1 Way","city":"Austin","postalCode":"78701","countryCode":"US"},"customerEmail":"ada@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Checkout(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp checkoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if resp.CheckoutURL != "https://checkout.stripe.test/cs_1" {
		t.Errorf("checkoutUrl = %q", resp.CheckoutURL)
	}
}

func TestRequireKnownOriginBlocksForeignOrigin(t *testing.T) {
	t.Parallel()

	h := newTestHandlers(t, nil, nil, nil)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/pricing", nil)
	req.Header.Set("Origin", "https://evil.example.net")
	rec := httptest.NewRecorder()

	h.RequireKnownOrigin(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestRequireKnownOriginAllowsStorefront(t *testing.T) {
	t.Parallel()

	h := newTestHandlers(t, nil, nil, nil)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/pricing", nil)
	req.Header.Set("Origin", "https://artframer.example.com")
	rec := httptest.NewRecorder()

	h.RequireKnownOrigin(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
