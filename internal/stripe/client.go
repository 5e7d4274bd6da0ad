package stripe

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
)

// Client handles Stripe payment operations.
type Client struct {
	client *stripe.Client
}

func NewClient(secretKey string) *Client {
	return &Client{client: stripe.NewClient(secretKey)}
}

// CheckoutLine is one priced cart line to collect payment for.
type CheckoutLine struct {
	Name            string
	UnitAmountCents int64
	Quantity        int64
}

// CheckoutSessionParams holds parameters for creating a checkout session.
// All amounts are cents of Currency, priced upstream; Stripe is only asked
// to collect them.
type CheckoutSessionParams struct {
	OrderID        uuid.UUID
	Currency       string
	Lines          []CheckoutLine
	TaxCents       int64
	ShippingCents  int64
	ShippingMethod string
	CustomerEmail  string
	SuccessURL     string
	CancelURL      string
}

// CreateCheckoutSession creates a hosted checkout session for an order.
func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if len(params.Lines) == 0 {
		return nil, fmt.Errorf("at least one line item is required")
	}

	lineItems := make([]*stripe.CheckoutSessionCreateLineItemParams, 0, len(params.Lines)+1)
	for _, line := range params.Lines {
		quantity := line.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionCreateLineItemParams{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency: stripe.String(params.Currency),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
				UnitAmount: stripe.Int64(line.UnitAmountCents),
			},
			Quantity: stripe.Int64(quantity),
		})
	}

	// Tax is computed upstream, so it rides along as its own line item
	// instead of Stripe's automatic tax.
	if params.TaxCents > 0 {
		lineItems = append(lineItems, &stripe.CheckoutSessionCreateLineItemParams{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency: stripe.String(params.Currency),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripe.String("Tax"),
				},
				UnitAmount: stripe.Int64(params.TaxCents),
			},
			Quantity: stripe.Int64(1),
		})
	}

	sessionParams := &stripe.CheckoutSessionCreateParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(params.SuccessURL),
		CancelURL:          stripe.String(params.CancelURL),
		LineItems:          lineItems,
		ShippingOptions: []*stripe.CheckoutSessionCreateShippingOptionParams{
			{
				ShippingRateData: &stripe.CheckoutSessionCreateShippingOptionShippingRateDataParams{
					DisplayName: stripe.String(fmt.Sprintf("Shipping (%s)", params.ShippingMethod)),
					Type:        stripe.String(string(stripe.ShippingRateTypeFixedAmount)),
					FixedAmount: &stripe.CheckoutSessionCreateShippingOptionShippingRateDataFixedAmountParams{
						Amount:   stripe.Int64(params.ShippingCents),
						Currency: stripe.String(params.Currency),
					},
				},
			},
		},
		// Customer email is optional. Only send if present to avoid Stripe validation errors.
		CustomerEmail: stripe.String(params.CustomerEmail),
		Metadata: map[string]string{
			"order_id": params.OrderID.String(),
		},
	}

	if params.CustomerEmail == "" {
		sessionParams.CustomerEmail = nil
	}

	sess, err := c.client.V1CheckoutSessions.Create(ctx, sessionParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return sess, nil
}
