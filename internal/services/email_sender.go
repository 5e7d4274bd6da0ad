package services

import (
	"context"
	"fmt"

	"github.com/artframerapp/artframer/internal/db"
	"github.com/artframerapp/artframer/internal/email"
)

// OrderEmailSender delivers customer-facing order emails. A nil sender is
// replaced with a noop so email stays optional in development.
type OrderEmailSender interface {
	SendOrderConfirmation(ctx context.Context, order *db.Order) error
}

type noopOrderEmailSender struct{}

func (noopOrderEmailSender) SendOrderConfirmation(context.Context, *db.Order) error {
	return nil
}

// ConfirmationSender renders and sends order confirmations through an
// email provider.
type ConfirmationSender struct {
	provider email.Provider
	renderer *email.Renderer
	storeURL string
}

func NewConfirmationSender(provider email.Provider, renderer *email.Renderer, storeURL string) *ConfirmationSender {
	return &ConfirmationSender{
		provider: provider,
		renderer: renderer,
		storeURL: storeURL,
	}
}

func (s *ConfirmationSender) SendOrderConfirmation(ctx context.Context, order *db.Order) error {
	if order.CustomerEmail == "" {
		return fmt.Errorf("order %s has no customer email", order.ID)
	}

	info := &email.OrderInfo{
		OrderNumber:   order.ID.String(),
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		StoreURL:      s.storeURL,
		Currency:      order.Currency,
		Subtotal:      formatCents(order.SubtotalCents),
		Tax:           formatCents(order.TaxCents),
		Shipping:      formatCents(order.ShippingCents),
		Total:         formatCents(order.TotalCents),
		Estimated:     order.Estimated,
	}
	for _, item := range order.Items {
		info.Items = append(info.Items, email.OrderLine{
			Name:      item.SKU,
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitCost,
		})
	}

	msg, err := s.renderer.RenderOrderConfirmation(info)
	if err != nil {
		return fmt.Errorf("failed to render order confirmation: %w", err)
	}

	if err := s.provider.SendEmail(ctx, msg); err != nil {
		return fmt.Errorf("failed to send order confirmation: %w", err)
	}
	return nil
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
