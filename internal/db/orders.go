package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artframerapp/artframer/internal/models"
)

type OrderStatus string

const (
	StatusPendingPayment OrderStatus = "pending_payment"
	StatusPaid           OrderStatus = "paid"
	StatusPaymentFailed  OrderStatus = "payment_failed"
	StatusFailed         OrderStatus = "failed"
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
)

// OrderItem is one persisted line of the reconciled price breakdown. Unit
// costs are stored as strings to keep decimal precision through JSONB.
type OrderItem struct {
	CartItemID string `json:"cartItemId"`
	SKU        string `json:"sku"`
	Quantity   int    `json:"quantity"`
	UnitCost   string `json:"unitCost"`
	Source     string `json:"source"`
}

// Order is a priced checkout persisted for audit. Amounts are stored in
// cents of Currency so the money columns stay integral.
type Order struct {
	ID                      uuid.UUID
	CustomerEmail           string
	CustomerName            string
	DestinationCountry      string
	Currency                string
	SubtotalCents           int64
	TaxCents                int64
	ShippingCents           int64
	TotalCents              int64
	Estimated               bool
	Items                   []OrderItem
	ShippingAddress         *models.Address
	StripeCheckoutSessionID string
	FailureReason           string
	Status                  OrderStatus
	CreatedAt               time.Time
}

type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

func (s *OrderStore) Create(ctx context.Context, order *Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}

	var addressJSON []byte
	if order.ShippingAddress != nil {
		addressJSON, err = json.Marshal(order.ShippingAddress)
		if err != nil {
			return fmt.Errorf("failed to encode shipping address: %w", err)
		}
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO orders (
			customer_email, customer_name, destination_country, currency,
			subtotal_cents, tax_cents, shipping_cents, total_cents,
			estimated, items, shipping_address, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`,
		order.CustomerEmail, order.CustomerName, order.DestinationCountry, order.Currency,
		order.SubtotalCents, order.TaxCents, order.ShippingCents, order.TotalCents,
		order.Estimated, itemsJSON, addressJSON, string(order.Status),
	)
	if err := row.Scan(&order.ID, &order.CreatedAt); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (s *OrderStore) GetByStripeSessionID(ctx context.Context, sessionID string) (*Order, error) {
	return s.getOrder(ctx, `
		SELECT id, customer_email, customer_name, destination_country, currency,
		       subtotal_cents, tax_cents, shipping_cents, total_cents,
		       estimated, items, shipping_address,
		       COALESCE(stripe_checkout_session_id, ''), COALESCE(failure_reason, ''),
		       status, created_at
		FROM orders
		WHERE stripe_checkout_session_id = $1`, sessionID)
}

func (s *OrderStore) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.getOrder(ctx, `
		SELECT id, customer_email, customer_name, destination_country, currency,
		       subtotal_cents, tax_cents, shipping_cents, total_cents,
		       estimated, items, shipping_address,
		       COALESCE(stripe_checkout_session_id, ''), COALESCE(failure_reason, ''),
		       status, created_at
		FROM orders
		WHERE id = $1`, id)
}

func (s *OrderStore) getOrder(ctx context.Context, query string, arg any) (*Order, error) {
	row := s.pool.QueryRow(ctx, query, arg)

	var (
		order       Order
		status      string
		itemsJSON   []byte
		addressJSON []byte
	)
	err := row.Scan(
		&order.ID, &order.CustomerEmail, &order.CustomerName, &order.DestinationCountry, &order.Currency,
		&order.SubtotalCents, &order.TaxCents, &order.ShippingCents, &order.TotalCents,
		&order.Estimated, &itemsJSON, &addressJSON,
		&order.StripeCheckoutSessionID, &order.FailureReason,
		&status, &order.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	order.Status = OrderStatus(status)
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
			return nil, fmt.Errorf("failed to decode order items: %w", err)
		}
	}
	if len(addressJSON) > 0 {
		order.ShippingAddress = &models.Address{}
		if err := json.Unmarshal(addressJSON, order.ShippingAddress); err != nil {
			return nil, fmt.Errorf("failed to decode shipping address: %w", err)
		}
	}
	return &order, nil
}

func (s *OrderStore) UpdateStripeSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET stripe_checkout_session_id = $2 WHERE id = $1`, id, sessionID)
	if err != nil {
		return fmt.Errorf("failed to update stripe session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// MarkPaid transitions a pending order to paid. Repeated webhook
// deliveries surface ErrInvalidStatusTransition instead of rewriting the
// row.
func (s *OrderStore) MarkPaid(ctx context.Context, id uuid.UUID) error {
	return s.setStatus(ctx, id, StatusPaid, "")
}

func (s *OrderStore) MarkPaymentFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return s.setStatus(ctx, id, StatusPaymentFailed, reason)
}

func (s *OrderStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return s.setStatus(ctx, id, StatusFailed, reason)
}

func (s *OrderStore) setStatus(ctx context.Context, id uuid.UUID, status OrderStatus, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE orders
		 SET status = $2, failure_reason = NULLIF($3, '')
		 WHERE id = $1 AND status = $4`,
		id, string(status), reason, string(StatusPendingPayment))
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var current string
		row := s.pool.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, id)
		if scanErr := row.Scan(&current); scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to check order status: %w", scanErr)
		}
		return fmt.Errorf("order %s is %s: %w", id, current, ErrInvalidStatusTransition)
	}
	return nil
}
