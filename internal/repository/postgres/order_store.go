package postgres

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/merchantkit/unionpay-bridge/internal/domain/errors"
	"github.com/merchantkit/unionpay-bridge/internal/domain/order"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderStore implements order.Store using PostgreSQL. Orders, notes,
// metadata and cart items live in separate tables; metadata writes are
// upserts so repeated signals overwrite rather than duplicate.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates a new OrderStore.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

func (s *OrderStore) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, s.pool)
}

// GetOrder retrieves an order by its id.
func (s *OrderStore) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	o := &order.Order{}
	var status, amountStr string
	err := s.db(ctx).QueryRow(ctx,
		`SELECT id, status, amount, currency, cart_id, created_at, updated_at
		 FROM orders WHERE id = $1`, id,
	).Scan(&o.ID, &status, &amountStr, &o.Currency, &o.CartID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	cents, err := numericStringToCents(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parse order amount: %w", err)
	}
	o.TotalCents = cents
	o.Status = order.Status(status)
	return o, nil
}

// UpdateStatus transitions the order to the given status.
func (s *OrderStore) UpdateStatus(ctx context.Context, id string, status order.Status) error {
	tag, err := s.db(ctx).Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`,
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrOrderNotFound
	}
	return nil
}

// AddNote appends an audit note to the order.
func (s *OrderStore) AddNote(ctx context.Context, id string, text string) error {
	_, err := s.db(ctx).Exec(ctx,
		`INSERT INTO order_notes (order_id, note, created_at) VALUES ($1, $2, NOW())`,
		id, text,
	)
	if err != nil {
		return fmt.Errorf("insert order note: %w", err)
	}
	return nil
}

// GetMetadata reads a metadata value; missing keys return "".
func (s *OrderStore) GetMetadata(ctx context.Context, id string, key string) (string, error) {
	var value string
	err := s.db(ctx).QueryRow(ctx,
		`SELECT meta_value FROM order_metadata WHERE order_id = $1 AND meta_key = $2`,
		id, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get order metadata: %w", err)
	}
	return value, nil
}

// SetMetadata writes a metadata value, overwriting any previous one.
func (s *OrderStore) SetMetadata(ctx context.Context, id string, key, value string) error {
	_, err := s.db(ctx).Exec(ctx,
		`INSERT INTO order_metadata (order_id, meta_key, meta_value, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (order_id, meta_key)
		 DO UPDATE SET meta_value = EXCLUDED.meta_value, updated_at = NOW()`,
		id, key, value,
	)
	if err != nil {
		return fmt.Errorf("set order metadata: %w", err)
	}
	return nil
}

// EmptyCart clears the cart associated with the order's session.
func (s *OrderStore) EmptyCart(ctx context.Context, id string) error {
	_, err := s.db(ctx).Exec(ctx,
		`DELETE FROM cart_items
		 WHERE cart_id = (SELECT cart_id FROM orders WHERE id = $1)`,
		id,
	)
	if err != nil {
		return fmt.Errorf("empty cart: %w", err)
	}
	return nil
}
