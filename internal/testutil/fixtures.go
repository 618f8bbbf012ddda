package testutil

import (
	"time"

	"github.com/merchantkit/unionpay-bridge/internal/domain/order"

	"github.com/google/uuid"
)

func NewTestOrder(id string, status order.Status, totalCents int64, currency string) *order.Order {
	now := time.Now()
	if id == "" {
		id = uuid.New().String()
	}
	return &order.Order{
		ID:         id,
		Status:     status,
		TotalCents: totalCents,
		Currency:   currency,
		CartID:     "cart-" + id,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
