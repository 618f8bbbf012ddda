package order

import (
	"context"
	"time"
)

// Note is an append-only audit entry attached to an order.
type Note struct {
	OrderID   string
	Text      string
	CreatedAt time.Time
}

// Store is the contract the bridge requires from the surrounding commerce
// platform. Orders are read and mutated through this port only.
type Store interface {
	// GetOrder returns the order or errors.ErrOrderNotFound.
	GetOrder(ctx context.Context, id string) (*Order, error)
	// UpdateStatus transitions the order to the given status.
	UpdateStatus(ctx context.Context, id string, status Status) error
	// AddNote appends an audit note to the order.
	AddNote(ctx context.Context, id string, text string) error
	// GetMetadata reads a metadata value; missing keys return "".
	GetMetadata(ctx context.Context, id string, key string) (string, error)
	// SetMetadata writes a metadata value, overwriting any previous one.
	SetMetadata(ctx context.Context, id string, key, value string) error
	// EmptyCart clears the cart associated with the order's session.
	EmptyCart(ctx context.Context, id string) error
}
