package controller

import "math"

// --- Request DTOs ---

// RefundRequest holds the input for refunding an order. Only full refunds
// are accepted; the amount is echoed so a stale client cannot refund a
// total it never saw.
type RefundRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Reason string  `json:"reason,omitempty" validate:"max=500"`
}

// --- Response DTOs ---

// CheckoutResponse is the checkout initiation outcome. A failure carries a
// user-visible notice instead of a redirect.
type CheckoutResponse struct {
	Result   string `json:"result"`
	Redirect string `json:"redirect,omitempty"`
	Notice   string `json:"notice,omitempty"`
}

// RefundResponse reports a confirmed refund.
type RefundResponse struct {
	OrderID    string `json:"order_id"`
	RefundID   string `json:"refund_id"`
	RefundedAt string `json:"refunded_at,omitempty"`
	Status     string `json:"status"`
}

// ReturnResponse reports the outcome of a browser return callback.
type ReturnResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Settled bool   `json:"settled"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// floatToCents converts a float currency amount to cents, rounding the same
// way the repository's numeric parsing does.
func floatToCents(f float64) int64 {
	return int64(math.Round(f * 100))
}
