package order

import (
	"fmt"
	"time"
)

// Status represents the order status in the payment state machine.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusPaid       Status = "paid"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
)

// Metadata keys persisted against an order. The key set is fixed; the
// gateway transaction id is only ever written after a validated signal.
const (
	MetaTransactionID = "yedpay_transaction_id"
	MetaOrderID       = "unionpay_order_id"
	MetaPaymentStatus = "unionpay_payment_status"
	MetaReturnTxnID   = "unionpay_transaction_id"
)

// Order is the commerce platform's order as seen by the bridge. The bridge
// never creates or destroys orders, it only reads and mutates them through
// the Store port.
type Order struct {
	ID         string
	Status     Status
	TotalCents int64
	Currency   string
	CartID     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Amount represents a monetary amount in the smallest currency unit.
type Amount struct {
	ValueCents int64
	Currency   string
}

// String returns a human-readable representation of the amount.
func (a Amount) String() string {
	whole := a.ValueCents / 100
	frac := a.ValueCents % 100
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%d.%02d %s", whole, frac, a.Currency)
}

// Total returns the order total as an Amount.
func (o *Order) Total() Amount {
	return Amount{ValueCents: o.TotalCents, Currency: o.Currency}
}

// CanTransitionTo checks if the order can move to the given status.
func (o *Order) CanTransitionTo(newStatus Status) bool {
	transitions := map[Status][]Status{
		StatusPending: {
			StatusProcessing,
			StatusPaid,
			StatusFailed,
		},
		StatusProcessing: {
			StatusPending, // provider quirk normalization before settle
			StatusPaid,
			StatusFailed,
		},
		StatusPaid: {
			StatusRefunded,
		},
		StatusFailed: {
			StatusPending, // renewed checkout attempt
		},
		StatusRefunded: {}, // Terminal state
	}

	allowed, exists := transitions[o.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == newStatus {
			return true
		}
	}
	return false
}

// Settleable reports whether a "paid" signal may still fire settlement
// logic for this order. Anything outside pending/processing is a no-op by
// construction, which is what makes replayed notifications idempotent.
func (o *Order) Settleable() bool {
	return o.Status == StatusPending || o.Status == StatusProcessing
}
