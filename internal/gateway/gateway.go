package gateway

import (
	"context"
)

// Mode selects the provider environment.
type Mode string

const (
	ModeProduction Mode = "production"
	ModeStaging    Mode = "staging"
)

// OperationMode maps the configured working mode to the provider
// environment: "live" runs against production, anything else is staging.
func OperationMode(configured string) Mode {
	if configured == "live" {
		return ModeProduction
	}
	return ModeStaging
}

// Provider currency codes and their numeric indexes on the wire.
const (
	CurrencyHKD = "HKD"
	CurrencyRMB = "RMB"

	IndexCurrencyHKD = 1
	IndexCurrencyRMB = 2
)

// CurrencyIndex resolves an order currency to the provider's numeric index.
// Unknown currencies are not silently accepted; callers must treat ok=false
// as a hard validation failure.
func CurrencyIndex(currency string) (int, bool) {
	switch currency {
	case CurrencyHKD:
		return IndexCurrencyHKD, true
	case CurrencyRMB:
		return IndexCurrencyRMB, true
	}
	return 0, false
}

// UnionPay is the provider-side gateway code for UnionPay transactions.
const UnionPayGatewayCode = 2

// CreateRequest is a transaction pre-creation request.
type CreateRequest struct {
	StoreID       string
	AmountCents   int64
	CurrencyIndex int
	GatewayCode   int
	ReturnURL     string
	NotifyURL     string
	// Extra is an opaque JSON payload the provider echoes back unmodified
	// on notification; the bridge uses it to round-trip the order id.
	Extra string
}

// Link is a HATEOAS-style link returned with a transaction.
type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// TransactionData is the provider-side view of a transaction or refund.
// Monetary fields arrive as decimal strings and are passed through to audit
// notes untouched.
type TransactionData struct {
	ID              string `json:"id"`
	CompanyID       string `json:"company_id"`
	BarcodeID       string `json:"barcode_id"`
	Status          string `json:"status"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	Charge          string `json:"charge"`
	Forex           string `json:"forex"`
	PaidAt          string `json:"paid_at"`
	TransactionID   string `json:"transaction_id"`
	ExtraParameters string `json:"extra_parameters"`
	CreatedAt       string `json:"created_at"`
	RefundedAt      string `json:"refunded_at"`
	Links           []Link `json:"_links"`
}

// Result is the outcome of a gateway call. Success carries Data; an explicit
// provider rejection carries ErrorCode/ErrorMessage with Success false.
// Transport-level failures are returned as Go errors instead.
type Result struct {
	Success      bool
	Data         TransactionData
	ErrorCode    string
	ErrorMessage string
}

// Gateway is the remote payment client the bridge core depends on.
type Gateway interface {
	// Name returns the gateway name.
	Name() string
	// CreateTransaction pre-creates a transaction and returns its data,
	// including the checkout link set.
	CreateTransaction(ctx context.Context, req CreateRequest) (*Result, error)
	// Refund refunds a previously settled transaction.
	Refund(ctx context.Context, transactionID string) (*Result, error)
}
