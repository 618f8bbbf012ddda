package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockGateway is an in-memory Gateway for tests and local runs. Every call
// is recorded; behavior is overridable per method.
type MockGateway struct {
	name string

	mu          sync.Mutex
	CreateCalls []CreateRequest
	RefundCalls []string

	CreateFunc func(ctx context.Context, req CreateRequest) (*Result, error)
	RefundFunc func(ctx context.Context, transactionID string) (*Result, error)
}

func NewMockGateway(name string) *MockGateway {
	return &MockGateway{name: name}
}

func (m *MockGateway) Name() string { return m.name }

func (m *MockGateway) CreateTransaction(ctx context.Context, req CreateRequest) (*Result, error) {
	m.mu.Lock()
	m.CreateCalls = append(m.CreateCalls, req)
	m.mu.Unlock()

	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, req)
	}

	id := "txn_" + uuid.New().String()[:8]
	return &Result{
		Success: true,
		Data: TransactionData{
			ID:              id,
			Status:          "created",
			Amount:          centsToDecimalString(req.AmountCents),
			ExtraParameters: req.Extra,
			CreatedAt:       time.Now().UTC().Format(time.RFC3339),
			Links: []Link{
				{Rel: "self", Href: "https://sandbox.yedpay.com/v1/transactions/" + id},
				{Rel: "checkout", Href: "https://sandbox.yedpay.com/checkout/" + id},
			},
		},
	}, nil
}

func (m *MockGateway) Refund(ctx context.Context, transactionID string) (*Result, error) {
	m.mu.Lock()
	m.RefundCalls = append(m.RefundCalls, transactionID)
	m.mu.Unlock()

	if m.RefundFunc != nil {
		return m.RefundFunc(ctx, transactionID)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	return &Result{
		Success: true,
		Data: TransactionData{
			ID:         "rf_" + uuid.New().String()[:8],
			Status:     "refunded",
			PaidAt:     now,
			RefundedAt: now,
		},
	}, nil
}

// CreateCallCount returns the number of recorded CreateTransaction calls.
func (m *MockGateway) CreateCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CreateCalls)
}

// RefundCallCount returns the number of recorded Refund calls.
func (m *MockGateway) RefundCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.RefundCalls)
}
