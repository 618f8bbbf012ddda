package testutil

import (
	"context"
	"sync"
	"time"

	domainErrors "github.com/merchantkit/unionpay-bridge/internal/domain/errors"
	"github.com/merchantkit/unionpay-bridge/internal/domain/order"
)

// --- Order Store Mock ---

// MockOrderStore is an in-memory implementation of order.Store. Every
// mutation is recorded; behavior is overridable per method.
type MockOrderStore struct {
	mu       sync.Mutex
	orders   map[string]*order.Order
	notes    map[string][]*order.Note
	metadata map[string]map[string]string
	// emptied counts EmptyCart calls per order id.
	emptied map[string]int

	GetOrderFunc     func(ctx context.Context, id string) (*order.Order, error)
	UpdateStatusFunc func(ctx context.Context, id string, status order.Status) error
	AddNoteFunc      func(ctx context.Context, id string, text string) error
	GetMetadataFunc  func(ctx context.Context, id string, key string) (string, error)
	SetMetadataFunc  func(ctx context.Context, id string, key, value string) error
	EmptyCartFunc    func(ctx context.Context, id string) error
}

func NewMockOrderStore() *MockOrderStore {
	return &MockOrderStore{
		orders:   make(map[string]*order.Order),
		notes:    make(map[string][]*order.Note),
		metadata: make(map[string]map[string]string),
		emptied:  make(map[string]int),
	}
}

// AddOrder pre-populates the mock with an order.
func (m *MockOrderStore) AddOrder(o *order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
}

func (m *MockOrderStore) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	if m.GetOrderFunc != nil {
		return m.GetOrderFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domainErrors.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderStore) UpdateStatus(ctx context.Context, id string, status order.Status) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domainErrors.ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	return nil
}

func (m *MockOrderStore) AddNote(ctx context.Context, id string, text string) error {
	if m.AddNoteFunc != nil {
		return m.AddNoteFunc(ctx, id, text)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes[id] = append(m.notes[id], &order.Note{OrderID: id, Text: text, CreatedAt: time.Now()})
	return nil
}

func (m *MockOrderStore) GetMetadata(ctx context.Context, id string, key string) (string, error) {
	if m.GetMetadataFunc != nil {
		return m.GetMetadataFunc(ctx, id, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metadata[id][key], nil
}

func (m *MockOrderStore) SetMetadata(ctx context.Context, id string, key, value string) error {
	if m.SetMetadataFunc != nil {
		return m.SetMetadataFunc(ctx, id, key, value)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.metadata[id] == nil {
		m.metadata[id] = make(map[string]string)
	}
	m.metadata[id][key] = value
	return nil
}

func (m *MockOrderStore) EmptyCart(ctx context.Context, id string) error {
	if m.EmptyCartFunc != nil {
		return m.EmptyCartFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emptied[id]++
	return nil
}

// --- Inspection helpers ---

// Status returns the current status of a stored order.
func (m *MockOrderStore) Status(id string) order.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[id]; ok {
		return o.Status
	}
	return ""
}

// Notes returns the recorded note texts for an order.
func (m *MockOrderStore) Notes(id string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	texts := make([]string, 0, len(m.notes[id]))
	for _, n := range m.notes[id] {
		texts = append(texts, n.Text)
	}
	return texts
}

// Metadata returns a recorded metadata value for an order.
func (m *MockOrderStore) Metadata(id, key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metadata[id][key]
}

// EmptyCartCount returns how many times the cart was cleared for an order.
func (m *MockOrderStore) EmptyCartCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emptied[id]
}
