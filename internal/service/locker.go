package service

import (
	"context"
	"sync"
)

// OrderLocker provides a per-order critical section. Every read-check-write
// sequence against an order runs inside WithOrderLock so the async notify
// and browser return paths cannot race each other.
type OrderLocker interface {
	WithOrderLock(ctx context.Context, orderID string, fn func(ctx context.Context) error) error
}

// MemoryLocker is an in-process OrderLocker for tests and single-instance
// deployments. Locks are never evicted; the key space is bounded by the
// orders a process touches.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*sync.Mutex)}
}

func (m *MemoryLocker) WithOrderLock(ctx context.Context, orderID string, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	l, ok := m.locks[orderID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[orderID] = l
	}
	m.mu.Unlock()

	l.Lock()
	defer l.Unlock()
	return fn(ctx)
}

// TxRunner runs fn atomically against the backing store. Implementations
// propagate the transaction through the context so store calls made inside
// fn join it.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// NopTx runs fn directly, for stores that are not transactional.
type NopTx struct{}

func (NopTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
