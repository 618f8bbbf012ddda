package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	domainErrors "github.com/merchantkit/unionpay-bridge/internal/domain/errors"
	"github.com/merchantkit/unionpay-bridge/internal/domain/order"
	"github.com/merchantkit/unionpay-bridge/internal/service"
	"github.com/merchantkit/unionpay-bridge/internal/testutil"
	"github.com/rs/zerolog"
)

func newReconciler(store *testutil.MockOrderStore) *service.Reconciler {
	return service.NewReconciler(store, service.NewMemoryLocker(), nil, zerolog.Nop())
}

func paidNotify(orderID string) service.NotifyRequest {
	return service.NotifyRequest{
		Status:          "paid",
		ExtraParameters: fmt.Sprintf(`{"order_id":%q}`, orderID),
		ID:              "txn_abc123",
		CompanyID:       "comp_1",
		Amount:          "150.00",
		Currency:        "HKD",
		PaidAt:          "2024-03-01T10:00:00Z",
	}
}

func TestHandleNotify_SettlesPendingOrder(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMockOrderStore()
	store.AddOrder(testutil.NewTestOrder("order-1", order.StatusPending, 150_00, "HKD"))

	r := newReconciler(store)

	outcome, err := r.HandleNotify(ctx, paidNotify("order-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Settled {
		t.Error("expected order to settle")
	}
	if outcome.Status != order.StatusPaid {
		t.Errorf("expected status paid, got %s", outcome.Status)
	}
	if got := store.Metadata("order-1", order.MetaTransactionID); got != "txn_abc123" {
		t.Errorf("expected transaction id metadata txn_abc123, got %q", got)
	}
	if store.EmptyCartCount("order-1") != 1 {
		t.Errorf("expected cart emptied once, got %d", store.EmptyCartCount("order-1"))
	}

	notes := store.Notes("order-1")
	if len(notes) != 1 {
		t.Fatalf("expected 1 audit note, got %d", len(notes))
	}
	if !strings.Contains(notes[0], "txn_abc123") {
		t.Errorf("audit note missing transaction id: %q", notes[0])
	}
}

func TestHandleNotify_Replay_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMockOrderStore()
	store.AddOrder(testutil.NewTestOrder("order-1", order.StatusPending, 150_00, "HKD"))

	r := newReconciler(store)

	if _, err := r.HandleNotify(ctx, paidNotify("order-1")); err != nil {
		t.Fatalf("first notify: %v", err)
	}
	outcome, err := r.HandleNotify(ctx, paidNotify("order-1"))
	if err != nil {
		t.Fatalf("replayed notify: %v", err)
	}

	if outcome.Settled {
		t.Error("replay must not settle again")
	}
	if outcome.Status != order.StatusPaid {
		t.Errorf("expected status paid after replay, got %s", outcome.Status)
	}
	if store.EmptyCartCount("order-1") != 1 {
		t.Errorf("expected cart emptied once, got %d", store.EmptyCartCount("order-1"))
	}
	if notes := store.Notes("order-1"); len(notes) != 1 {
		t.Errorf("replay must not duplicate the audit note, got %d notes", len(notes))
	}
}

func TestHandleNotify_ProcessingIsNormalizedBeforeSettle(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMockOrderStore()
	store.AddOrder(testutil.NewTestOrder("order-1", order.StatusProcessing, 150_00, "HKD"))

	r := newReconciler(store)

	outcome, err := r.HandleNotify(ctx, paidNotify("order-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Settled {
		t.Error("expected processing order to settle after normalization")
	}
	if store.Status("order-1") != order.StatusPaid {
		t.Errorf("expected stored status paid, got %s", store.Status("order-1"))
	}
}

func TestHandleNotify_MissingParameters(t *testing.T) {
	ctx := context.Background()
	r := newReconciler(testutil.NewMockOrderStore())

	tests := []struct {
		name string
		req  service.NotifyRequest
	}{
		{"missing status", service.NotifyRequest{ExtraParameters: `{"order_id":"order-1"}`}},
		{"missing extra_parameters", service.NotifyRequest{Status: "paid"}},
		{"invalid extra json", service.NotifyRequest{Status: "paid", ExtraParameters: "{not json"}},
		{"missing order id", service.NotifyRequest{Status: "paid", ExtraParameters: `{}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.HandleNotify(ctx, tt.req)
			var validationErr *domainErrors.ValidationError
			if !errors.As(err, &validationErr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestHandleNotify_UnknownOrder(t *testing.T) {
	ctx := context.Background()
	r := newReconciler(testutil.NewMockOrderStore())

	_, err := r.HandleNotify(ctx, paidNotify("missing"))
	if !errors.Is(err, domainErrors.ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestHandleNotify_NonPaidStatus_RecordsFailureNote(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMockOrderStore()
	store.AddOrder(testutil.NewTestOrder("order-1", order.StatusPending, 150_00, "HKD"))

	r := newReconciler(store)

	req := paidNotify("order-1")
	req.Status = "expired"
	outcome, err := r.HandleNotify(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Settled {
		t.Error("non-paid status must not settle")
	}
	if store.Status("order-1") != order.StatusPending {
		t.Errorf("expected status unchanged, got %s", store.Status("order-1"))
	}
	notes := store.Notes("order-1")
	if len(notes) != 1 || !strings.Contains(notes[0], "payment failed") {
		t.Errorf("expected a payment failed note, got %v", notes)
	}
}

func TestHandleReturn_PaidWithKey_Settles(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMockOrderStore()
	store.AddOrder(testutil.NewTestOrder("order-1", order.StatusPending, 150_00, "HKD"))

	r := newReconciler(store)

	outcome, err := r.HandleReturn(ctx, service.ReturnRequest{
		OrderID: "order-1",
		Status:  "paid",
		Key:     "txn_abc123",
		ID:      "txn_abc123",
		Amount:  "150.00",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Settled {
		t.Error("expected return callback to settle the order")
	}
	if got := store.Metadata("order-1", order.MetaOrderID); got != "order-1" {
		t.Errorf("expected order id metadata, got %q", got)
	}
	if got := store.Metadata("order-1", order.MetaPaymentStatus); got != "paid" {
		t.Errorf("expected payment status metadata paid, got %q", got)
	}
	if got := store.Metadata("order-1", order.MetaReturnTxnID); got != "txn_abc123" {
		t.Errorf("expected return transaction id metadata, got %q", got)
	}
	if got := store.Metadata("order-1", order.MetaTransactionID); got != "txn_abc123" {
		t.Errorf("expected settle transaction id metadata, got %q", got)
	}
}

func TestHandleReturn_NonPaid_RecordsFailure(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMockOrderStore()
	store.AddOrder(testutil.NewTestOrder("order-1", order.StatusPending, 150_00, "HKD"))

	r := newReconciler(store)

	outcome, err := r.HandleReturn(ctx, service.ReturnRequest{
		OrderID: "order-1",
		Status:  "expired",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Settled {
		t.Error("non-paid return must not settle")
	}
	if got := store.Metadata("order-1", order.MetaPaymentStatus); got != "expired" {
		t.Errorf("expected payment status metadata recorded, got %q", got)
	}
	if store.Status("order-1") != order.StatusPending {
		t.Errorf("expected status unchanged, got %s", store.Status("order-1"))
	}
	notes := store.Notes("order-1")
	if len(notes) != 1 || !strings.Contains(notes[0], "payment failed") {
		t.Errorf("expected a payment failed note, got %v", notes)
	}
}

func TestHandleReturn_PaidWithoutKey_DoesNotSettle(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMockOrderStore()
	store.AddOrder(testutil.NewTestOrder("order-1", order.StatusPending, 150_00, "HKD"))

	r := newReconciler(store)

	outcome, err := r.HandleReturn(ctx, service.ReturnRequest{
		OrderID: "order-1",
		Status:  "paid",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Settled {
		t.Error("paid return without a transaction key must not settle")
	}
	if got := store.Metadata("order-1", order.MetaTransactionID); got != "" {
		t.Errorf("expected no settle transaction id, got %q", got)
	}
}

func TestHandleReturn_MissingOrderID(t *testing.T) {
	ctx := context.Background()
	r := newReconciler(testutil.NewMockOrderStore())

	_, err := r.HandleReturn(ctx, service.ReturnRequest{Status: "paid", Key: "txn_1"})
	var validationErr *domainErrors.ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestConcurrentSignals_SettleExactlyOnce(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMockOrderStore()
	store.AddOrder(testutil.NewTestOrder("order-1", order.StatusPending, 150_00, "HKD"))

	r := newReconciler(store)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				r.HandleNotify(ctx, paidNotify("order-1"))
			} else {
				r.HandleReturn(ctx, service.ReturnRequest{
					OrderID: "order-1",
					Status:  "paid",
					Key:     "txn_abc123",
					ID:      "txn_abc123",
				})
			}
		}(i)
	}
	wg.Wait()

	if store.Status("order-1") != order.StatusPaid {
		t.Errorf("expected status paid, got %s", store.Status("order-1"))
	}
	if store.EmptyCartCount("order-1") != 1 {
		t.Errorf("expected cart emptied exactly once, got %d", store.EmptyCartCount("order-1"))
	}
}
