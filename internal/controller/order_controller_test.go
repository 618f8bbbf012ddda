package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/merchantkit/unionpay-bridge/internal/domain/order"
	"github.com/merchantkit/unionpay-bridge/internal/gateway"
	"github.com/merchantkit/unionpay-bridge/internal/infrastructure/observability"
	"github.com/merchantkit/unionpay-bridge/internal/service"
	"github.com/merchantkit/unionpay-bridge/internal/testutil"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func newOrderRouter(store *testutil.MockOrderStore, mock *gateway.MockGateway) *chi.Mux {
	factory := gateway.NewFactory(mock)
	locker := service.NewMemoryLocker()
	initiator := service.NewInitiator(store, factory, service.InitiatorConfig{
		StoreID:   "store-1",
		ReturnURL: "https://shop.example/gateway/unionpay/return",
		NotifyURL: "https://shop.example/gateway/unionpay/notify",
	}, zerolog.Nop())
	refunds := service.NewRefundProcessor(store, factory, locker, nil, "yedpay", zerolog.Nop())
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	h := NewOrderController(initiator, refunds, metrics)

	r := chi.NewRouter()
	r.Post("/api/v1/orders/{orderID}/checkout", h.Checkout)
	r.Post("/api/v1/orders/{orderID}/refund", h.Refund)
	return r
}

func TestCheckout_Success(t *testing.T) {
	store := testutil.NewMockOrderStore()
	store.AddOrder(testutil.NewTestOrder("order-1", order.StatusPending, 150_00, "HKD"))
	router := newOrderRouter(store, gateway.NewMockGateway("yedpay"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/order-1/checkout", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp CheckoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Result != "success" || resp.Redirect == "" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestCheckout_UnsupportedCurrency(t *testing.T) {
	store := testutil.NewMockOrderStore()
	store.AddOrder(testutil.NewTestOrder("order-1", order.StatusPending, 150_00, "USD"))
	router := newOrderRouter(store, gateway.NewMockGateway("yedpay"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/order-1/checkout", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != "currency_unsupported" {
		t.Errorf("expected currency_unsupported, got %q", resp.Code)
	}
}

func TestCheckout_OrderNotFound(t *testing.T) {
	router := newOrderRouter(testutil.NewMockOrderStore(), gateway.NewMockGateway("yedpay"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/missing/checkout", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func postRefund(router http.Handler, orderID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID+"/refund", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRefund_Endpoint_Success(t *testing.T) {
	store := testutil.NewMockOrderStore()
	store.AddOrder(testutil.NewTestOrder("order-1", order.StatusPaid, 150_00, "HKD"))
	store.SetMetadata(context.Background(), "order-1", order.MetaTransactionID, "txn_orig")
	router := newOrderRouter(store, gateway.NewMockGateway("yedpay"))

	rec := postRefund(router, "order-1", `{"amount": 150.00, "reason": "customer request"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp RefundResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "refunded" || resp.RefundID == "" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if store.Status("order-1") != order.StatusRefunded {
		t.Errorf("expected order refunded, got %s", store.Status("order-1"))
	}
}

func TestRefund_Endpoint_AmountMismatch(t *testing.T) {
	store := testutil.NewMockOrderStore()
	store.AddOrder(testutil.NewTestOrder("order-1", order.StatusPaid, 150_00, "HKD"))
	store.SetMetadata(context.Background(), "order-1", order.MetaTransactionID, "txn_orig")
	router := newOrderRouter(store, gateway.NewMockGateway("yedpay"))

	rec := postRefund(router, "order-1", `{"amount": 100.00}`)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != "illegal_amount" {
		t.Errorf("expected illegal_amount, got %q", resp.Code)
	}
}

func TestRefund_Endpoint_InvalidBody(t *testing.T) {
	store := testutil.NewMockOrderStore()
	store.AddOrder(testutil.NewTestOrder("order-1", order.StatusPaid, 150_00, "HKD"))
	router := newOrderRouter(store, gateway.NewMockGateway("yedpay"))

	tests := []struct {
		name string
		body string
	}{
		{"not json", "{nope"},
		{"missing amount", `{}`},
		{"negative amount", `{"amount": -5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postRefund(router, "order-1", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}
