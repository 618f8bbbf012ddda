package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/merchantkit/unionpay-bridge/internal/infrastructure/observability"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstrumentedGateway_RecordsOutcomes(t *testing.T) {
	ctx := context.Background()
	m := observability.NewMetrics("test", prometheus.NewRegistry())
	mock := NewMockGateway("yedpay")
	g := NewInstrumentedGateway(mock, m)

	if _, err := g.CreateTransaction(ctx, CreateRequest{StoreID: "store-1", AmountCents: 150_00}); err != nil {
		t.Fatalf("create: %v", err)
	}

	mock.RefundFunc = func(ctx context.Context, transactionID string) (*Result, error) {
		return &Result{Success: false, ErrorCode: "422", ErrorMessage: "rejected"}, nil
	}
	if _, err := g.Refund(ctx, "txn_1"); err != nil {
		t.Fatalf("rejected refund must not be a transport error: %v", err)
	}

	mock.RefundFunc = func(ctx context.Context, transactionID string) (*Result, error) {
		return nil, errors.New("connection reset")
	}
	if _, err := g.Refund(ctx, "txn_1"); err == nil {
		t.Fatal("expected transport error")
	}

	tests := []struct {
		operation string
		outcome   string
		want      float64
	}{
		{"create", "success", 1},
		{"refund", "rejected", 1},
		{"refund", "error", 1},
	}
	for _, tt := range tests {
		got := promtestutil.ToFloat64(m.GatewayRequestsTotal.WithLabelValues(tt.operation, tt.outcome))
		if got != tt.want {
			t.Errorf("requests{%s,%s}: expected %v, got %v", tt.operation, tt.outcome, tt.want, got)
		}
	}
	if n := promtestutil.CollectAndCount(m.GatewayRequestDuration); n != 2 {
		t.Errorf("expected duration series for 2 operations, got %d", n)
	}
}

func TestInstrumentedGateway_KeepsName(t *testing.T) {
	m := observability.NewMetrics("test", prometheus.NewRegistry())
	g := NewInstrumentedGateway(NewMockGateway("yedpay"), m)
	if g.Name() != "yedpay" {
		t.Errorf("expected wrapped name yedpay, got %s", g.Name())
	}
}
