package gateway

import (
	"context"
	"time"

	"github.com/merchantkit/unionpay-bridge/internal/infrastructure/observability"
)

// InstrumentedGateway wraps a Gateway and records a request counter and a
// duration histogram per operation. Outcomes: "success", "rejected" for an
// explicit provider rejection, "error" for transport failures.
type InstrumentedGateway struct {
	next    Gateway
	metrics *observability.Metrics
}

func NewInstrumentedGateway(next Gateway, metrics *observability.Metrics) *InstrumentedGateway {
	return &InstrumentedGateway{next: next, metrics: metrics}
}

func (g *InstrumentedGateway) Name() string { return g.next.Name() }

func (g *InstrumentedGateway) CreateTransaction(ctx context.Context, req CreateRequest) (*Result, error) {
	return g.observe("create", func() (*Result, error) {
		return g.next.CreateTransaction(ctx, req)
	})
}

func (g *InstrumentedGateway) Refund(ctx context.Context, transactionID string) (*Result, error) {
	return g.observe("refund", func() (*Result, error) {
		return g.next.Refund(ctx, transactionID)
	})
}

func (g *InstrumentedGateway) observe(operation string, fn func() (*Result, error)) (*Result, error) {
	start := time.Now()
	result, err := fn()
	g.metrics.GatewayRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
	case !result.Success:
		outcome = "rejected"
	}
	g.metrics.GatewayRequestsTotal.WithLabelValues(operation, outcome).Inc()

	return result, err
}
