package gateway

import (
	"fmt"
	"time"

	domainErrors "github.com/merchantkit/unionpay-bridge/internal/domain/errors"
	"github.com/sony/gobreaker/v2"
)

// Factory holds registered gateways and a circuit breaker per gateway.
type Factory struct {
	gateways map[string]Gateway
	breakers map[string]*gobreaker.CircuitBreaker[*Result]
}

// NewFactory registers the given gateways. With no arguments it registers a
// staging mock, which keeps tests and local runs provider-free.
func NewFactory(gateways ...Gateway) *Factory {
	f := &Factory{
		gateways: make(map[string]Gateway),
		breakers: make(map[string]*gobreaker.CircuitBreaker[*Result]),
	}

	if len(gateways) == 0 {
		f.Register(NewMockGateway("yedpay"))
	} else {
		for _, g := range gateways {
			f.Register(g)
		}
	}

	return f
}

// Register adds a gateway with a dedicated circuit breaker.
func (f *Factory) Register(g Gateway) {
	f.gateways[g.Name()] = g
	f.breakers[g.Name()] = gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name:        g.Name(),
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
	})
}

// Get returns the named gateway and its breaker.
func (f *Factory) Get(name string) (Gateway, *gobreaker.CircuitBreaker[*Result], error) {
	g, ok := f.gateways[name]
	if !ok {
		return nil, nil, fmt.Errorf("unknown gateway %q: %w", name, domainErrors.ErrGatewayNotFound)
	}
	return g, f.breakers[name], nil
}
