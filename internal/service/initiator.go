package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	domainErrors "github.com/merchantkit/unionpay-bridge/internal/domain/errors"
	"github.com/merchantkit/unionpay-bridge/internal/domain/order"
	"github.com/merchantkit/unionpay-bridge/internal/gateway"
	"github.com/rs/zerolog"
)

const (
	checkoutFailedNote   = "UnionPay API payment failed. Couldn't connect to gateway server."
	checkoutFailedNotice = "No response from payment gateway server. Try again later or contact the site administrator."
)

// InitiatorConfig carries the merchant credentials and callback endpoints
// used when pre-creating transactions.
type InitiatorConfig struct {
	GatewayName string
	StoreID     string
	// ReturnURL is the browser redirect target; the order id is appended
	// as a path segment.
	ReturnURL string
	NotifyURL string
}

// Initiator builds a transaction request from an order, calls the remote
// gateway, and derives either a redirect target or a failure outcome. It
// never mutates order state beyond a failure note; settlement belongs to
// the Reconciler.
type Initiator struct {
	store   order.Store
	factory *gateway.Factory
	cfg     InitiatorConfig
	logger  zerolog.Logger
}

func NewInitiator(store order.Store, factory *gateway.Factory, cfg InitiatorConfig, logger zerolog.Logger) *Initiator {
	if cfg.GatewayName == "" {
		cfg.GatewayName = "yedpay"
	}
	return &Initiator{store: store, factory: factory, cfg: cfg, logger: logger}
}

// RedirectResult is the outcome of a checkout initiation. A failed
// initiation carries a user-visible notice and no redirect; the caller
// falls back to its default flow.
type RedirectResult struct {
	Result   string `json:"result"`
	Redirect string `json:"redirect,omitempty"`
	Notice   string `json:"notice,omitempty"`
}

// extraParameters is the opaque correlation payload round-tripped through
// the provider.
type extraParameters struct {
	OrderID string `json:"order_id"`
}

// Initiate pre-creates a remote transaction for the order and resolves the
// checkout redirect target.
func (i *Initiator) Initiate(ctx context.Context, orderID string) (*RedirectResult, error) {
	ord, err := i.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if ord.TotalCents <= 0 {
		return nil, domainErrors.NewValidationError("total", "must be greater than 0")
	}

	currencyIndex, ok := gateway.CurrencyIndex(ord.Currency)
	if !ok {
		return nil, fmt.Errorf("currency %q: %w", ord.Currency, domainErrors.ErrCurrencyUnsupported)
	}

	extra, err := json.Marshal(extraParameters{OrderID: ord.ID})
	if err != nil {
		return nil, fmt.Errorf("marshal extra parameters: %w", err)
	}

	g, breaker, err := i.factory.Get(i.cfg.GatewayName)
	if err != nil {
		return nil, err
	}

	returnURL := i.returnURLFor(ord.ID)
	result, err := breaker.Execute(func() (*gateway.Result, error) {
		return g.CreateTransaction(ctx, gateway.CreateRequest{
			StoreID:       i.cfg.StoreID,
			AmountCents:   ord.TotalCents,
			CurrencyIndex: currencyIndex,
			GatewayCode:   gateway.UnionPayGatewayCode,
			ReturnURL:     returnURL,
			NotifyURL:     i.cfg.NotifyURL,
			Extra:         string(extra),
		})
	})
	if err != nil {
		return i.failInitiation(ctx, ord, err)
	}
	if !result.Success {
		return i.failInitiation(ctx, ord, fmt.Errorf("%w: %s %s",
			domainErrors.ErrProviderError, result.ErrorCode, result.ErrorMessage))
	}

	// The redirect defaults to the return URL; a link tagged "checkout"
	// replaces it, last match wins.
	redirect := returnURL
	for _, link := range result.Data.Links {
		if link.Rel == "checkout" {
			redirect = link.Href
		}
	}

	return &RedirectResult{Result: "success", Redirect: redirect}, nil
}

// failInitiation records the failure on the order and absorbs the error
// into a user-visible notice; the checkout flow falls back to its default
// outcome rather than raising.
func (i *Initiator) failInitiation(ctx context.Context, ord *order.Order, cause error) (*RedirectResult, error) {
	i.logger.Error().Err(cause).Str("order_id", ord.ID).Msg("checkout initiation failed")

	if err := i.store.AddNote(ctx, ord.ID, checkoutFailedNote); err != nil {
		i.logger.Error().Err(err).Str("order_id", ord.ID).Msg("failed to record checkout failure note")
	}

	return &RedirectResult{Result: "failure", Notice: checkoutFailedNotice}, nil
}

func (i *Initiator) returnURLFor(orderID string) string {
	return strings.TrimRight(i.cfg.ReturnURL, "/") + "/" + orderID
}
