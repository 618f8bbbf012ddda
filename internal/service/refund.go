package service

import (
	"context"
	"fmt"

	domainErrors "github.com/merchantkit/unionpay-bridge/internal/domain/errors"
	"github.com/merchantkit/unionpay-bridge/internal/domain/order"
	"github.com/merchantkit/unionpay-bridge/internal/gateway"
	"github.com/rs/zerolog"
)

const refundFailedNote = "UnionPay Refund failed, please contact Yedpay."

// RefundProcessor issues full refunds against the remote gateway. Only
// full-amount refunds are supported; the amount precondition is checked
// locally before any provider call.
type RefundProcessor struct {
	store       order.Store
	factory     *gateway.Factory
	locker      OrderLocker
	tx          TxRunner
	gatewayName string
	logger      zerolog.Logger
}

func NewRefundProcessor(store order.Store, factory *gateway.Factory, locker OrderLocker, tx TxRunner, gatewayName string, logger zerolog.Logger) *RefundProcessor {
	if tx == nil {
		tx = NopTx{}
	}
	if gatewayName == "" {
		gatewayName = "yedpay"
	}
	return &RefundProcessor{
		store:       store,
		factory:     factory,
		locker:      locker,
		tx:          tx,
		gatewayName: gatewayName,
		logger:      logger,
	}
}

// RefundResult reports a confirmed refund.
type RefundResult struct {
	OrderID string
	// RefundID is the provider's id for the refund itself. It replaces the
	// original transaction id in the order metadata.
	RefundID   string
	RefundedAt string
}

// Refund refunds the order in full. The whole sequence runs inside the
// order's critical section so a refund cannot interleave with a late
// settlement signal.
func (p *RefundProcessor) Refund(ctx context.Context, orderID string, amountCents int64, reason string) (*RefundResult, error) {
	var result *RefundResult
	err := p.locker.WithOrderLock(ctx, orderID, func(ctx context.Context) error {
		r, err := p.refundLocked(ctx, orderID, amountCents, reason)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *RefundProcessor) refundLocked(ctx context.Context, orderID string, amountCents int64, reason string) (*RefundResult, error) {
	ord, err := p.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Preconditions are checked before touching the provider; a request that
	// cannot succeed must not spend a gateway call.
	if amountCents != ord.TotalCents {
		return nil, fmt.Errorf("refund of %d cents against total %d: %w",
			amountCents, ord.TotalCents, domainErrors.ErrIllegalAmount)
	}
	if ord.Status == order.StatusRefunded {
		return nil, domainErrors.ErrAlreadyRefunded
	}

	transactionID, err := p.store.GetMetadata(ctx, ord.ID, order.MetaTransactionID)
	if err != nil {
		return nil, err
	}
	if transactionID == "" {
		return nil, domainErrors.ErrTransactionIDMissing
	}

	g, breaker, err := p.factory.Get(p.gatewayName)
	if err != nil {
		return nil, err
	}

	result, err := breaker.Execute(func() (*gateway.Result, error) {
		return g.Refund(ctx, transactionID)
	})
	if err != nil {
		p.logger.Error().Err(err).
			Str("order_id", ord.ID).
			Str("transaction_id", transactionID).
			Msg("refund request failed")
		if noteErr := p.store.AddNote(ctx, ord.ID, refundFailedNote); noteErr != nil {
			p.logger.Error().Err(noteErr).Str("order_id", ord.ID).Msg("failed to record refund failure note")
		}
		return nil, fmt.Errorf("refund transaction %s: %w", transactionID, domainErrors.ErrGatewayUnreachable)
	}
	if !result.Success {
		p.logger.Error().
			Str("order_id", ord.ID).
			Str("transaction_id", transactionID).
			Str("error_code", result.ErrorCode).
			Str("error_message", result.ErrorMessage).
			Msg("refund rejected by gateway")
		note := fmt.Sprintf("UnionPay Refund failed.\nError Code: %s\nError Message: %s",
			result.ErrorCode, result.ErrorMessage)
		if noteErr := p.store.AddNote(ctx, ord.ID, note); noteErr != nil {
			p.logger.Error().Err(noteErr).Str("order_id", ord.ID).Msg("failed to record refund failure note")
		}
		return nil, fmt.Errorf("%w: %s %s",
			domainErrors.ErrProviderError, result.ErrorCode, result.ErrorMessage)
	}

	if result.Data.Status != "refunded" {
		if noteErr := p.store.AddNote(ctx, ord.ID, refundFailedNote); noteErr != nil {
			p.logger.Error().Err(noteErr).Str("order_id", ord.ID).Msg("failed to record refund failure note")
		}
		return nil, fmt.Errorf("refund status %q: %w",
			result.Data.Status, domainErrors.ErrRefundNotConfirmed)
	}

	// The refund's own id replaces the original transaction id so the order
	// carries the last provider-side operation applied to it.
	err = p.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := p.store.SetMetadata(ctx, ord.ID, order.MetaTransactionID, result.Data.ID); err != nil {
			return err
		}
		if err := p.store.AddNote(ctx, ord.ID, refundInformation(result.Data, reason)); err != nil {
			return err
		}
		return p.store.UpdateStatus(ctx, ord.ID, order.StatusRefunded)
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info().
		Str("order_id", ord.ID).
		Str("refund_id", result.Data.ID).
		Msg("order refunded")

	return &RefundResult{
		OrderID:    ord.ID,
		RefundID:   result.Data.ID,
		RefundedAt: result.Data.RefundedAt,
	}, nil
}

// refundInformation formats the full provider field set for the refund
// audit note. The fields mirror the settlement note plus the refund
// timestamp.
func refundInformation(d gateway.TransactionData, reason string) string {
	note := fmt.Sprintf(
		"Yedpay Refund Information:\n"+
			"Yedpay Transaction ID: %s\n"+
			"Company ID: %s\n"+
			"Barcode ID: %s\n"+
			"Status: %s\n"+
			"Amount: %s\n"+
			"Currency: %s\n"+
			"Charge: %s\n"+
			"Forex: %s\n"+
			"Paid Time: %s\n"+
			"Refunded Time: %s\n"+
			"Transaction Reference: %s\n"+
			"Extra Parameters: %s\n"+
			"Created Time: %s",
		d.ID, d.CompanyID, d.BarcodeID, d.Status, d.Amount, d.Currency,
		d.Charge, d.Forex, d.PaidAt, d.RefundedAt, d.TransactionID,
		d.ExtraParameters, d.CreatedAt,
	)
	if reason != "" {
		note += "\nRefund Reason: " + reason
	}
	return note
}
