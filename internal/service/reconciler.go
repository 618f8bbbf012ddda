package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	domainErrors "github.com/merchantkit/unionpay-bridge/internal/domain/errors"
	"github.com/merchantkit/unionpay-bridge/internal/domain/order"
	"github.com/rs/zerolog"
)

// StatusPaid is the provider-side settlement status that fires the state
// machine; every other incoming status only produces an audit note.
const StatusPaid = "paid"

// NotifyRequest is the explicit form of the provider's asynchronous
// server-to-server notification. Field names mirror the wire parameters.
type NotifyRequest struct {
	Status          string
	ExtraParameters string
	ID              string // provider transaction id ("id")
	CompanyID       string
	BarcodeID       string
	Amount          string
	Currency        string
	Charge          string
	Forex           string
	PaidAt          string
	TransactionRef  string // provider "transaction_id" reference
	CreatedAt       string
}

// ReturnRequest is the explicit form of the browser return callback. The
// order id arrives through the redirect context, not the payload.
type ReturnRequest struct {
	OrderID         string
	Status          string
	Key             string // provider transaction id carried on the redirect
	ID              string
	CompanyID       string
	BarcodeID       string
	Amount          string
	Currency        string
	Charge          string
	Forex           string
	PaidAt          string
	TransactionRef  string
	ExtraParameters string
	CreatedAt       string
}

// SettlementOutcome reports what a reconciliation pass did.
type SettlementOutcome struct {
	OrderID string
	Status  order.Status
	// Settled is true only when this pass transitioned the order to paid.
	// Replays and non-paid signals leave it false.
	Settled bool
}

// Reconciler processes inbound notifications and return callbacks against
// current order state. Both entry points converge on the same settlement
// routine, which runs inside the per-order critical section so concurrent
// signals for one order serialize.
type Reconciler struct {
	store  order.Store
	locker OrderLocker
	tx     TxRunner
	logger zerolog.Logger
}

func NewReconciler(store order.Store, locker OrderLocker, tx TxRunner, logger zerolog.Logger) *Reconciler {
	if tx == nil {
		tx = NopTx{}
	}
	return &Reconciler{store: store, locker: locker, tx: tx, logger: logger}
}

// HandleNotify reconciles an asynchronous provider notification. Missing
// required parameters are rejected before any order lookup.
func (r *Reconciler) HandleNotify(ctx context.Context, req NotifyRequest) (*SettlementOutcome, error) {
	if req.Status == "" {
		return nil, domainErrors.NewValidationError("status", "parameter required")
	}
	if req.ExtraParameters == "" {
		return nil, domainErrors.NewValidationError("extra_parameters", "parameter required")
	}

	var extra extraParameters
	if err := json.Unmarshal([]byte(req.ExtraParameters), &extra); err != nil {
		return nil, domainErrors.NewValidationError("extra_parameters", "invalid JSON: "+err.Error())
	}
	if extra.OrderID == "" {
		return nil, domainErrors.NewValidationError("extra_parameters", "missing order_id")
	}

	if req.Status != StatusPaid {
		return r.noteFailure(ctx, extra.OrderID, req.Status)
	}

	return r.settle(ctx, extra.OrderID, req.ID, transactionInformation(
		req.ID, req.CompanyID, req.BarcodeID, req.Status, req.Amount, req.Currency,
		req.Charge, req.Forex, req.PaidAt, req.TransactionRef, req.ExtraParameters, req.CreatedAt,
	))
}

// HandleReturn reconciles a browser return callback. The payment status and
// order id echo are persisted as metadata regardless of outcome.
func (r *Reconciler) HandleReturn(ctx context.Context, req ReturnRequest) (*SettlementOutcome, error) {
	if req.OrderID == "" {
		return nil, domainErrors.NewValidationError("order_id", "parameter required")
	}

	outcome := &SettlementOutcome{OrderID: req.OrderID}
	err := r.locker.WithOrderLock(ctx, req.OrderID, func(ctx context.Context) error {
		ord, err := r.store.GetOrder(ctx, req.OrderID)
		if err != nil {
			return err
		}

		if err := r.store.SetMetadata(ctx, ord.ID, order.MetaOrderID, ord.ID); err != nil {
			return err
		}
		if err := r.store.SetMetadata(ctx, ord.ID, order.MetaPaymentStatus, req.Status); err != nil {
			return err
		}

		if req.Status == StatusPaid && strings.TrimSpace(req.Key) != "" {
			if err := r.store.SetMetadata(ctx, ord.ID, order.MetaReturnTxnID, req.Key); err != nil {
				return err
			}
			completedNote := fmt.Sprintf(
				"UnionPay API payment completed.\nUnionPay Transaction ID: %s\nUnionPay Order Id: %s",
				req.Key, ord.ID,
			)
			if err := r.store.AddNote(ctx, ord.ID, completedNote); err != nil {
				return err
			}

			audit := transactionInformation(
				req.ID, req.CompanyID, req.BarcodeID, req.Status, req.Amount, req.Currency,
				req.Charge, req.Forex, req.PaidAt, req.TransactionRef, req.ExtraParameters, req.CreatedAt,
			)
			settled, status, err := r.settleLocked(ctx, ord, req.ID, audit)
			if err != nil {
				return err
			}
			outcome.Settled = settled
			outcome.Status = status
			return nil
		}

		if err := r.store.AddNote(ctx, ord.ID, failureNote(req.Status)); err != nil {
			return err
		}
		outcome.Status = ord.Status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// settle acquires the order's critical section and applies the settlement
// state machine.
func (r *Reconciler) settle(ctx context.Context, orderID, transactionID, auditNote string) (*SettlementOutcome, error) {
	outcome := &SettlementOutcome{OrderID: orderID}
	err := r.locker.WithOrderLock(ctx, orderID, func(ctx context.Context) error {
		ord, err := r.store.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		settled, status, err := r.settleLocked(ctx, ord, transactionID, auditNote)
		if err != nil {
			return err
		}
		outcome.Settled = settled
		outcome.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// settleLocked runs the settlement state machine inside one transaction.
// Callers must hold the order lock.
//
// processing is downgraded to pending first (a provider quirk blocks
// completion otherwise). Only a pending order settles: transaction id
// metadata, audit note, paid transition, cart clear. Any other state is a
// no-op, which makes replayed signals idempotent.
func (r *Reconciler) settleLocked(ctx context.Context, ord *order.Order, transactionID, auditNote string) (bool, order.Status, error) {
	var settled bool
	status := ord.Status

	err := r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if ord.Status == order.StatusProcessing {
			if err := r.store.UpdateStatus(ctx, ord.ID, order.StatusPending); err != nil {
				return err
			}
			ord.Status = order.StatusPending
			status = ord.Status
		}

		if ord.Status != order.StatusPending {
			r.logger.Debug().
				Str("order_id", ord.ID).
				Str("status", string(ord.Status)).
				Msg("settlement signal ignored for non-pending order")
			return nil
		}

		if err := r.store.SetMetadata(ctx, ord.ID, order.MetaTransactionID, transactionID); err != nil {
			return err
		}
		if err := r.store.AddNote(ctx, ord.ID, auditNote); err != nil {
			return err
		}
		if err := r.store.UpdateStatus(ctx, ord.ID, order.StatusPaid); err != nil {
			return err
		}
		if err := r.store.EmptyCart(ctx, ord.ID); err != nil {
			return err
		}

		settled = true
		status = order.StatusPaid
		return nil
	})
	if err != nil {
		return false, status, err
	}

	if settled {
		r.logger.Info().
			Str("order_id", ord.ID).
			Str("transaction_id", transactionID).
			Msg("order settled")
	}
	return settled, status, nil
}

// noteFailure records a non-paid terminal status on the order. Both entry
// points share this policy; the order status stays untouched.
func (r *Reconciler) noteFailure(ctx context.Context, orderID, status string) (*SettlementOutcome, error) {
	outcome := &SettlementOutcome{OrderID: orderID}
	err := r.locker.WithOrderLock(ctx, orderID, func(ctx context.Context) error {
		ord, err := r.store.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		outcome.Status = ord.Status
		return r.store.AddNote(ctx, ord.ID, failureNote(status))
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func failureNote(status string) string {
	if status == "" {
		return "UnionPay API payment failed."
	}
	return fmt.Sprintf("UnionPay API payment failed (status: %s).", status)
}

// transactionInformation formats the full provider field set for the
// settlement audit note.
func transactionInformation(id, companyID, barcodeID, status, amount, currency, charge, forex, paidAt, transactionRef, extraParameters, createdAt string) string {
	return fmt.Sprintf(
		"Yedpay Transaction Information:\n"+
			"Yedpay Transaction ID: %s\n"+
			"Company ID: %s\n"+
			"Barcode ID: %s\n"+
			"Status: %s\n"+
			"Amount: %s\n"+
			"Currency: %s\n"+
			"Charge: %s\n"+
			"Forex: %s\n"+
			"Paid Time: %s\n"+
			"Transaction Reference: %s\n"+
			"Extra Parameters: %s\n"+
			"Created Time: %s",
		id, companyID, barcodeID, status, amount, currency,
		charge, forex, paidAt, transactionRef, extraParameters, createdAt,
	)
}
