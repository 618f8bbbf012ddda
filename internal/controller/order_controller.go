package controller

import (
	"net/http"

	"github.com/merchantkit/unionpay-bridge/internal/infrastructure/observability"
	"github.com/merchantkit/unionpay-bridge/internal/service"

	"github.com/go-chi/chi/v5"
)

// OrderController handles the merchant-facing order operations: checkout
// initiation and refunds.
type OrderController struct {
	initiator *service.Initiator
	refunds   *service.RefundProcessor
	metrics   *observability.Metrics
}

func NewOrderController(initiator *service.Initiator, refunds *service.RefundProcessor, metrics *observability.Metrics) *OrderController {
	return &OrderController{initiator: initiator, refunds: refunds, metrics: metrics}
}

// Checkout handles POST /api/v1/orders/{orderID}/checkout
func (h *OrderController) Checkout(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	result, err := h.initiator.Initiate(r.Context(), orderID)
	if err != nil {
		h.metrics.CheckoutsTotal.WithLabelValues("error").Inc()
		writeError(w, err)
		return
	}

	h.metrics.CheckoutsTotal.WithLabelValues(result.Result).Inc()
	writeJSON(w, http.StatusOK, CheckoutResponse{
		Result:   result.Result,
		Redirect: result.Redirect,
		Notice:   result.Notice,
	})
}

// Refund handles POST /api/v1/orders/{orderID}/refund
func (h *OrderController) Refund(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req RefundRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.refunds.Refund(r.Context(), orderID, floatToCents(req.Amount), req.Reason)
	if err != nil {
		h.metrics.RefundsTotal.WithLabelValues("error").Inc()
		writeError(w, err)
		return
	}

	h.metrics.RefundsTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, RefundResponse{
		OrderID:    result.OrderID,
		RefundID:   result.RefundID,
		RefundedAt: result.RefundedAt,
		Status:     "refunded",
	})
}
