package controller

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/url"

	domainErrors "github.com/merchantkit/unionpay-bridge/internal/domain/errors"
	"github.com/merchantkit/unionpay-bridge/internal/infrastructure/observability"
	"github.com/merchantkit/unionpay-bridge/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// signatureHeader carries the hex HMAC-SHA256 of the raw notify body when
// webhook signing is enabled.
const signatureHeader = "X-Yedpay-Signature"

// CallbackController terminates the provider's two inbound channels: the
// server-to-server notification and the browser return redirect.
type CallbackController struct {
	reconciler *service.Reconciler
	metrics    *observability.Metrics
	// webhookSecret enables signature verification on notify when non-empty.
	webhookSecret string
}

func NewCallbackController(reconciler *service.Reconciler, metrics *observability.Metrics, webhookSecret string) *CallbackController {
	return &CallbackController{
		reconciler:    reconciler,
		metrics:       metrics,
		webhookSecret: webhookSecret,
	}
}

// Notify handles POST /gateway/unionpay/notify. The provider expects a bare
// "success" body; anything else is treated as delivery failure and retried.
func (h *CallbackController) Notify(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.rejectNotify(w, "read_error")
		return
	}

	if h.webhookSecret != "" && !h.verifySignature(body, r.Header.Get(signatureHeader)) {
		log.Warn().Msg("notify signature mismatch")
		h.rejectNotify(w, "bad_signature")
		return
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		h.rejectNotify(w, "bad_form")
		return
	}

	outcome, err := h.reconciler.HandleNotify(r.Context(), service.NotifyRequest{
		Status:          form.Get("status"),
		ExtraParameters: form.Get("extra_parameters"),
		ID:              form.Get("id"),
		CompanyID:       form.Get("company_id"),
		BarcodeID:       form.Get("barcode_id"),
		Amount:          form.Get("amount"),
		Currency:        form.Get("currency"),
		Charge:          form.Get("charge"),
		Forex:           form.Get("forex"),
		PaidAt:          form.Get("paid_at"),
		TransactionRef:  form.Get("transaction_id"),
		CreatedAt:       form.Get("created_at"),
	})
	if err != nil {
		var validationErr *domainErrors.ValidationError
		switch {
		case errors.As(err, &validationErr):
			h.rejectNotify(w, "invalid")
		case errors.Is(err, domainErrors.ErrOrderNotFound):
			h.metrics.NotificationsTotal.WithLabelValues("notify", "unknown_order").Inc()
			http.Error(w, "order not found", http.StatusNotFound)
		default:
			log.Error().Err(err).Msg("notify handling failed")
			h.metrics.NotificationsTotal.WithLabelValues("notify", "error").Inc()
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	if outcome.Settled {
		h.metrics.SettlementsTotal.Inc()
		h.metrics.NotificationsTotal.WithLabelValues("notify", "settled").Inc()
	} else {
		h.metrics.NotificationsTotal.WithLabelValues("notify", "ignored").Inc()
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("success"))
}

// Return handles GET /gateway/unionpay/return/{orderID}. Parameters arrive
// on the query string of the provider redirect.
func (h *CallbackController) Return(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	outcome, err := h.reconciler.HandleReturn(r.Context(), service.ReturnRequest{
		OrderID:         chi.URLParam(r, "orderID"),
		Status:          q.Get("status"),
		Key:             q.Get("key"),
		ID:              q.Get("id"),
		CompanyID:       q.Get("company_id"),
		BarcodeID:       q.Get("barcode_id"),
		Amount:          q.Get("amount"),
		Currency:        q.Get("currency"),
		Charge:          q.Get("charge"),
		Forex:           q.Get("forex"),
		PaidAt:          q.Get("paid_at"),
		TransactionRef:  q.Get("transaction_id"),
		ExtraParameters: q.Get("extra_parameters"),
		CreatedAt:       q.Get("created_at"),
	})
	if err != nil {
		h.metrics.NotificationsTotal.WithLabelValues("return", "error").Inc()
		writeError(w, err)
		return
	}

	if outcome.Settled {
		h.metrics.SettlementsTotal.Inc()
		h.metrics.NotificationsTotal.WithLabelValues("return", "settled").Inc()
	} else {
		h.metrics.NotificationsTotal.WithLabelValues("return", "ignored").Inc()
	}

	writeJSON(w, http.StatusOK, ReturnResponse{
		OrderID: outcome.OrderID,
		Status:  string(outcome.Status),
		Settled: outcome.Settled,
	})
}

func (h *CallbackController) rejectNotify(w http.ResponseWriter, reason string) {
	h.metrics.NotificationsTotal.WithLabelValues("notify", reason).Inc()
	http.Error(w, "UnionPay Request Failure", http.StatusForbidden)
}

func (h *CallbackController) verifySignature(body []byte, got string) bool {
	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(got))
}
