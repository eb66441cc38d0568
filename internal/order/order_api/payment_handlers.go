package order_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"ms-checkout/internal/auth"
	"ms-checkout/internal/models"
	"ms-checkout/internal/order"
	"ms-checkout/internal/utils"

	"github.com/go-chi/chi/v5"
)

const maxNotificationBytes = 1 << 20

// PaymentWebhook handles gateway payment notifications.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("API", "PaymentWebhook: received payment notification")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxNotificationBytes))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("PaymentWebhook: failed to read body: %v", err))
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	n, raw, err := decodeNotification(body)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("PaymentWebhook: malformed JSON: %v", err))
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ack, err := h.Orders.HandlePaymentNotification(r.Context(), n, raw)
	if err != nil {
		var webhookErr *order.WebhookError
		if errors.As(err, &webhookErr) {
			h.Logger.Info("API", fmt.Sprintf("PaymentWebhook: handling webhook error category=%s, status=%d",
				webhookErr.Category, webhookErr.StatusCode))
			utils.WriteError(w, webhookErr.StatusCode, webhookErr.PublicError)
			return
		}

		h.Logger.Error("API", fmt.Sprintf("PaymentWebhook: failed to process notification: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to process notification")
		return
	}

	utils.WriteJSON(w, http.StatusOK, ack)
	h.Logger.Info("API", fmt.Sprintf("PaymentWebhook: acknowledged %s with %s", ack.BillNo, ack.ResponseCode))
}

// decodeNotification returns the typed notification and the body as received,
// which is what the payment log stores.
func decodeNotification(body []byte) (models.PaymentNotification, map[string]interface{}, error) {
	var n models.PaymentNotification
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return n, nil, err
	}
	if raw == nil {
		return n, nil, errors.New("empty notification")
	}
	if err := json.Unmarshal(body, &n); err != nil {
		return n, nil, err
	}
	return n, raw, nil
}

// WebhookHealth answers GET on the webhook path so the gateway can check it is reachable.
func (h *Handler) WebhookHealth(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"message":   "Payment notification endpoint is up",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ConfirmPayment handles POST /admin/orders/{ref}/confirm for manual channels.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	admin := auth.UserID(r.Context())
	h.Logger.Info("API", fmt.Sprintf("ConfirmPayment: %s by %s", ref, admin))

	changed, result, err := h.Orders.ConfirmManualPayment(r.Context(), ref, admin)
	if err != nil {
		if errors.Is(err, order.ErrNotManualPayment) {
			utils.WriteError(w, http.StatusBadRequest, "Only manual payment orders can be confirmed")
			return
		}
		h.writeLookupError(w, "ConfirmPayment", ref, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"alreadyPaid":    !changed,
		"ticketsCreated": result.TicketsCreated,
		"ticketsFailed":  result.Failed,
		"orderReference": ref,
	})
}

// RetryIssuance handles POST /admin/orders/{ref}/issue-tickets.
func (h *Handler) RetryIssuance(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	h.Logger.Info("API", fmt.Sprintf("RetryIssuance: %s", ref))

	result, err := h.Orders.RetryIssuance(r.Context(), ref)
	if err != nil {
		h.writeLookupError(w, "RetryIssuance", ref, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"orderReference": ref,
		"result":         result,
	})
}
