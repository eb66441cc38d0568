package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ms-checkout/internal/models"
	"ms-checkout/internal/order/db"
	"ms-checkout/internal/payment/faspay"
	"ms-checkout/internal/utils"
)

// Gateway payment status codes.
const (
	StatusCodeSuccess   = "2"
	StatusCodeExpired   = "7"
	StatusCodeCancelled = "8"
)

var statusDescriptions = map[string]string{
	"0": "Unprocessed",
	"1": "In Process",
	"2": "Payment Success",
	"3": "Payment Failed",
	"4": "Payment Reversal",
	"5": "No bills found",
	"6": "Unknown",
	"7": "Payment Expired",
	"8": "Payment Cancelled",
	"9": "Unknown",
}

// StatusDescription maps a gateway status code to its human-readable text.
func StatusDescription(code string) string {
	if desc, ok := statusDescriptions[code]; ok {
		return desc
	}
	return "Unknown"
}

// HandlePaymentNotification reconciles one gateway callback. raw is the body as
// received and is stored verbatim in the payment log. A *WebhookError carries
// the HTTP status for rejected notifications.
func (s *OrderService) HandlePaymentNotification(ctx context.Context, n models.PaymentNotification, raw map[string]interface{}) (*models.PaymentNotificationAck, error) {
	ref := n.BillNo
	code := n.PaymentStatusCode
	s.logger.LogWebhook(ref, code, fmt.Sprintf("received trx_id=%s", n.TrxID))

	if !faspay.VerifyCallbackSignature(s.settings.GatewayUserID, s.settings.GatewayPassword, ref, code, n.Signature) {
		s.logger.LogSecurity("INVALID_SIGNATURE", fmt.Sprintf("payment notification for %s rejected", ref))
		s.writePaymentLog(ctx, &models.PaymentLog{
			OrderReference: ref,
			LogType:        models.PaymentLogInvalidSignature,
			RequestPayload: raw,
		})
		s.metrics.WebhookOutcome("invalid_signature")
		return nil, &WebhookError{
			Category:      string(KindSecurity),
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid signature",
			InternalError: fmt.Sprintf("signature mismatch for %s status %s", ref, code),
		}
	}

	order, err := s.DB.GetOrderByReference(ctx, ref)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, s.webhookFailure(ctx, ref, raw, fmt.Errorf("load order: %w", err))
	}
	if order == nil || order.VirtualAccountNumber != n.TrxID {
		s.logger.LogWebhook(ref, code, "order not found or virtual account mismatch")
		s.writePaymentLog(ctx, &models.PaymentLog{
			OrderReference: ref,
			LogType:        models.PaymentLogOrderNotFound,
			RequestPayload: raw,
		})
		s.metrics.WebhookOutcome("order_not_found")
		return nil, &WebhookError{
			Category:      string(KindNotFound),
			StatusCode:    http.StatusNotFound,
			PublicError:   "Order not found or virtual account mismatch",
			InternalError: fmt.Sprintf("no order %s with virtual account %s", ref, n.TrxID),
		}
	}

	outcome := "acknowledged"
	switch code {
	case StatusCodeSuccess:
		changed, result, err := s.markPaid(ctx, order, s.paidAt(n.PaymentDate))
		if err != nil {
			return nil, s.webhookFailure(ctx, ref, raw, err)
		}
		ctx = context.WithoutCancel(ctx)
		outcome = "duplicate_paid"
		if changed {
			outcome = "paid"
			s.logger.LogWebhook(ref, code, fmt.Sprintf("paid, %d tickets issued", result.TicketsCreated))
		}
	case StatusCodeExpired, StatusCodeCancelled:
		status := models.OrderStatusExpired
		if code == StatusCodeCancelled {
			status = models.OrderStatusCancelled
		}
		changed, err := s.DB.TransitionPending(ctx, ref, status)
		if err != nil {
			return nil, s.webhookFailure(ctx, ref, raw, fmt.Errorf("transition to %s: %w", status, err))
		}
		if changed {
			outcome = status
			s.invalidate(ctx, ref)
			s.emitStatus(ref, order.EventID, status)
			if s.Cache != nil {
				if err := s.Cache.ClearPaymentDeadline(ctx, ref); err != nil {
					s.logger.Warn("REDIS", fmt.Sprintf("Failed to clear payment deadline for %s: %v", ref, err))
				}
			}
			s.logger.LogWebhook(ref, code, "order "+status)
		}
	}

	s.writePaymentLog(ctx, &models.PaymentLog{
		OrderReference: ref,
		LogType:        models.PaymentLogCallback,
		RequestPayload: raw,
		ResponsePayload: map[string]interface{}{
			"outcome":        outcome,
			"previous_state": order.Status,
		},
	})
	s.metrics.WebhookOutcome(outcome)

	responseCode := code
	if code == StatusCodeSuccess {
		responseCode = "00"
	}
	return &models.PaymentNotificationAck{
		Response:     "Payment Notification",
		TrxID:        n.TrxID,
		MerchantID:   n.MerchantID,
		Merchant:     n.Merchant,
		BillNo:       ref,
		ResponseCode: responseCode,
		ResponseDesc: StatusDescription(code),
		ResponseDate: utils.FormatGatewayTime(s.now(), s.settings.Location),
	}, nil
}

func (s *OrderService) webhookFailure(ctx context.Context, ref string, raw map[string]interface{}, err error) error {
	s.logger.Error("WEBHOOK", fmt.Sprintf("Processing notification for %s failed: %v", ref, err))
	s.writePaymentLog(ctx, &models.PaymentLog{
		OrderReference:  ref,
		LogType:         models.PaymentLogError,
		RequestPayload:  raw,
		ResponsePayload: map[string]interface{}{"error": err.Error()},
	})
	s.metrics.WebhookOutcome("error")
	return &WebhookError{
		Category:      string(KindInternal),
		StatusCode:    http.StatusInternalServerError,
		PublicError:   "Failed to process notification",
		InternalError: err.Error(),
		OriginalErr:   err,
	}
}

// paidAt reads the gateway's payment_date in the service timezone, else now.
func (s *OrderService) paidAt(paymentDate string) time.Time {
	if paymentDate != "" {
		if t, err := time.ParseInLocation(utils.GatewayTimeLayout, paymentDate, s.settings.Location); err == nil {
			return t.UTC()
		}
	}
	return s.now().UTC()
}
