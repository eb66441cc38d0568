package order_api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-checkout/internal/logger"
	"ms-checkout/internal/models"
	"ms-checkout/internal/order"
	"ms-checkout/internal/order/discount"
	"ms-checkout/internal/sse"
	"ms-checkout/internal/utils"

	"github.com/go-chi/chi/v5"
)

// OrderService is the part of order.OrderService the handlers call.
type OrderService interface {
	CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.CreateOrderResponse, error)
	GetOrderView(ctx context.Context, ref string) (*order.OrderView, error)
	GetStatus(ctx context.Context, ref string) (string, error)
	SubmitProof(ctx context.Context, ref, proofURL string) error
	ConfirmManualPayment(ctx context.Context, ref, confirmedBy string) (bool, models.IssueResult, error)
	RetryIssuance(ctx context.Context, ref string) (models.IssueResult, error)
	HandlePaymentNotification(ctx context.Context, n models.PaymentNotification, raw map[string]interface{}) (*models.PaymentNotificationAck, error)
}

type VoucherValidator interface {
	Validate(ctx context.Context, code string, eventID, amount int64) (*discount.Result, error)
}

type Handler struct {
	Orders   OrderService
	Vouchers VoucherValidator
	Status   *sse.StatusEmitter
	Logger   *logger.Logger
}

func NewHandler(orders OrderService, vouchers VoucherValidator, status *sse.StatusEmitter, log *logger.Logger) *Handler {
	return &Handler{
		Orders:   orders,
		Vouchers: vouchers,
		Status:   status,
		Logger:   log,
	}
}

type failureResponse struct {
	Success        bool   `json:"success"`
	Error          string `json:"error"`
	OrderReference string `json:"orderReference,omitempty"`
	OrderID        int64  `json:"orderId,omitempty"`
}

// CreateOrder handles POST /orders/create.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("CreateOrder: invalid body: %v", err))
		utils.WriteJSON(w, http.StatusBadRequest, failureResponse{Error: "Invalid request body"})
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CreateOrder: eventId=%d channel=%s tickets=%d", req.EventID, req.PaymentChannelCode, len(req.SelectedTickets)))

	resp, err := h.Orders.CreateOrder(r.Context(), req)
	if err != nil {
		var appErr *order.AppError
		var creationErr *order.OrderCreationError
		switch {
		case errors.As(err, &appErr):
			h.Logger.Warn("API", fmt.Sprintf("CreateOrder: rejected: %s", appErr.Message))
			utils.WriteJSON(w, appErr.StatusCode(), failureResponse{Error: appErr.Message})
		case errors.As(err, &creationErr):
			h.Logger.Error("API", fmt.Sprintf("CreateOrder: %v", err))
			utils.WriteJSON(w, http.StatusInternalServerError, failureResponse{
				Error:          "Failed to create order",
				OrderReference: creationErr.OrderReference,
				OrderID:        creationErr.OrderID,
			})
		default:
			h.Logger.Error("API", fmt.Sprintf("CreateOrder: %v", err))
			utils.WriteJSON(w, http.StatusInternalServerError, failureResponse{Error: "Failed to create order"})
		}
		return
	}

	h.Logger.Info("API", fmt.Sprintf("CreateOrder: created %s", resp.OrderReference))
	utils.WriteJSON(w, http.StatusOK, resp)
}

// GetOrderStatus handles GET /orders/status/{ref}.
func (h *Handler) GetOrderStatus(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")

	status, err := h.Orders.GetStatus(r.Context(), ref)
	if err != nil {
		h.writeLookupError(w, "GetOrderStatus", ref, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": status})
}

// GetOrder handles GET /orders/{ref}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	h.Logger.Debug("API", fmt.Sprintf("GetOrder: ref=%s", ref))

	view, err := h.Orders.GetOrderView(r.Context(), ref)
	if err != nil {
		h.writeLookupError(w, "GetOrder", ref, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, view)
}

// SubmitProof handles POST /orders/{ref}/proof.
func (h *Handler) SubmitProof(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")

	var req models.ProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.Orders.SubmitProof(r.Context(), ref, req.ProofTransfer)
	if err != nil {
		if errors.Is(err, order.ErrNotManualPayment) {
			utils.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.writeLookupError(w, "SubmitProof", ref, err)
		return
	}

	h.Logger.Info("API", fmt.Sprintf("SubmitProof: proof stored for %s", ref))
	utils.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type voucherView struct {
	ID                int64   `json:"id"`
	Code              string  `json:"code"`
	Description       string  `json:"description"`
	DiscountType      string  `json:"discount_type"`
	Value             float64 `json:"value"`
	MaxDiscountAmount *int64  `json:"max_discount_amount"`
	DiscountAmount    int64   `json:"discount_amount"`
}

// ValidateVoucher handles POST /vouchers/validate. Validity travels in the body,
// the status is always 200.
func (h *Handler) ValidateVoucher(w http.ResponseWriter, r *http.Request) {
	var req models.VoucherValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusOK, failureResponse{Error: "Invalid request body"})
		return
	}

	result, err := h.Vouchers.Validate(r.Context(), req.Code, req.EventID, req.Amount)
	if err != nil {
		h.Logger.Error("VOUCHER", fmt.Sprintf("Validation of %q failed: %v", req.Code, err))
		utils.WriteJSON(w, http.StatusOK, failureResponse{Error: "Failed to validate voucher"})
		return
	}
	if !result.Valid {
		h.Logger.Debug("VOUCHER", fmt.Sprintf("Voucher %q rejected: %s", req.Code, result.Reason))
		utils.WriteJSON(w, http.StatusOK, failureResponse{Error: result.Reason})
		return
	}

	v := result.Voucher
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"voucher": voucherView{
			ID:                v.ID,
			Code:              v.Code,
			Description:       v.Description,
			DiscountType:      v.DiscountType,
			Value:             v.Value,
			MaxDiscountAmount: v.MaxDiscountAmount,
			DiscountAmount:    result.DiscountAmount,
		},
	})
}

// writeLookupError maps the errors of ref-addressed operations.
func (h *Handler) writeLookupError(w http.ResponseWriter, op, ref string, err error) {
	if errors.Is(err, order.ErrOrderNotFound) {
		utils.WriteError(w, http.StatusNotFound, "Order not found")
		return
	}
	var appErr *order.AppError
	if errors.As(err, &appErr) && appErr.Kind == order.KindValidation {
		utils.WriteError(w, http.StatusBadRequest, appErr.Message)
		return
	}
	h.Logger.Error("API", fmt.Sprintf("%s: %s: %v", op, ref, err))
	utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
}

// RegisterRoutes mounts the public order routes and, behind admin, the operator routes.
func (h *Handler) RegisterRoutes(r chi.Router, admin func(http.Handler) http.Handler) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/create", h.CreateOrder)
		r.Get("/status/{ref}", h.GetOrderStatus)
		r.Get("/status/{ref}/stream", h.StreamOrderStatus)
		r.Get("/{ref}", h.GetOrder)
		r.Post("/{ref}/proof", h.SubmitProof)
	})
	r.Post("/vouchers/validate", h.ValidateVoucher)

	for _, path := range []string{"/webhooks/payment-gateway", "/webhooks/faspay"} {
		r.Post(path, h.PaymentWebhook)
		r.Get(path, h.WebhookHealth)
	}

	r.Group(func(r chi.Router) {
		r.Use(admin)
		r.Post("/admin/orders/{ref}/confirm", h.ConfirmPayment)
		r.Post("/admin/orders/{ref}/issue-tickets", h.RetryIssuance)
		r.Get("/admin/events/{eventId}/checkouts/stream", h.StreamEventCheckouts)
	})
}
