package analytics_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"ms-checkout/internal/analytics"
	"ms-checkout/internal/logger"
	"ms-checkout/internal/models"

	"github.com/go-chi/chi/v5"
)

type AnalyticsService interface {
	GetEventSales(ctx context.Context, eventID int64) (*analytics.EventSales, error)
	GetEventOrders(ctx context.Context, eventID int64, options analytics.EventOrderOptions) ([]models.Order, error)
}

// Handler handles analytics HTTP endpoints
type Handler struct {
	Service AnalyticsService
	Logger  *logger.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(service AnalyticsService, logger *logger.Logger) *Handler {
	return &Handler{
		Service: service,
		Logger:  logger,
	}
}

// RegisterRoutes registers the analytics routes on a chi router. Callers mount
// it behind admin authentication.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/admin/events/{eventId}/sales", h.GetEventSales)
	r.Get("/admin/events/{eventId}/orders", h.GetEventOrders)
}

// sendJSONResponse is a helper function to send JSON responses
func (h *Handler) sendJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Failed to encode response: %v", err))
	}
}

func (h *Handler) eventID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	eventID, err := strconv.ParseInt(chi.URLParam(r, "eventId"), 10, 64)
	if err != nil || eventID <= 0 {
		h.sendJSONResponse(w, http.StatusBadRequest, map[string]string{"error": "Invalid event ID"})
		return 0, false
	}
	return eventID, true
}

// GetEventSales handles GET /admin/events/{eventId}/sales
func (h *Handler) GetEventSales(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	h.Logger.Info("ANALYTICS", fmt.Sprintf("Sales summary requested for event %d", eventID))

	sales, err := h.Service.GetEventSales(r.Context(), eventID)
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Failed to get sales of event %d: %v", eventID, err))
		h.sendJSONResponse(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve sales"})
		return
	}

	h.sendJSONResponse(w, http.StatusOK, sales)
}

// GetEventOrders handles GET /admin/events/{eventId}/orders?status=&sort_by=&sort_desc=&limit=&offset=
func (h *Handler) GetEventOrders(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	options := analytics.EventOrderOptions{
		Status: query.Get("status"),
		SortBy: query.Get("sort_by"),
	}
	options.SortDesc, _ = strconv.ParseBool(query.Get("sort_desc"))
	options.Limit, _ = strconv.Atoi(query.Get("limit"))
	options.Offset, _ = strconv.Atoi(query.Get("offset"))

	orders, err := h.Service.GetEventOrders(r.Context(), eventID, options)
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Failed to list orders of event %d: %v", eventID, err))
		h.sendJSONResponse(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve orders"})
		return
	}

	h.sendJSONResponse(w, http.StatusOK, map[string]interface{}{
		"event_id": eventID,
		"orders":   orders,
		"count":    len(orders),
	})
}
