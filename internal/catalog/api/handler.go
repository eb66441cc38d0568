package catalog_api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"ms-checkout/internal/catalog"
	"ms-checkout/internal/logger"
	"ms-checkout/internal/models"
	"ms-checkout/internal/utils"

	"github.com/go-chi/chi/v5"
)

type CatalogService interface {
	ListEvents(ctx context.Context) ([]models.Event, error)
	GetEvent(ctx context.Context, slug string) (*models.Event, error)
	ListPaymentChannels(ctx context.Context) ([]models.PaymentChannel, error)
	ListCustomFields(ctx context.Context, eventID int64) ([]models.EventCustomField, error)
	ListPaymentInstructions(ctx context.Context, channelID int64) ([]models.PaymentInstruction, error)
}

// Handler serves the public catalog endpoints.
type Handler struct {
	Service CatalogService
	Logger  *logger.Logger
}

func NewHandler(service CatalogService, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// RegisterRoutes registers the catalog routes on a chi router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/events", h.ListEvents)
	r.Get("/events/{slug}", h.GetEvent)
	r.Get("/events/{eventId}/custom-fields", h.ListCustomFields)
	r.Get("/payment-channels", h.ListPaymentChannels)
	r.Get("/payment-instructions/{channelId}", h.ListPaymentInstructions)
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.ListEvents(r.Context())
	if err != nil {
		h.fail(w, "ListEvents", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("", events))
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	event, err := h.Service.GetEvent(r.Context(), slug)
	if errors.Is(err, catalog.ErrNotFound) {
		utils.WriteError(w, http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		h.fail(w, "GetEvent", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("", event))
}

func (h *Handler) ListPaymentChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := h.Service.ListPaymentChannels(r.Context())
	if err != nil {
		h.fail(w, "ListPaymentChannels", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("", channels))
}

func (h *Handler) ListCustomFields(w http.ResponseWriter, r *http.Request) {
	eventID, ok := idParam(w, r, "eventId")
	if !ok {
		return
	}

	fields, err := h.Service.ListCustomFields(r.Context(), eventID)
	if err != nil {
		h.fail(w, "ListCustomFields", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("", fields))
}

func (h *Handler) ListPaymentInstructions(w http.ResponseWriter, r *http.Request) {
	channelID, ok := idParam(w, r, "channelId")
	if !ok {
		return
	}

	steps, err := h.Service.ListPaymentInstructions(r.Context(), channelID)
	if err != nil {
		h.fail(w, "ListPaymentInstructions", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("", steps))
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
	utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to load catalog", "internal error"))
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		utils.WriteError(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}
