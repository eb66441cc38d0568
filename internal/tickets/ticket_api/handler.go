package ticket_api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"ms-checkout/internal/logger"
	"ms-checkout/internal/models"
	qr_genrator "ms-checkout/internal/tickets/qr_genrator"
	tickets "ms-checkout/internal/tickets/service"
	"ms-checkout/internal/utils"

	"github.com/go-chi/chi/v5"
)

// TicketService is the part of the ticket service the handlers use.
type TicketService interface {
	Verify(ctx context.Context, eventSlug, code string) (tickets.Verification, error)
	CheckIn(ctx context.Context, code string) (*models.TicketDetail, error)
	GetTicket(ctx context.Context, code string) (*models.TicketDetail, error)
}

type Handler struct {
	TicketService TicketService
	QRGenerator   *qr_genrator.QRGenerator
	Logger        *logger.Logger
}

func NewHandler(ticketService TicketService, qrGen *qr_genrator.QRGenerator, log *logger.Logger) *Handler {
	return &Handler{TicketService: ticketService, QRGenerator: qrGen, Logger: log}
}

// VerifyTicket handles GET /verify/{eventSlug}/{ticketCode}.
func (h *Handler) VerifyTicket(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "eventSlug")
	code := chi.URLParam(r, "ticketCode")

	result, err := h.TicketService.Verify(r.Context(), slug, code)
	if err != nil {
		h.Logger.Error("TICKET", fmt.Sprintf("Verification of %s failed: %v", code, err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to verify ticket")
		return
	}

	status := http.StatusOK
	if !result.Valid {
		status = http.StatusNotFound
	}
	utils.WriteJSON(w, status, result)
}

// TicketQR handles GET /tickets/{ticketCode}/qr and returns a PNG.
func (h *Handler) TicketQR(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "ticketCode")

	detail, err := h.TicketService.GetTicket(r.Context(), code)
	if err != nil {
		if errors.Is(err, tickets.ErrTicketNotFound) {
			utils.WriteError(w, http.StatusNotFound, "Ticket not found")
			return
		}
		h.Logger.Error("TICKET", fmt.Sprintf("Failed to load ticket %s: %v", code, err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to load ticket")
		return
	}

	png, err := h.QRGenerator.GenerateTicketQR(detail.EventSlug, detail.Ticket.TicketCode)
	if err != nil {
		h.Logger.Error("TICKET", fmt.Sprintf("Failed to render QR for %s: %v", code, err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to generate QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// CheckInTicket handles POST /admin/tickets/{ticketCode}/check-in.
func (h *Handler) CheckInTicket(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "ticketCode")

	detail, err := h.TicketService.CheckIn(r.Context(), code)
	switch {
	case errors.Is(err, tickets.ErrTicketNotFound):
		utils.WriteError(w, http.StatusNotFound, "Ticket not found")
	case errors.Is(err, tickets.ErrAlreadyCheckedIn):
		body := map[string]interface{}{"error": "Ticket already checked in"}
		if detail != nil {
			body["checked_in_at"] = detail.Ticket.CheckedInAt
		}
		utils.WriteJSON(w, http.StatusConflict, body)
	case err != nil:
		h.Logger.Error("TICKET", fmt.Sprintf("Check-in of %s failed: %v", code, err))
		utils.WriteError(w, http.StatusInternalServerError, "Check-in failed")
	default:
		utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "ticket": detail})
	}
}
