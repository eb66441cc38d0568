package order_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"ms-checkout/internal/sse"
	"ms-checkout/internal/utils"

	"github.com/go-chi/chi/v5"
)

// StreamOrderStatus handles GET /orders/status/{ref}/stream. The current status
// is sent first, then every change until the client disconnects.
func (h *Handler) StreamOrderStatus(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	status, err := h.Orders.GetStatus(r.Context(), ref)
	if err != nil {
		h.writeLookupError(w, "StreamOrderStatus", ref, err)
		return
	}

	ctx := r.Context()
	changes := h.Status.SubscribeOrder(ctx, ref)

	setupSSEHeaders(w)
	h.writeEvent(w, "status", sse.StatusChange{OrderReference: ref, Status: status})
	flusher.Flush()

	h.Logger.Debug("SSE", fmt.Sprintf("Client watching order %s", ref))
	h.stream(w, flusher, r, changes, "status")
}

// StreamEventCheckouts handles GET /admin/events/{eventId}/checkouts/stream.
func (h *Handler) StreamEventCheckouts(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.ParseInt(chi.URLParam(r, "eventId"), 10, 64)
	if err != nil || eventID <= 0 {
		utils.WriteError(w, http.StatusBadRequest, "Event ID is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	changes := h.Status.SubscribeEvent(r.Context(), eventID)

	setupSSEHeaders(w)
	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"eventId\":%d}\n\n", eventID)
	flusher.Flush()

	h.Logger.Info("SSE", fmt.Sprintf("Client connected to checkout stream of event %d", eventID))
	h.stream(w, flusher, r, changes, "checkout")
}

func (h *Handler) stream(w http.ResponseWriter, flusher http.Flusher, r *http.Request, changes <-chan sse.StatusChange, name string) {
	for {
		select {
		case change, ok := <-changes:
			if !ok {
				return
			}
			h.writeEvent(w, name, change)
			flusher.Flush()
		case <-r.Context().Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client left %s", r.URL.Path))
			return
		}
	}
}

func (h *Handler) writeEvent(w http.ResponseWriter, name string, change sse.StatusChange) {
	data, err := json.Marshal(change)
	if err != nil {
		h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize status change: %v", err))
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
