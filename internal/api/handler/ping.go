package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/luizchaves/host-monitor/internal/domain"
	"github.com/luizchaves/host-monitor/internal/service"
)

// PingHandler handles ping endpoints.
type PingHandler struct {
	pings *service.PingService
}

// NewPingHandler creates a new PingHandler.
func NewPingHandler(pings *service.PingService) *PingHandler {
	return &PingHandler{pings: pings}
}

// Create probes a host and records the result.
func (h *PingHandler) Create(w http.ResponseWriter, r *http.Request) {
	count, err := strconv.Atoi(chi.URLParam(r, "count"))
	if err != nil {
		handleError(w, r, domain.NewValidationError("count", "count must be an integer"))
		return
	}

	ping, err := h.pings.Create(r.Context(), chi.URLParam(r, "hostId"), count)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, ping)
}

// List lists every recorded ping.
func (h *PingHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "")
}

// ListForHost lists the pings of one host.
func (h *PingHandler) ListForHost(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, chi.URLParam(r, "hostId"))
}

func (h *PingHandler) list(w http.ResponseWriter, r *http.Request, hostID string) {
	pings, err := h.pings.List(r.Context(), hostID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, pings)
}
