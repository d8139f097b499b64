package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/luizchaves/host-monitor/internal/domain"
	"github.com/luizchaves/host-monitor/internal/service"
)

// HostHandler handles host endpoints.
type HostHandler struct {
	hosts *service.HostService
}

// NewHostHandler creates a new HostHandler.
func NewHostHandler(hosts *service.HostService) *HostHandler {
	return &HostHandler{hosts: hosts}
}

// Create creates a new host.
func (h *HostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.HostInput
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	host, err := h.hosts.Create(r.Context(), req)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, host)
}

// List lists hosts, optionally filtered by the name and address query parameters.
func (h *HostHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.HostFilter{
		Name:    q.Get("name"),
		Address: q.Get("address"),
	}

	hosts, err := h.hosts.List(r.Context(), filter)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, hosts)
}

// Get gets a host by id.
func (h *HostHandler) Get(w http.ResponseWriter, r *http.Request) {
	host, err := h.hosts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, host)
}

// Update replaces a host.
func (h *HostHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.HostInput
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	host, err := h.hosts.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, host)
}

// Delete deletes a host and its ping history.
func (h *HostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.hosts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
