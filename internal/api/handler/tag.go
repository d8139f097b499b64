package handler

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/luizchaves/host-monitor/internal/service"
)

// TagHandler handles tag endpoints.
type TagHandler struct {
	hosts *service.HostService
}

// NewTagHandler creates a new TagHandler.
func NewTagHandler(hosts *service.HostService) *TagHandler {
	return &TagHandler{hosts: hosts}
}

// List lists all tags.
func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	tags, err := h.hosts.ListTags(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, tags)
}

// ListHosts lists the hosts carrying a tag.
func (h *TagHandler) ListHosts(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "tag"))
	if err != nil {
		name = chi.URLParam(r, "tag")
	}

	hosts, err := h.hosts.ListHostsByTag(r.Context(), name)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, hosts)
}
