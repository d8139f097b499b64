package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/luizchaves/host-monitor/internal/api/middleware"
	"github.com/luizchaves/host-monitor/internal/domain"
	"github.com/luizchaves/host-monitor/internal/logger"
)

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// handleError converts any error into its HTTP response. Client-side kinds
// carry their own message; internal errors are logged and replaced by a
// generic body.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	errors.As(err, &de)

	kind := domain.KindOf(err)
	switch kind {
	case domain.KindValidation, domain.KindNotFound, domain.KindConflict, domain.KindProbe, domain.KindAuth:
		resp := &domain.StandardError{Code: kind.Code(), Message: kind.String()}
		if de != nil {
			resp.Message = de.Message
			resp.Field = de.Field
		}
		respondJSON(w, kind.HTTPStatus(), resp)
	case domain.KindInternal:
		logger.FromContext(r.Context(), logger.Discard()).Error("internal error",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		respondJSON(w, http.StatusInternalServerError, middleware.InternalError)
	}
}

// decodeJSON decodes JSON from request body.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("body", "request body is required")
		}
		return domain.NewValidationError("body", "invalid request body")
	}
	return nil
}
