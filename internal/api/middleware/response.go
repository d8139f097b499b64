package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/luizchaves/host-monitor/internal/domain"
)

// InternalError is the only body a caller ever sees for a server-side failure.
var InternalError = domain.StandardError{
	Code:    domain.ErrCodeInternalError,
	Message: "Something broke!",
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
