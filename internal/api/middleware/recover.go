package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/luizchaves/host-monitor/internal/logger"
)

// Recover turns a panic in a handler into a 500 response with a generic body.
// The panic value and stack only go to the log.
func Recover(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.FromContext(r.Context(), log).Error("panic recovered",
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				writeJSON(w, http.StatusInternalServerError, InternalError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
