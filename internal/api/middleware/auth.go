package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/luizchaves/host-monitor/internal/auth"
	"github.com/luizchaves/host-monitor/internal/domain"
)

type contextKey string

const UserIDContextKey contextKey = "user_id"

// Auth creates bearer token middleware. Requests without a valid token are
// rejected with 401; accepted requests carry the token subject in context.
func Auth(tokens *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "missing authorization header")
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") {
				unauthorized(w, "invalid authorization header format")
				return
			}
			token = strings.TrimSpace(token)
			if token == "" {
				unauthorized(w, "empty token")
				return
			}

			userID, err := tokens.Verify(token)
			if err != nil {
				msg := "invalid token"
				var de *domain.Error
				if errors.As(err, &de) {
					msg = de.Message
				}
				unauthorized(w, msg)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the authenticated user id, or "" when the request
// did not pass through Auth.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(UserIDContextKey).(string)
	return id
}

func unauthorized(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnauthorized, &domain.StandardError{
		Code:    domain.ErrCodeUnauthorized,
		Message: message,
	})
}
