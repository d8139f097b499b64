package handler

import (
	"context"
	"net/http"

	"github.com/luizchaves/host-monitor/internal/auth"
	"github.com/luizchaves/host-monitor/internal/domain"
	"github.com/luizchaves/host-monitor/internal/logger"
	"github.com/luizchaves/host-monitor/internal/service"
)

// IdentityProvider is the part of auth.OIDCProvider the handler needs.
type IdentityProvider interface {
	AuthCodeURL(state, nonce string) string
	Exchange(ctx context.Context, code, nonce string) (*auth.OIDCClaims, error)
}

// OIDCHandler handles federated sign-in. A successful callback answers with
// the same bearer token body as password sign-in.
type OIDCHandler struct {
	provider IdentityProvider
	states   *auth.StateStore
	users    *service.UserService
}

// NewOIDCHandler creates a new OIDCHandler.
func NewOIDCHandler(provider IdentityProvider, states *auth.StateStore, users *service.UserService) *OIDCHandler {
	return &OIDCHandler{provider: provider, states: states, users: users}
}

// Login starts the authorization code flow.
func (h *OIDCHandler) Login(w http.ResponseWriter, r *http.Request) {
	stateData, err := h.states.Issue(w)
	if err != nil {
		handleError(w, r, err)
		return
	}

	http.Redirect(w, r, h.provider.AuthCodeURL(stateData.State, stateData.Nonce), http.StatusSeeOther)
}

// Callback completes the flow and issues a bearer token.
func (h *OIDCHandler) Callback(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), logger.Discard())
	q := r.URL.Query()

	// Check for error from provider
	if errParam := q.Get("error"); errParam != "" {
		log.Warn("OIDC provider returned error", "error", errParam, "description", q.Get("error_description"))
		handleError(w, r, domain.NewAuthError("sign-in was rejected by the identity provider", nil))
		return
	}

	code := q.Get("code")
	if code == "" {
		handleError(w, r, domain.NewAuthError("no authorization code received", nil))
		return
	}

	stateData, err := h.states.Consume(w, r, q.Get("state"))
	if err != nil {
		log.Warn("OIDC state validation failed", "error", err)
		handleError(w, r, domain.NewAuthError("invalid state parameter", err))
		return
	}

	claims, err := h.provider.Exchange(r.Context(), code, stateData.Nonce)
	if err != nil {
		log.Warn("OIDC token exchange failed", "error", err)
		handleError(w, r, domain.NewAuthError("failed to complete authentication", err))
		return
	}

	resp, err := h.users.SignInWithOIDC(r.Context(), claims)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}
