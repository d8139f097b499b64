package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/luizchaves/host-monitor/internal/api/handler"
	"github.com/luizchaves/host-monitor/internal/api/middleware"
	"github.com/luizchaves/host-monitor/internal/auth"
	"github.com/luizchaves/host-monitor/internal/domain"
	"github.com/luizchaves/host-monitor/internal/logger"
	"github.com/luizchaves/host-monitor/internal/service"
)

// Dependencies holds everything the router wires into handlers.
type Dependencies struct {
	Hosts  *service.HostService
	Pings  *service.PingService
	Users  *service.UserService
	Tokens *auth.TokenIssuer
	Logger *logger.Logger

	// AuthRequired gates the host, tag and ping routes behind a bearer token.
	AuthRequired bool

	// OIDC is nil when federated sign-in is disabled.
	OIDC *handler.OIDCHandler
}

var notFoundBody = domain.StandardError{Message: "Content not found!"}

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(deps Dependencies) http.Handler {
	log := deps.Logger
	if log == nil {
		log = logger.Discard()
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recover(log))

	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	// Health check (no auth required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	requireAuth := middleware.Auth(deps.Tokens)

	r.Route("/api", func(r chi.Router) {
		r.NotFound(notFound)
		r.MethodNotAllowed(notFound)

		r.Group(func(r chi.Router) {
			if deps.AuthRequired {
				r.Use(requireAuth)
			}

			// Hosts
			hostHandler := handler.NewHostHandler(deps.Hosts)
			r.Post("/hosts", hostHandler.Create)
			r.Get("/hosts", hostHandler.List)
			r.Get("/hosts/{id}", hostHandler.Get)
			r.Put("/hosts/{id}", hostHandler.Update)
			r.Delete("/hosts/{id}", hostHandler.Delete)

			// Pings
			pingHandler := handler.NewPingHandler(deps.Pings)
			r.Post("/hosts/{hostId}/pings/{count}", pingHandler.Create)
			r.Get("/hosts/{hostId}/pings", pingHandler.ListForHost)
			r.Get("/pings", pingHandler.List)

			// Tags
			tagHandler := handler.NewTagHandler(deps.Hosts)
			r.Get("/tags", tagHandler.List)
			r.Get("/tags/{tag}/hosts", tagHandler.ListHosts)
		})

		// Users
		userHandler := handler.NewUserHandler(deps.Users)
		r.Post("/users", userHandler.Create)
		r.Post("/users/signin", userHandler.SignIn)
		r.With(requireAuth).Get("/users/me", userHandler.Me)

		if deps.OIDC != nil {
			r.Get("/users/oidc/login", deps.OIDC.Login)
			r.Get("/users/oidc/callback", deps.OIDC.Callback)
		}
	})

	return r
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(notFoundBody)
}
