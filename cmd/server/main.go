package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/luizchaves/host-monitor/internal/api"
	"github.com/luizchaves/host-monitor/internal/api/handler"
	"github.com/luizchaves/host-monitor/internal/auth"
	"github.com/luizchaves/host-monitor/internal/config"
	"github.com/luizchaves/host-monitor/internal/logger"
	"github.com/luizchaves/host-monitor/internal/probe"
	"github.com/luizchaves/host-monitor/internal/service"
	"github.com/luizchaves/host-monitor/internal/storage"
	"github.com/luizchaves/host-monitor/internal/storage/memory"
	"github.com/luizchaves/host-monitor/internal/storage/sql"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "text").Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg, log); err != nil {
		log.Error("host monitor stopped with error", "error", err)
		os.Exit(1)
	}
}

// run wires the application and serves until SIGINT or SIGTERM. Every
// resource it opens is released before it returns.
func run(cfg *config.Config, log *logger.Logger) error {
	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := openStorage(cfg.Database)
	if err != nil {
		return fmt.Errorf("initializing %s storage: %w", cfg.Database.Driver, err)
	}
	defer store.Close()

	tokens, err := auth.NewTokenIssuer([]byte(cfg.Auth.Secret), cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("initializing token issuer: %w", err)
	}

	users := service.NewUserService(store, tokens)
	deps := api.Dependencies{
		Hosts:        service.NewHostService(store),
		Pings:        service.NewPingService(store, probe.NewRunner(cfg.Probe.Binary, cfg.Probe.ReplyTimeout), log),
		Users:        users,
		Tokens:       tokens,
		Logger:       log,
		AuthRequired: cfg.Auth.Required,
	}

	// Initialize OIDC if enabled
	if cfg.OIDC.Enabled {
		oidcHandler, err := newOIDCHandler(cfg.OIDC, users)
		if err != nil {
			return fmt.Errorf("initializing OIDC: %w", err)
		}
		deps.OIDC = oidcHandler
		log.Info("OIDC sign-in enabled", "issuer", cfg.OIDC.IssuerURL)
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(deps),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // a 100-count probe takes close to two minutes
		IdleTimeout:  120 * time.Second,
	}

	log.Info("starting host monitor",
		"addr", cfg.Server.Addr(),
		"driver", cfg.Database.Driver,
		"auth_required", cfg.Auth.Required,
	)

	// Wait for interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, server, log)
}

// serve runs server until ctx is done or the listener fails, then shuts it
// down gracefully.
func serve(ctx context.Context, server *http.Server, log *logger.Logger) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}

	log.Info("server stopped")
	return nil
}

func openStorage(cfg config.DatabaseConfig) (storage.Storage, error) {
	if cfg.Driver == "memory" {
		return memory.New(), nil
	}

	// Create data directory if needed (for SQLite)
	if cfg.Driver == "sqlite3" {
		if dir := filepath.Dir(cfg.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, err
			}
		}
	}
	store, err := sql.New(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func newOIDCHandler(cfg config.OIDCConfig, users *service.UserService) (*handler.OIDCHandler, error) {
	// The provider keeps this context for later key set refreshes.
	provider, err := auth.NewOIDCProvider(context.Background(),
		cfg.IssuerURL,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.RedirectURL,
		cfg.GetScopes(),
		cfg.GetAllowedDomains(),
	)
	if err != nil {
		return nil, err
	}

	key, err := cfg.GetStateSecretBytes()
	if err != nil {
		return nil, err
	}
	states, err := auth.NewStateStore(key, "/api/users/oidc", isHTTPS(cfg.RedirectURL))
	if err != nil {
		return nil, err
	}

	return handler.NewOIDCHandler(provider, states, users), nil
}

func isHTTPS(rawURL string) bool {
	return strings.HasPrefix(strings.ToLower(rawURL), "https://")
}
