package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Probe    ProbeConfig
	Log      LogConfig
	OIDC     OIDCConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envDefault:"3000"`
}

// DatabaseConfig holds database configuration.
// Driver is one of memory, sqlite3 or postgres.
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DSN    string `env:"DB_DSN" envDefault:"data/host-monitor.db"`
}

// AuthConfig holds bearer token configuration.
type AuthConfig struct {
	Required bool          `env:"AUTH_REQUIRED" envDefault:"false"`
	Secret   string        `env:"JWT_SECRET"`
	TokenTTL time.Duration `env:"JWT_TTL" envDefault:"1h"`
}

// ProbeConfig holds reachability probe configuration.
type ProbeConfig struct {
	Binary       string        `env:"PROBE_BINARY" envDefault:"ping"`
	ReplyTimeout time.Duration `env:"PROBE_REPLY_TIMEOUT" envDefault:"1s"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// OIDCConfig holds OIDC authentication configuration.
type OIDCConfig struct {
	Enabled        bool   `env:"OIDC_ENABLED" envDefault:"false"`
	IssuerURL      string `env:"OIDC_ISSUER_URL"`
	ClientID       string `env:"OIDC_CLIENT_ID"`
	ClientSecret   string `env:"OIDC_CLIENT_SECRET"`
	RedirectURL    string `env:"OIDC_REDIRECT_URL"`
	Scopes         string `env:"OIDC_SCOPES" envDefault:"openid,email,profile"`
	StateSecret    string `env:"OIDC_STATE_SECRET"`
	AllowedDomains string `env:"OIDC_ALLOWED_DOMAINS"`
}

// GetScopes returns the OIDC scopes as a slice.
func (c *OIDCConfig) GetScopes() []string {
	if c.Scopes == "" {
		return []string{"openid", "email", "profile"}
	}
	return splitList(c.Scopes)
}

// GetAllowedDomains returns the allowed domains as a slice.
func (c *OIDCConfig) GetAllowedDomains() []string {
	if c.AllowedDomains == "" {
		return nil
	}
	return splitList(c.AllowedDomains)
}

// GetStateSecretBytes returns the state cookie key as bytes.
func (c *OIDCConfig) GetStateSecretBytes() ([]byte, error) {
	if c.StateSecret == "" {
		return nil, fmt.Errorf("OIDC_STATE_SECRET is required")
	}
	// 64 hex chars = 32 bytes
	if len(c.StateSecret) == 64 {
		decoded, err := hex.DecodeString(c.StateSecret)
		if err == nil {
			return decoded, nil
		}
	}
	if len(c.StateSecret) != 32 {
		return nil, fmt.Errorf("OIDC_STATE_SECRET must be 32 bytes (or 64 hex characters)")
	}
	return []byte(c.StateSecret), nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(&cfg.Server); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}
	if err := env.Parse(&cfg.Database); err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if err := env.Parse(&cfg.Auth); err != nil {
		return nil, fmt.Errorf("parsing auth config: %w", err)
	}
	if err := env.Parse(&cfg.Probe); err != nil {
		return nil, fmt.Errorf("parsing probe config: %w", err)
	}
	if err := env.Parse(&cfg.Log); err != nil {
		return nil, fmt.Errorf("parsing log config: %w", err)
	}
	if err := env.Parse(&cfg.OIDC); err != nil {
		return nil, fmt.Errorf("parsing oidc config: %w", err)
	}

	return cfg, nil
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "memory":
	case "sqlite3", "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("DB_DSN is required for driver %s", c.Database.Driver)
		}
	default:
		return fmt.Errorf("DB_DRIVER must be one of memory, sqlite3, postgres (got %q)", c.Database.Driver)
	}

	if c.Auth.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.Auth.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}

	if c.Probe.Binary == "" {
		return fmt.Errorf("PROBE_BINARY must not be empty")
	}
	if c.Probe.ReplyTimeout < time.Second {
		return fmt.Errorf("PROBE_REPLY_TIMEOUT must be at least 1s")
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json (got %q)", c.Log.Format)
	}

	// Validate OIDC config when enabled
	if c.OIDC.Enabled {
		if c.OIDC.IssuerURL == "" {
			return fmt.Errorf("OIDC_ISSUER_URL is required when OIDC is enabled")
		}
		if c.OIDC.ClientID == "" {
			return fmt.Errorf("OIDC_CLIENT_ID is required when OIDC is enabled")
		}
		if c.OIDC.ClientSecret == "" {
			return fmt.Errorf("OIDC_CLIENT_SECRET is required when OIDC is enabled")
		}
		if c.OIDC.RedirectURL == "" {
			return fmt.Errorf("OIDC_REDIRECT_URL is required when OIDC is enabled")
		}
		if _, err := c.OIDC.GetStateSecretBytes(); err != nil {
			return err
		}
	}

	return nil
}
