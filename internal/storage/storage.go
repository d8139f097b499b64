package storage

import (
	"context"

	"github.com/luizchaves/host-monitor/internal/domain"
)

// Storage defines the interface for the storage layer.
// Implementations must be safe for concurrent use. Every write touches a
// single record (plus its tag associations) and either fully applies or
// leaves the store unchanged.
type Storage interface {
	// Close closes the storage connection.
	Close() error

	// Hosts. CreateHost and UpdateHost upsert the host's tags by name and
	// fill in the resolved Tag records on the passed host.
	CreateHost(ctx context.Context, host *domain.Host) error
	GetHost(ctx context.Context, id string) (*domain.Host, error)
	ListHosts(ctx context.Context, filter domain.HostFilter) ([]*domain.Host, error)
	UpdateHost(ctx context.Context, host *domain.Host) error
	DeleteHost(ctx context.Context, id string) error

	// Tags
	ListTags(ctx context.Context) ([]*domain.Tag, error)
	ListHostsByTag(ctx context.Context, tagName string) ([]*domain.Host, error)

	// Pings. An empty hostID lists pings of every host.
	CreatePing(ctx context.Context, ping *domain.Ping) error
	ListPings(ctx context.Context, hostID string) ([]*domain.Ping, error)

	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}
