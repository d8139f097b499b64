package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/luizchaves/host-monitor/internal/domain"
	"github.com/luizchaves/host-monitor/internal/storage"
	"github.com/luizchaves/host-monitor/internal/validation"
)

// HostService manages monitored hosts and their tags.
type HostService struct {
	store storage.Storage
	now   func() time.Time
}

// NewHostService creates a new HostService.
func NewHostService(store storage.Storage) *HostService {
	return &HostService{store: store, now: time.Now}
}

// Create validates in and stores a new host. Tags are upserted by name.
func (s *HostService) Create(ctx context.Context, in domain.HostInput) (*domain.Host, error) {
	host, err := s.buildHost(in)
	if err != nil {
		return nil, err
	}
	host.ID = uuid.New().String()
	host.CreatedAt = host.UpdatedAt

	if err := s.store.CreateHost(ctx, host); err != nil {
		return nil, storeError(err, "host", "create")
	}
	return host, nil
}

// List returns hosts matching filter in insertion order.
func (s *HostService) List(ctx context.Context, filter domain.HostFilter) ([]*domain.Host, error) {
	hosts, err := s.store.ListHosts(ctx, filter)
	if err != nil {
		return nil, storeError(err, "hosts", "list")
	}
	return hosts, nil
}

// Get returns the host with id.
func (s *HostService) Get(ctx context.Context, id string) (*domain.Host, error) {
	host, err := s.store.GetHost(ctx, id)
	if err != nil {
		return nil, storeError(err, "host", "get")
	}
	return host, nil
}

// Update replaces every field of the host with id, including its tags.
// Concurrent updates are last-writer-wins.
func (s *HostService) Update(ctx context.Context, id string, in domain.HostInput) (*domain.Host, error) {
	host, err := s.buildHost(in)
	if err != nil {
		return nil, err
	}
	host.ID = id

	if err := s.store.UpdateHost(ctx, host); err != nil {
		return nil, storeError(err, "host", "update")
	}
	return host, nil
}

// Delete removes the host with id along with its tag links and ping history.
func (s *HostService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteHost(ctx, id); err != nil {
		return storeError(err, "host", "delete")
	}
	return nil
}

// ListTags returns every tag ordered by name.
func (s *HostService) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, storeError(err, "tags", "list")
	}
	return tags, nil
}

// ListHostsByTag returns the hosts carrying the tag called name.
// An unknown tag yields an empty list.
func (s *HostService) ListHostsByTag(ctx context.Context, name string) ([]*domain.Host, error) {
	hosts, err := s.store.ListHostsByTag(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, storeError(err, "hosts", "list")
	}
	return hosts, nil
}

func (s *HostService) buildHost(in domain.HostInput) (*domain.Host, error) {
	name := strings.TrimSpace(in.Name)
	address := strings.TrimSpace(in.Address)

	if err := validation.ValidateHostName(name); err != nil {
		return nil, domain.NewValidationError("name", err.Error())
	}
	if err := validation.ValidateHostAddress(address); err != nil {
		return nil, domain.NewValidationError("address", err.Error())
	}
	tagNames, err := validation.NormalizeTagNames(in.Tags)
	if err != nil {
		return nil, domain.NewValidationError("tags", err.Error())
	}

	tags := make([]*domain.Tag, 0, len(tagNames))
	for _, n := range tagNames {
		tags = append(tags, &domain.Tag{Name: n})
	}
	return &domain.Host{
		Name:      name,
		Address:   address,
		Tags:      tags,
		UpdatedAt: s.now().UTC(),
	}, nil
}
