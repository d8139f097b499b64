package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/luizchaves/host-monitor/internal/domain"
	"github.com/luizchaves/host-monitor/internal/storage"
)

var _ storage.Storage = (*Store)(nil)

// Store is an in-memory implementation of the storage interface.
// Records are copied on the way in and out so callers never share state
// with the store.
type Store struct {
	mu sync.RWMutex

	hosts     map[string]*domain.Host // key: id, Tags left nil
	hostOrder []string                // insertion order of host ids
	hostTags  map[string][]string     // key: host id, value: tag ids
	tags      map[string]*domain.Tag  // key: id
	tagByName map[string]string       // key: name, value: tag id
	pings     []*domain.Ping          // append-only, oldest first
	users     map[string]*domain.User // key: id
	userEmail map[string]string       // key: email, value: user id
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		hosts:     make(map[string]*domain.Host),
		hostTags:  make(map[string][]string),
		tags:      make(map[string]*domain.Tag),
		tagByName: make(map[string]string),
		users:     make(map[string]*domain.User),
		userEmail: make(map[string]string),
	}
}

func (s *Store) Close() error { return nil }

// ============================================
// Hosts
// ============================================

func (s *Store) CreateHost(ctx context.Context, host *domain.Host) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.hosts[host.ID]; exists {
		return domain.ErrAlreadyExists
	}
	s.hosts[host.ID] = cloneHostRecord(host)
	s.hostOrder = append(s.hostOrder, host.ID)
	s.hostTags[host.ID] = s.upsertTags(host.TagNames())
	host.Tags = s.hostTagsLocked(host.ID)
	return nil
}

func (s *Store) GetHost(ctx context.Context, id string) (*domain.Host, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, exists := s.hosts[id]; !exists {
		return nil, domain.ErrNotFound
	}
	return s.hostLocked(id), nil
}

func (s *Store) ListHosts(ctx context.Context, filter domain.HostFilter) ([]*domain.Host, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name := strings.ToLower(filter.Name)
	address := strings.ToLower(filter.Address)
	hosts := make([]*domain.Host, 0, len(s.hostOrder))
	for _, id := range s.hostOrder {
		h := s.hosts[id]
		if name != "" && !strings.Contains(strings.ToLower(h.Name), name) {
			continue
		}
		if address != "" && !strings.Contains(strings.ToLower(h.Address), address) {
			continue
		}
		hosts = append(hosts, s.hostLocked(id))
	}
	return hosts, nil
}

func (s *Store) UpdateHost(ctx context.Context, host *domain.Host) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, exists := s.hosts[host.ID]
	if !exists {
		return domain.ErrNotFound
	}
	record := cloneHostRecord(host)
	record.CreatedAt = existing.CreatedAt
	s.hosts[host.ID] = record
	s.hostTags[host.ID] = s.upsertTags(host.TagNames())
	host.CreatedAt = existing.CreatedAt
	host.Tags = s.hostTagsLocked(host.ID)
	return nil
}

func (s *Store) DeleteHost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.hosts[id]; !exists {
		return domain.ErrNotFound
	}
	delete(s.hosts, id)
	delete(s.hostTags, id)
	s.hostOrder = slices.DeleteFunc(s.hostOrder, func(hid string) bool { return hid == id })
	s.pings = slices.DeleteFunc(s.pings, func(p *domain.Ping) bool { return p.HostID == id })
	return nil
}

// upsertTags resolves tag names to ids, creating missing tags. Callers hold the write lock.
func (s *Store) upsertTags(names []string) []string {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		id, ok := s.tagByName[name]
		if !ok {
			id = uuid.New().String()
			s.tags[id] = &domain.Tag{ID: id, Name: name, CreatedAt: time.Now().UTC()}
			s.tagByName[name] = id
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *Store) hostTagsLocked(hostID string) []*domain.Tag {
	ids := s.hostTags[hostID]
	tags := make([]*domain.Tag, 0, len(ids))
	for _, id := range ids {
		t := *s.tags[id]
		tags = append(tags, &t)
	}
	return tags
}

func (s *Store) hostLocked(id string) *domain.Host {
	h := cloneHostRecord(s.hosts[id])
	h.Tags = s.hostTagsLocked(id)
	return h
}

func cloneHostRecord(h *domain.Host) *domain.Host {
	c := *h
	c.Tags = nil
	return &c
}

// ============================================
// Tags
// ============================================

func (s *Store) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tags := make([]*domain.Tag, 0, len(s.tags))
	for _, tag := range s.tags {
		t := *tag
		tags = append(tags, &t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

func (s *Store) ListHostsByTag(ctx context.Context, tagName string) ([]*domain.Host, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hosts := make([]*domain.Host, 0)
	tagID, ok := s.tagByName[tagName]
	if !ok {
		return hosts, nil
	}
	for _, id := range s.hostOrder {
		if slices.Contains(s.hostTags[id], tagID) {
			hosts = append(hosts, s.hostLocked(id))
		}
	}
	return hosts, nil
}

// ============================================
// Pings
// ============================================

func (s *Store) CreatePing(ctx context.Context, ping *domain.Ping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.hosts[ping.HostID]; !exists {
		return domain.ErrNotFound
	}
	for _, p := range s.pings {
		if p.ID == ping.ID {
			return domain.ErrAlreadyExists
		}
	}
	record := *ping
	record.Host = nil
	record.ICMPs = slices.Clone(ping.ICMPs)
	s.pings = append(s.pings, &record)
	return nil
}

func (s *Store) ListPings(ctx context.Context, hostID string) ([]*domain.Ping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pings := make([]*domain.Ping, 0)
	for _, p := range s.pings {
		if hostID != "" && p.HostID != hostID {
			continue
		}
		c := *p
		c.ICMPs = slices.Clone(p.ICMPs)
		c.Host = s.hostLocked(p.HostID)
		pings = append(pings, &c)
	}
	return pings, nil
}

// ============================================
// Users
// ============================================

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.ID]; exists {
		return domain.ErrAlreadyExists
	}
	if _, exists := s.userEmail[user.Email]; exists {
		return domain.ErrAlreadyExists
	}
	u := *user
	s.users[user.ID] = &u
	s.userEmail[user.Email] = user.ID
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, exists := s.users[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	u := *user
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, exists := s.userEmail[email]
	if !exists {
		return nil, domain.ErrNotFound
	}
	u := *s.users[id]
	return &u, nil
}
