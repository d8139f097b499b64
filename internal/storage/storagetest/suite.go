// Package storagetest holds a conformance suite shared by every
// storage.Storage implementation.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luizchaves/host-monitor/internal/domain"
	"github.com/luizchaves/host-monitor/internal/storage"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) storage.Storage

// Run executes the conformance suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("HostRoundTrip", func(t *testing.T) { testHostRoundTrip(t, newStore(t)) })
	t.Run("HostNotFound", func(t *testing.T) { testHostNotFound(t, newStore(t)) })
	t.Run("ListHostsFilter", func(t *testing.T) { testListHostsFilter(t, newStore(t)) })
	t.Run("UpdateHostReplacesTags", func(t *testing.T) { testUpdateHostReplacesTags(t, newStore(t)) })
	t.Run("DeleteHostCascades", func(t *testing.T) { testDeleteHostCascades(t, newStore(t)) })
	t.Run("TagUpsertByName", func(t *testing.T) { testTagUpsertByName(t, newStore(t)) })
	t.Run("Pings", func(t *testing.T) { testPings(t, newStore(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("ConcurrentWrites", func(t *testing.T) { testConcurrentWrites(t, newStore(t)) })
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newHost(name, address string, offset int, tags ...string) *domain.Host {
	at := base.Add(time.Duration(offset) * time.Second)
	h := &domain.Host{
		ID:        uuid.New().String(),
		Name:      name,
		Address:   address,
		CreatedAt: at,
		UpdatedAt: at,
	}
	for _, tag := range tags {
		h.Tags = append(h.Tags, &domain.Tag{Name: tag})
	}
	return h
}

func hostNames(hosts []*domain.Host) []string {
	names := make([]string, 0, len(hosts))
	for _, h := range hosts {
		names = append(names, h.Name)
	}
	return names
}

func testHostRoundTrip(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	host := newHost("DNS Server", "1.1.1.1", 0, "DNS", "Cloudflare")
	require.NoError(t, s.CreateHost(ctx, host))

	require.Len(t, host.Tags, 2)
	assert.NotEmpty(t, host.Tags[0].ID)

	got, err := s.GetHost(ctx, host.ID)
	require.NoError(t, err)
	assert.Equal(t, host.ID, got.ID)
	assert.Equal(t, "DNS Server", got.Name)
	assert.Equal(t, "1.1.1.1", got.Address)
	assert.Equal(t, []string{"DNS", "Cloudflare"}, got.TagNames())

	// Mutating the returned copy must not leak into the store.
	got.Name = "changed"
	again, err := s.GetHost(ctx, host.ID)
	require.NoError(t, err)
	assert.Equal(t, "DNS Server", again.Name)

	assert.ErrorIs(t, s.CreateHost(ctx, host), domain.ErrAlreadyExists)
}

func testHostNotFound(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	_, err := s.GetHost(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = s.UpdateHost(ctx, newHost("ghost", "10.0.0.1", 0))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, s.DeleteHost(ctx, "missing"), domain.ErrNotFound)

	hosts, err := s.ListHosts(ctx, domain.HostFilter{})
	require.NoError(t, err)
	assert.Empty(t, hosts)
}

func testListHostsFilter(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	require.NoError(t, s.CreateHost(ctx, newHost("DNS Server", "1.1.1.1", 0)))
	require.NoError(t, s.CreateHost(ctx, newHost("Google dns", "8.8.8.8", 1)))
	require.NoError(t, s.CreateHost(ctx, newHost("Router", "192.168.0.1", 2)))
	require.NoError(t, s.CreateHost(ctx, newHost("100%_up", "host.example.com", 3)))

	all, err := s.ListHosts(ctx, domain.HostFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"DNS Server", "Google dns", "Router", "100%_up"}, hostNames(all))

	again, err := s.ListHosts(ctx, domain.HostFilter{})
	require.NoError(t, err)
	assert.Equal(t, all, again)

	byName, err := s.ListHosts(ctx, domain.HostFilter{Name: "dns"})
	require.NoError(t, err)
	assert.Equal(t, []string{"DNS Server", "Google dns"}, hostNames(byName))

	byAddress, err := s.ListHosts(ctx, domain.HostFilter{Address: "192.168"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Router"}, hostNames(byAddress))

	both, err := s.ListHosts(ctx, domain.HostFilter{Name: "DNS", Address: "8.8"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Google dns"}, hostNames(both))

	// LIKE wildcards in the filter are matched literally.
	literal, err := s.ListHosts(ctx, domain.HostFilter{Name: "%_"})
	require.NoError(t, err)
	assert.Equal(t, []string{"100%_up"}, hostNames(literal))

	none, err := s.ListHosts(ctx, domain.HostFilter{Name: "nothing"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testUpdateHostReplacesTags(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	host := newHost("DNS Server", "1.1.1.1", 0, "DNS")
	require.NoError(t, s.CreateHost(ctx, host))

	updated := &domain.Host{
		ID:        host.ID,
		Name:      "Cloudflare DNS",
		Address:   "1.0.0.1",
		Tags:      []*domain.Tag{{Name: "Cloudflare"}, {Name: "Public"}},
		UpdatedAt: base.Add(time.Minute),
	}
	require.NoError(t, s.UpdateHost(ctx, updated))
	assert.True(t, host.CreatedAt.Equal(updated.CreatedAt))

	got, err := s.GetHost(ctx, host.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cloudflare DNS", got.Name)
	assert.Equal(t, "1.0.0.1", got.Address)
	assert.Equal(t, []string{"Cloudflare", "Public"}, got.TagNames())

	// The old tag survives but no longer points at the host.
	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 3)

	hosts, err := s.ListHostsByTag(ctx, "DNS")
	require.NoError(t, err)
	assert.Empty(t, hosts)
}

func testDeleteHostCascades(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	keep := newHost("Keep", "10.0.0.1", 0, "shared")
	drop := newHost("Drop", "10.0.0.2", 1, "shared")
	require.NoError(t, s.CreateHost(ctx, keep))
	require.NoError(t, s.CreateHost(ctx, drop))
	require.NoError(t, s.CreatePing(ctx, newPing(drop.ID, 0)))
	require.NoError(t, s.CreatePing(ctx, newPing(keep.ID, 1)))

	require.NoError(t, s.DeleteHost(ctx, drop.ID))

	_, err := s.GetHost(ctx, drop.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	hosts, err := s.ListHostsByTag(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, []string{"Keep"}, hostNames(hosts))

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "shared", tags[0].Name)

	pings, err := s.ListPings(ctx, "")
	require.NoError(t, err)
	require.Len(t, pings, 1)
	assert.Equal(t, keep.ID, pings[0].HostID)
}

func testTagUpsertByName(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	a := newHost("A", "10.0.0.1", 0, "web", "prod")
	b := newHost("B", "10.0.0.2", 1, "prod", "db")
	require.NoError(t, s.CreateHost(ctx, a))
	require.NoError(t, s.CreateHost(ctx, b))

	assert.Equal(t, a.Tags[1].ID, b.Tags[0].ID, "same tag name must resolve to one tag")

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	assert.Equal(t, []string{"db", "prod", "web"}, names)

	prod, err := s.ListHostsByTag(ctx, "prod")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, hostNames(prod))

	unknown, err := s.ListHostsByTag(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, unknown)
}

func newPing(hostID string, offset int) *domain.Ping {
	return &domain.Ping{
		ID:     uuid.New().String(),
		HostID: hostID,
		Output: "PING output",
		ICMPs: []domain.ICMP{
			{Seq: 1, TTL: 57, Time: 11.2},
			{Seq: 2, TTL: 57, Time: 10.9},
		},
		Stats:     domain.PingStats{Transmitted: 2, Received: 2, Time: 1001},
		CreatedAt: base.Add(time.Duration(offset) * time.Second),
	}
}

func testPings(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	a := newHost("A", "10.0.0.1", 0)
	b := newHost("B", "10.0.0.2", 1)
	require.NoError(t, s.CreateHost(ctx, a))
	require.NoError(t, s.CreateHost(ctx, b))

	first := newPing(a.ID, 0)
	require.NoError(t, s.CreatePing(ctx, first))
	require.NoError(t, s.CreatePing(ctx, newPing(b.ID, 1)))
	require.NoError(t, s.CreatePing(ctx, newPing(a.ID, 2)))

	assert.ErrorIs(t, s.CreatePing(ctx, newPing("missing", 3)), domain.ErrNotFound)

	all, err := s.ListPings(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, first.ICMPs, all[0].ICMPs)
	assert.Equal(t, first.Stats, all[0].Stats)
	require.NotNil(t, all[0].Host)
	assert.Equal(t, "A", all[0].Host.Name)

	forA, err := s.ListPings(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, forA, 2)

	forMissing, err := s.ListPings(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, forMissing)
}

func testUsers(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	user := &domain.User{
		ID:           uuid.New().String(),
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		CreatedAt:    base,
	}
	require.NoError(t, s.CreateUser(ctx, user))

	dup := &domain.User{
		ID:           uuid.New().String(),
		Name:         "Mallory",
		Email:        "alice@example.com",
		PasswordHash: "other",
		CreatedAt:    base,
	}
	assert.ErrorIs(t, s.CreateUser(ctx, dup), domain.ErrAlreadyExists)

	got, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, "hash", got.PasswordHash)

	byEmail, err := s.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = s.GetUser(ctx, dup.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetUserByEmail(ctx, "bob@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testConcurrentWrites(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	const workers = 16
	const rounds = 5

	target := newHost("Target", "10.0.0.254", 0, "shared")
	require.NoError(t, s.CreateHost(ctx, target))

	hosts := make([]*domain.Host, workers)
	for i := range hosts {
		hosts[i] = newHost(fmt.Sprintf("host-%02d", i), fmt.Sprintf("10.0.1.%d", i+1), i+1)
	}

	var wg sync.WaitGroup
	errs := make(chan error, workers*(rounds*2+1))
	for i := range hosts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			host := hosts[i]
			host.Tags = []*domain.Tag{{Name: "shared"}, {Name: fmt.Sprintf("own-%d", i)}}
			if err := s.CreateHost(ctx, host); err != nil {
				errs <- fmt.Errorf("create %s: %w", host.Name, err)
				return
			}
			for r := 0; r < rounds; r++ {
				if err := s.CreatePing(ctx, newPing(host.ID, r)); err != nil {
					errs <- fmt.Errorf("ping %s: %w", host.Name, err)
				}
				update := &domain.Host{
					ID:        target.ID,
					Name:      fmt.Sprintf("Target %d-%d", i, r),
					Address:   "10.0.0.254",
					Tags:      []*domain.Tag{{Name: "shared"}},
					UpdatedAt: base.Add(time.Hour),
				}
				if err := s.UpdateHost(ctx, update); err != nil {
					errs <- fmt.Errorf("update target: %w", err)
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	pings, err := s.ListPings(ctx, "")
	require.NoError(t, err)
	assert.Len(t, pings, workers*rounds)

	shared, err := s.ListHostsByTag(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, shared, workers+1)

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, workers+1, "one shared tag plus one per host")

	got, err := s.GetHost(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"shared"}, got.TagNames())
	assert.Contains(t, got.Name, "Target ")
}
