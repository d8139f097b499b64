package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/luizchaves/host-monitor/internal/domain"
	"github.com/luizchaves/host-monitor/internal/logger"
	"github.com/luizchaves/host-monitor/internal/probe"
	"github.com/luizchaves/host-monitor/internal/storage"
	"github.com/luizchaves/host-monitor/internal/validation"
)

// Prober runs a reachability check against an address.
type Prober interface {
	Probe(ctx context.Context, address string, count int) (*probe.Result, error)
}

// PingService probes hosts and keeps their ping history.
type PingService struct {
	store  storage.Storage
	prober Prober
	log    *logger.Logger
	now    func() time.Time
}

// NewPingService creates a new PingService.
func NewPingService(store storage.Storage, prober Prober, log *logger.Logger) *PingService {
	if log == nil {
		log = logger.Discard()
	}
	return &PingService{store: store, prober: prober, log: log, now: time.Now}
}

// Create probes the host with id hostID count times and records the result.
// Only a host that answered produces a Ping; a silent host is a probe error.
// The probe is not cancelled when ctx is, so a disconnecting caller cannot
// leave a half-run probe behind.
func (s *PingService) Create(ctx context.Context, hostID string, count int) (*domain.Ping, error) {
	if err := validation.ValidatePingCount(count); err != nil {
		return nil, domain.NewValidationError("count", err.Error())
	}

	host, err := s.store.GetHost(ctx, hostID)
	if err != nil {
		return nil, storeError(err, "host", "get")
	}

	log := logger.FromContext(ctx, s.log).With("host_id", host.ID, "address", host.Address, "count", count)
	ctx = context.WithoutCancel(ctx)

	res, err := s.prober.Probe(ctx, host.Address, count)
	if err != nil {
		log.Warn("probe failed", "error", err)
		if domain.KindOf(err) == domain.KindProbe {
			return nil, err
		}
		return nil, domain.NewProbeError(fmt.Sprintf("cannot probe %s", host.Address), err)
	}
	if !res.Alive {
		log.Info("host did not answer", "transmitted", res.Stats.Transmitted)
		return nil, domain.NewProbeError(fmt.Sprintf("host %s did not answer", host.Address), nil)
	}

	ping := &domain.Ping{
		ID:        uuid.New().String(),
		HostID:    host.ID,
		Host:      host,
		Output:    res.Output,
		ICMPs:     res.ICMPs,
		Stats:     res.Stats,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreatePing(ctx, ping); err != nil {
		return nil, storeError(err, "host", "record ping for")
	}

	log.Debug("ping recorded", "ping_id", ping.ID, "received", res.Stats.Received)
	return ping, nil
}

// List returns the pings of hostID, or every ping when hostID is empty,
// oldest first.
func (s *PingService) List(ctx context.Context, hostID string) ([]*domain.Ping, error) {
	pings, err := s.store.ListPings(ctx, hostID)
	if err != nil {
		return nil, storeError(err, "pings", "list")
	}
	return pings, nil
}
