// Package memstore is an in-memory Store fake guarded by a sync.RWMutex,
// used by the orchestrator and graph tests in place of a live MongoDB
// instance: a map-backed repository satisfying the same interface as the
// real backend.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/servak/topology-manager/internal/domain"
	"github.com/servak/topology-manager/internal/store"
)

type Store struct {
	mu sync.RWMutex

	devices    map[string]*domain.Device
	identities map[string]*domain.Identity
	nodes      map[string]*domain.GraphNode
	links      map[string]*domain.GraphLink
	snapshots  []*domain.TopologySnapshot
	cache      *domain.ReachabilityCache
}

func New() *Store {
	return &Store{
		devices:    make(map[string]*domain.Device),
		identities: make(map[string]*domain.Identity),
		nodes:      make(map[string]*domain.GraphNode),
		links:      make(map[string]*domain.GraphLink),
	}
}

// SeedDevice and SeedIdentity let tests populate fixtures directly.
func (s *Store) SeedDevice(d *domain.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	cp := *d
	s.devices[cp.ID] = &cp
}

func (s *Store) SeedIdentity(id *domain.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id.ID == "" {
		id.ID = uuid.NewString()
	}
	cp := *id
	s.identities[cp.ID] = &cp
}

func (s *Store) GetDevice(_ context.Context, id string) (*domain.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *Store) GetDeviceByHost(_ context.Context, host string) (*domain.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.devices {
		if d.Host == host && host != "" {
			cp := *d
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetDeviceByDisplayNameNoHost(_ context.Context, displayName string) (*domain.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.devices {
		if d.DisplayName == displayName && d.Host == "" {
			cp := *d
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetDeviceByDisplayName(_ context.Context, displayName string) (*domain.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.devices {
		if d.DisplayName == displayName && d.Host != "" {
			cp := *d
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) FindDeviceByAlternateIP(_ context.Context, ip string) (*domain.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.devices {
		for _, alt := range d.AlternateIPs {
			if alt == ip {
				cp := *d
				return &cp, nil
			}
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) InsertDevice(_ context.Context, d *domain.Device) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	cp := *d
	s.devices[cp.ID] = &cp
	return cp.ID, nil
}

func (s *Store) UpdateDevice(_ context.Context, d *domain.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[d.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *d
	s.devices[cp.ID] = &cp
	return nil
}

func (s *Store) ListDevicesByStatus(_ context.Context, statuses ...domain.DeviceStatus) ([]*domain.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[domain.DeviceStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	var out []*domain.Device
	for _, d := range s.devices {
		if want[d.Status] {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetDefaultIdentity(_ context.Context) (*domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.identities {
		if id.IsDefault {
			cp := *id
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpsertGraphNode(_ context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		s.nodes[id] = &domain.GraphNode{ID: id, FirstSeen: now, LastSeen: now}
		return nil
	}
	n.LastSeen = now
	return nil
}

func (s *Store) UpsertGraphLink(_ context.Context, link *domain.GraphLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.links[link.Key]
	if !ok {
		cp := *link
		s.links[link.Key] = &cp
		return nil
	}
	existing.A = link.A
	existing.B = link.B
	existing.IfA = link.IfA
	existing.IfB = link.IfB
	existing.LastSeen = link.LastSeen
	return nil
}

func (s *Store) ListGraphLinks(_ context.Context) ([]*domain.GraphLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.GraphLink, 0, len(s.links))
	for _, l := range s.links {
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) InsertSnapshot(_ context.Context, snap *domain.TopologySnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	cp := *snap
	s.snapshots = append(s.snapshots, &cp)
	return nil
}

func (s *Store) GetReachabilityCache(_ context.Context) (*domain.ReachabilityCache, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cache == nil {
		return nil, store.ErrNotFound
	}
	cp := *s.cache
	return &cp, nil
}

func (s *Store) PutReachabilityCache(_ context.Context, cache *domain.ReachabilityCache) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cache
	s.cache = &cp
	return nil
}

func (s *Store) Close(_ context.Context) error { return nil }

// Snapshots exposes inserted snapshots for test assertions.
func (s *Store) Snapshots() []*domain.TopologySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.TopologySnapshot, len(s.snapshots))
	copy(out, s.snapshots)
	return out
}

// Devices exposes the raw device map for test assertions.
func (s *Store) Devices() map[string]*domain.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*domain.Device, len(s.devices))
	for k, v := range s.devices {
		cp := *v
		out[k] = &cp
	}
	return out
}

var _ store.Store = (*Store)(nil)
