// Package store defines the persistence interface the discovery engine
// needs against six document collections: devices, identities,
// graph_nodes, graph_links, topology, and reachability_cache. Two
// implementations satisfy it: mongostore (backed by a real document
// store) and memstore (an in-memory fake used by tests), following a
// repository-interface-plus-swappable-backend pattern.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/servak/topology-manager/internal/domain"
)

// ErrNotFound is returned when a lookup finds no matching document.
var ErrNotFound = errors.New("store: not found")

// Store is the full persistence surface the discovery worker depends on.
type Store interface {
	// Devices
	GetDevice(ctx context.Context, id string) (*domain.Device, error)
	GetDeviceByHost(ctx context.Context, host string) (*domain.Device, error)
	GetDeviceByDisplayNameNoHost(ctx context.Context, displayName string) (*domain.Device, error)
	GetDeviceByDisplayName(ctx context.Context, displayName string) (*domain.Device, error)
	FindDeviceByAlternateIP(ctx context.Context, ip string) (*domain.Device, error)
	InsertDevice(ctx context.Context, d *domain.Device) (string, error)
	UpdateDevice(ctx context.Context, d *domain.Device) error
	ListDevicesByStatus(ctx context.Context, statuses ...domain.DeviceStatus) ([]*domain.Device, error)

	// Identities
	GetDefaultIdentity(ctx context.Context) (*domain.Identity, error)

	// Graph
	UpsertGraphNode(ctx context.Context, id string, now time.Time) error
	UpsertGraphLink(ctx context.Context, link *domain.GraphLink) error
	ListGraphLinks(ctx context.Context) ([]*domain.GraphLink, error)

	// Topology snapshots
	InsertSnapshot(ctx context.Context, snap *domain.TopologySnapshot) error

	// Reachability cache
	GetReachabilityCache(ctx context.Context) (*domain.ReachabilityCache, error)
	PutReachabilityCache(ctx context.Context, cache *domain.ReachabilityCache) error

	Close(ctx context.Context) error
}
