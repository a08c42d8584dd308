// Package domain holds the persistent record shapes shared across the
// discovery worker: devices, identities, graph nodes/edges, topology
// snapshots, the reachability cache, and discovery jobs.
package domain

import "time"

// DeviceStatus is the device record lifecycle state.
type DeviceStatus string

const (
	StatusUnknown    DeviceStatus = "unknown"
	StatusReady      DeviceStatus = "ready"
	StatusNeedsCreds DeviceStatus = "needs_creds"
	StatusNeedsIP    DeviceStatus = "needs_ip"
	StatusScanning   DeviceStatus = "scanning"
	StatusError      DeviceStatus = "error"
)

// DeviceType is the capability-classifier output, persisted on both
// devices and links. The zero value (empty string) represents the
// unset/unknown case, stored as `null`.
type DeviceType string

const (
	TypeRouter       DeviceType = "router"
	TypeSwitch       DeviceType = "switch"
	TypeLayer3Switch DeviceType = "layer3_switch"
	TypeAP           DeviceType = "ap"
	TypeEnd          DeviceType = "end"
	TypeUnknown      DeviceType = "unknown"
)

// DefaultPlatform is the driver tag assumed when a device record does not
// specify one.
const DefaultPlatform = "cisco_ios"

// Device is the canonical record for one managed network device. Devices
// are created by the operator-facing API (external to this repository) or
// by the orchestrator on neighbor observation, and are mutated only through
// the transitions in the discovery orchestrator; the core never deletes one.
type Device struct {
	ID           string            `bson:"_id,omitempty" json:"id"`
	Host         string            `bson:"host" json:"host"`
	DisplayName  string            `bson:"display_name" json:"display_name"`
	Platform     string            `bson:"platform" json:"platform"`
	IdentityID   string            `bson:"identity_id,omitempty" json:"identity_id,omitempty"`
	Username     string            `bson:"username,omitempty" json:"username,omitempty"`
	Password     string            `bson:"password,omitempty" json:"password,omitempty"`
	Status       DeviceStatus      `bson:"status" json:"status"`
	Depth        int               `bson:"depth" json:"depth"`
	Parent       string            `bson:"parent,omitempty" json:"parent,omitempty"`
	DeviceType   DeviceType        `bson:"device_type,omitempty" json:"device_type,omitempty"`
	AlternateIPs []string          `bson:"alternate_ips" json:"alternate_ips"`
	InterfaceMap map[string]string `bson:"interface_map" json:"interface_map"`
	CreatedAt    time.Time         `bson:"created_at" json:"created_at"`
	LastSeen     time.Time         `bson:"last_seen" json:"last_seen"`
	Error        string            `bson:"error,omitempty" json:"error,omitempty"`
}

// HasCredentials reports whether the device has a usable username/password
// pair, either directly set or denormalized from an identity.
func (d *Device) HasCredentials() bool {
	return d.Username != "" && d.Password != ""
}

// Identity is a named, reusable credential set. At most one identity in the
// store may have IsDefault set.
type Identity struct {
	ID        string `bson:"_id,omitempty" json:"id"`
	Name      string `bson:"name" json:"name"`
	Username  string `bson:"username" json:"username"`
	Password  string `bson:"password" json:"password"`
	IsDefault bool   `bson:"is_default" json:"is_default"`
}

// GraphNode is one canonical vertex of the topology graph, keyed by an IPv4
// string or `name:<sysname>` when no management IP is known.
type GraphNode struct {
	ID        string    `bson:"_id" json:"id"`
	FirstSeen time.Time `bson:"first_seen" json:"first_seen"`
	LastSeen  time.Time `bson:"last_seen" json:"last_seen"`
}

// GraphLink is one canonical edge, keyed by the sorted endpoint pair.
type GraphLink struct {
	Key       string    `bson:"_id" json:"key"`
	A         string    `bson:"a" json:"a"`
	B         string    `bson:"b" json:"b"`
	IfA       string    `bson:"if_a" json:"if_a"`
	IfB       string    `bson:"if_b" json:"if_b"`
	FirstSeen time.Time `bson:"first_seen" json:"first_seen"`
	LastSeen  time.Time `bson:"last_seen" json:"last_seen"`
}

// TopologySnapshot is an append-only record of one successful discovery
// attempt's raw and resolved output.
type TopologySnapshot struct {
	ID          string      `bson:"_id,omitempty" json:"id"`
	SeedIP      string      `bson:"seed_ip" json:"seed_ip"`
	Nodes       []string    `bson:"nodes" json:"nodes"`
	Edges       []string    `bson:"edges" json:"edges"`
	InterfaceBrief string   `bson:"interface_brief" json:"interface_brief"`
	CreatedAt   time.Time   `bson:"created_at" json:"created_at"`
}

// ReachabilityCacheID is the singleton document id for the reachability
// cache collection.
const ReachabilityCacheID = "direct_reachable"

// ReachabilityCache is the singleton, TTL-bound record of which device IPs
// were directly TCP-reachable from the worker as of UpdatedAt.
type ReachabilityCache struct {
	ID            string    `bson:"_id" json:"id"`
	ReachableIPs  []string  `bson:"reachable_ips" json:"reachable_ips"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}

// DiscoveryJob is the transient message shape published to and consumed
// from the durable `discovery` queue.
type DiscoveryJob struct {
	Type          string `json:"type"`
	DeviceID      string `json:"device_id"`
	Depth         int    `json:"depth"`
	AutoRecursive bool   `json:"auto_recursive"`
	MaxDepth      int    `json:"max_depth"`
}
