package domain

// NeighborProtocol records which protocol produced a ParsedLink, per the
// LLDP-fallback rule: links from LLDP must have their DeviceType erased.
type NeighborProtocol string

const (
	ProtocolCDP         NeighborProtocol = "cdp"
	ProtocolLLDPFallback NeighborProtocol = "lldp_fallback"
)

// ParsedLink is one neighbor block emitted by the CDP or LLDP parser,
// before graph canonicalization. LocalIf and RemotePort are already
// interface-name normalized.
type ParsedLink struct {
	LocalIf      string
	RemoteSysname string
	RemotePort   string
	RemoteMgmtIP string
	DeviceType   DeviceType
	Protocol     NeighborProtocol
}
