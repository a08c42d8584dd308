package parser

import (
	"regexp"
	"strings"

	"github.com/servak/topology-manager/internal/domain"
)

var (
	lldpBlockSplitRe = regexp.MustCompile(`-{5,}`)
	lldpLocalIfRe    = regexp.MustCompile(`(?i)Local Intf:\s*([\w/.]+)`)
	lldpSysnameRe    = regexp.MustCompile(`(?i)System Name:\s*([^\r\n]+)`)
	lldpPortDescRe   = regexp.MustCompile(`(?i)Port Description:\s*([^\r\n]+)`)
	lldpSysCapsRe    = regexp.MustCompile(`(?i)System Capabilities:\s*([^\r\n]+)`)
	lldpEnCapsRe     = regexp.MustCompile(`(?i)Enabled Capabilities:\s*([^\r\n]+)`)

	ipv4Pattern = `(\d{1,3}(?:\.\d{1,3}){3})`
	ipv6Pattern = `([0-9A-Fa-f:]+)`

	mgmtIPv4SingleLineRe = regexp.MustCompile(`(?i)Management Address(?:es)?:\s*(?:IP:\s*)?` + ipv4Pattern)
	mgmtIPv4MultiLineRe  = regexp.MustCompile(`(?i)Management Addresses:\s*(?:\r?\n)+\s*IP:\s*` + ipv4Pattern)
	mgmtIPv6SingleLineRe = regexp.MustCompile(`(?i)Management Address(?:es)?:\s*(?:IPv6:\s*)?` + ipv6Pattern)
	mgmtIPv6MultiLineRe  = regexp.MustCompile(`(?i)Management Addresses:\s*(?:\r?\n)+\s*IPv6:\s*` + ipv6Pattern)
)

// findMgmtIP recovers a management address from an LLDP neighbor block,
// trying four patterns in order and returning on the first match:
// single-line IPv4, multi-line IPv4, single-line IPv6, multi-line IPv6.
func findMgmtIP(block string) string {
	if m := mgmtIPv4SingleLineRe.FindStringSubmatch(block); m != nil {
		return m[1]
	}
	if m := mgmtIPv4MultiLineRe.FindStringSubmatch(block); m != nil {
		return m[1]
	}
	if m := mgmtIPv6SingleLineRe.FindStringSubmatch(block); m != nil {
		return m[1]
	}
	if m := mgmtIPv6MultiLineRe.FindStringSubmatch(block); m != nil {
		return m[1]
	}
	return ""
}

// ParseLLDP splits `show lldp neighbors detail` output on runs of five or
// more dashes and extracts one ParsedLink per block carrying both a Local
// Intf: and System Name: line. Total over all inputs.
func ParseLLDP(text string) []domain.ParsedLink {
	blocks := lldpBlockSplitRe.Split(text, -1)
	var links []domain.ParsedLink
	for _, b := range blocks {
		if strings.TrimSpace(b) == "" {
			continue
		}
		localIf := lldpLocalIfRe.FindStringSubmatch(b)
		sysname := lldpSysnameRe.FindStringSubmatch(b)
		if localIf == nil || sysname == nil {
			continue
		}

		link := domain.ParsedLink{
			LocalIf:       NormalizeIfName(strings.TrimSpace(localIf[1])),
			RemoteSysname: strings.TrimSpace(sysname[1]),
			RemoteMgmtIP:  findMgmtIP(b),
			Protocol:      domain.ProtocolLLDPFallback,
		}
		if m := lldpPortDescRe.FindStringSubmatch(b); m != nil {
			link.RemotePort = NormalizeIfName(strings.TrimSpace(m[1]))
		}

		sysCaps := ""
		if m := lldpSysCapsRe.FindStringSubmatch(b); m != nil {
			sysCaps = m[1]
		}
		enCaps := ""
		if m := lldpEnCapsRe.FindStringSubmatch(b); m != nil {
			enCaps = m[1]
		}
		// The orchestrator erases DeviceType on every LLDP-fallback link;
		// classification is still computed here so callers that need it
		// pre-erasure (e.g. diagnostics) can see it.
		link.DeviceType = ClassifyLLDPCapabilities(sysCaps, enCaps)

		links = append(links, link)
	}
	return links
}
