package parser

import (
	"regexp"
	"strings"

	"github.com/servak/topology-manager/internal/domain"
)

var (
	cdpInterfaceRe = regexp.MustCompile(`(?i)Interface:\s*([\w/.]+),`)
	cdpPortIDRe    = regexp.MustCompile(`(?i)Port ID \(outgoing port\):\s*([^\r\n]+)`)
	cdpMgmtIPRe    = regexp.MustCompile(`(?i)IP address:\s*(\d{1,3}(?:\.\d{1,3}){3})`)
	cdpCapsRe      = regexp.MustCompile(`(?i)Capabilities:\s*([^\r\n]+)`)
)

// ParseCDP splits `show cdp neighbors detail` output on the literal anchor
// "Device ID:" and extracts one ParsedLink per following block. A block is
// emitted only when both an Interface: line and a non-blank sysname were
// found. Total over all inputs: malformed or empty text yields an empty
// slice, never an error.
func ParseCDP(text string) []domain.ParsedLink {
	blocks := regexp.MustCompile(`Device ID:\s*`).Split(text, -1)
	var links []domain.ParsedLink
	for _, b := range blocks[1:] {
		var sysname string
		for _, line := range strings.Split(b, "\n") {
			if strings.TrimSpace(line) != "" {
				sysname = strings.TrimSpace(line)
				break
			}
		}
		if sysname == "" {
			continue
		}
		ifMatch := cdpInterfaceRe.FindStringSubmatch(b)
		if ifMatch == nil {
			continue
		}

		link := domain.ParsedLink{
			LocalIf:       NormalizeIfName(strings.TrimSpace(ifMatch[1])),
			RemoteSysname: sysname,
			Protocol:      domain.ProtocolCDP,
		}
		if m := cdpPortIDRe.FindStringSubmatch(b); m != nil {
			link.RemotePort = NormalizeIfName(strings.TrimSpace(m[1]))
		}
		if m := cdpMgmtIPRe.FindStringSubmatch(b); m != nil {
			link.RemoteMgmtIP = strings.TrimSpace(m[1])
		}
		caps := ""
		if m := cdpCapsRe.FindStringSubmatch(b); m != nil {
			caps = m[1]
		}
		link.DeviceType = ClassifyCapabilities(caps)

		links = append(links, link)
	}
	return links
}
