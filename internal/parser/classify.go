package parser

import (
	"strings"

	"github.com/servak/topology-manager/internal/domain"
)

// ClassifyCapabilities maps a free-form CDP or LLDP capability string to a
// device type. Tokens are split on whitespace, commas, parentheses, and
// slashes. Single-letter Cisco codes and word-form prefixes both
// contribute to a normalized set, and priority among the set decides the
// final type. Empty input yields TypeUnknown. This function never errors.
func ClassifyCapabilities(capsText string) domain.DeviceType {
	replacer := strings.NewReplacer("(", " ", ")", " ", "/", " ", ",", " ")
	txt := replacer.Replace(capsText)

	norm := make(map[string]bool)
	for _, raw := range strings.Fields(txt) {
		t := strings.ToLower(strings.TrimSpace(raw))
		if t == "" {
			continue
		}
		if len(t) == 1 {
			switch t {
			case "r":
				norm["router"] = true
			case "b", "s":
				norm["switch"] = true
			case "h":
				norm["end"] = true
			case "w":
				norm["ap"] = true
			}
			// "p" (repeater) is explicitly ignored.
			continue
		}
		switch {
		case strings.HasPrefix(t, "router"):
			norm["router"] = true
		case strings.HasPrefix(t, "switch"):
			norm["switch"] = true
		case t == "bridge":
			// A standalone "bridge" token counts on its own.
			norm["switch"] = true
		case strings.HasSuffix(t, "-bridge"):
			// A compound like "source-route-bridge" is too weak a signal
			// to call "switch" on its own, but combined with "router" it
			// still indicates a layer-3-capable bridging device.
			norm["bridgelike"] = true
		case strings.HasPrefix(t, "host"), strings.HasPrefix(t, "station"):
			norm["end"] = true
		case strings.HasPrefix(t, "wlan"), strings.HasPrefix(t, "wireless"):
			norm["ap"] = true
		}
	}

	switch {
	case norm["router"] && (norm["switch"] || norm["bridgelike"]):
		return domain.TypeLayer3Switch
	case norm["router"]:
		return domain.TypeRouter
	case norm["switch"]:
		return domain.TypeSwitch
	case norm["ap"]:
		return domain.TypeAP
	case norm["end"]:
		return domain.TypeEnd
	default:
		return domain.TypeUnknown
	}
}

// ClassifyLLDPCapabilities classifies an LLDP neighbor from its system and
// enabled capability strings, both optional, by concatenating them and
// reusing the CDP classifier.
func ClassifyLLDPCapabilities(sysCaps, enabledCaps string) domain.DeviceType {
	return ClassifyCapabilities(sysCaps + " " + enabledCaps)
}
