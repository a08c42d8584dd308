package parser

import (
	"testing"

	"github.com/servak/topology-manager/internal/domain"
)

func TestClassifyCapabilities(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want domain.DeviceType
	}{
		{"empty", "", domain.TypeUnknown},
		{"source-route-bridge alone", "Source-Route-Bridge", domain.TypeUnknown},
		{"router + compound bridge", "Router Source-Route-Bridge", domain.TypeLayer3Switch},
		{"switch word with extra token", "Switch IGMP", domain.TypeSwitch},
		{"letters R,B", "R,B", domain.TypeLayer3Switch},
		{"standalone bridge", "Bridge", domain.TypeSwitch},
		{"case and whitespace insensitive", "  router   switch  ", domain.TypeLayer3Switch},
		{"host prefix", "Host", domain.TypeEnd},
		{"wireless prefix", "Wireless", domain.TypeAP},
		{"repeater ignored", "P", domain.TypeUnknown},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ClassifyCapabilities(c.in); got != c.want {
				t.Errorf("ClassifyCapabilities(%q) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}

func TestClassifyCapabilitiesEquivalence(t *testing.T) {
	// Equivalent capability strings (case, whitespace, order) must yield
	// the same device_type.
	variants := []string{"Router Switch", "switch router", "  ROUTER   SWITCH  ", "Switch, Router"}
	want := ClassifyCapabilities(variants[0])
	for _, v := range variants[1:] {
		if got := ClassifyCapabilities(v); got != want {
			t.Errorf("ClassifyCapabilities(%q) = %q, want %q", v, got, want)
		}
	}
}

func TestNormalizeIfNameIdempotent(t *testing.T) {
	names := []string{"GigabitEthernet0/1", "Gi0/1", "TenGigabitEthernet1/0/1", "FastEthernet0/1.100", "Port-channel10", "radio0", ""}
	for _, n := range names {
		once := NormalizeIfName(n)
		twice := NormalizeIfName(once)
		if once != twice {
			t.Errorf("NormalizeIfName not idempotent for %q: once=%q twice=%q", n, once, twice)
		}
	}
}

func TestNormalizeIfNameTable(t *testing.T) {
	cases := map[string]string{
		"GigabitEthernet0/1":      "Gi0/1",
		"GigEthernet0/1":          "Gi0/1",
		"Gi0/1":                   "Gi0/1",
		"TenGigabitEthernet1/0/1": "Te1/0/1",
		"TenGigE1/0/1":            "Te1/0/1",
		"FastEthernet0/1":         "Fa0/1",
		"Ethernet0":               "Et0",
		"Port-channel10":          "Po10",
		"Port-Channel10":          "Po10",
		"Loopback0":               "Lo0",
		"Vlan100":                 "Vl100",
		"radio0":                  "radio0",
	}
	for in, want := range cases {
		if got := NormalizeIfName(in); got != want {
			t.Errorf("NormalizeIfName(%q) = %q, want %q", in, got, want)
		}
	}
}
