// Package parser implements the pure, total text transforms that turn raw
// CDP/LLDP neighbor-command output into normalized links and a
// capability-based device classification. None of these functions may
// error: malformed input degrades to empty results per the error handling
// policy for parser and classifier functions.
package parser

import "regexp"

type ifPrefix struct {
	pattern *regexp.Regexp
	short   string
}

// ifPrefixes mirrors the long-form-to-short-form interface name table.
// Each pattern anchors at the start of the string and only matches when
// immediately followed by a digit; that digit is captured and written
// back, so suffixes (unit/module/port, .sub) are always preserved
// verbatim.
var ifPrefixes = []ifPrefix{
	{regexp.MustCompile(`(?i)^(?:GigabitEthernet|GigEthernet|GigEth|Gi)(\d)`), "Gi"},
	{regexp.MustCompile(`(?i)^(?:TenGigabitEthernet|TenGigE|Te)(\d)`), "Te"},
	{regexp.MustCompile(`(?i)^(?:FastEthernet|FastEth|Fa)(\d)`), "Fa"},
	{regexp.MustCompile(`(?i)^(?:Ethernet|Eth|Et)(\d)`), "Et"},
	{regexp.MustCompile(`(?i)^(?:Port-channel|Port-Channel|Po)(\d)`), "Po"},
	{regexp.MustCompile(`(?i)^(?:Loopback|Lo)(\d)`), "Lo"},
	{regexp.MustCompile(`(?i)^(?:Vlan|Vl)(\d)`), "Vl"},
}

// NormalizeIfName collapses a long-form Cisco interface name to its short
// form, preserving the slash-separated unit/module/port suffix and any
// trailing `.sub` verbatim. Non-matching names pass through unchanged.
// Idempotent: NormalizeIfName(NormalizeIfName(x)) == NormalizeIfName(x).
func NormalizeIfName(name string) string {
	if name == "" {
		return name
	}
	for _, p := range ifPrefixes {
		if p.pattern.MatchString(name) {
			return p.pattern.ReplaceAllString(name, p.short+"${1}")
		}
	}
	return name
}
