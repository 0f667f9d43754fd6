package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	TunnelSuffix   = " Tunnel"
	BridgeSuffix   = " Bridge"
	ElevatedSuffix = " Elevated"
)

// fold lowercases, strips diacritics and collapses whitespace so localized
// titles ("Route Nationale à 2 voies") match the same patterns as ASCII names.
func fold(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if !unicode.Is(unicode.Mn, r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(strings.ToLower(b.String())), " ")
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

func trimSuffixFold(s, suffix string) string {
	if !hasSuffixFold(s, suffix) {
		return s
	}
	return strings.TrimSpace(s[:len(s)-len(suffix)])
}

// ContainsFold reports whether substr is within s, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// StripTunnel removes a trailing " Tunnel" marker, reporting whether one was present.
func StripTunnel(name string) (string, bool) {
	if hasSuffixFold(name, TunnelSuffix) {
		return name[:len(name)-len(TunnelSuffix)], true
	}
	return name, false
}

// SplitVariant separates a canonical name into its base and tunnel/bridge/elevated suffix.
// The suffix keeps its leading space so base+suffix reproduces the input.
func SplitVariant(name string) (base, suffix string) {
	for _, sfx := range []string{TunnelSuffix, BridgeSuffix, ElevatedSuffix} {
		if hasSuffixFold(name, sfx) {
			return name[:len(name)-len(sfx)], name[len(name)-len(sfx):]
		}
	}
	return name, ""
}
