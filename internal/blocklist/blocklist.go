// Package blocklist implements the static access filter: a list of client
// addresses whose requests are silently dropped and a list of user-agent
// fragments that are refused outright. Lists come from config and are
// swapped atomically on reload.
package blocklist

import (
	"net/netip"
	"strings"
	"sync/atomic"
)

// Matcher is an immutable compiled form of the two lists. Build one with
// Compile and publish it through a List.
type Matcher struct {
	exactIPs map[string]struct{}
	prefixes []netip.Prefix
	agents   []string // lowercase fragments
}

// Compile builds a Matcher from raw config entries. IP entries may be single
// addresses or CIDR ranges; unparseable entries are kept as literal strings
// so an operator typo never silently widens access. User-agent entries match
// case-insensitively as substrings, the way the legacy deployment checked
// them.
func Compile(ips, userAgents []string) *Matcher {
	m := &Matcher{
		exactIPs: make(map[string]struct{}, len(ips)),
		agents:   make([]string, 0, len(userAgents)),
	}

	for _, raw := range ips {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if p, err := netip.ParsePrefix(raw); err == nil {
			m.prefixes = append(m.prefixes, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(raw); err == nil {
			m.exactIPs[a.Unmap().String()] = struct{}{}
			continue
		}
		m.exactIPs[raw] = struct{}{}
	}

	for _, raw := range userAgents {
		raw = strings.TrimSpace(strings.ToLower(raw))
		if raw != "" {
			m.agents = append(m.agents, raw)
		}
	}

	return m
}

// MatchIP reports whether the client address is on the drop list.
func (m *Matcher) MatchIP(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		// Not a parseable address: fall back to literal comparison.
		_, ok := m.exactIPs[ip]
		return ok
	}
	addr = addr.Unmap()

	if _, ok := m.exactIPs[addr.String()]; ok {
		return true
	}
	for _, p := range m.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// MatchUserAgent reports whether the user-agent string contains any refused
// fragment.
func (m *Matcher) MatchUserAgent(ua string) bool {
	if len(m.agents) == 0 {
		return false
	}
	ua = strings.ToLower(ua)
	for _, frag := range m.agents {
		if strings.Contains(ua, frag) {
			return true
		}
	}
	return false
}

// Empty reports whether both lists are empty.
func (m *Matcher) Empty() bool {
	return len(m.exactIPs) == 0 && len(m.prefixes) == 0 && len(m.agents) == 0
}

// List holds the active Matcher and supports lock-free reads with atomic
// replacement on config reload.
type List struct {
	current atomic.Pointer[Matcher]
}

// New creates a List with an initial compiled matcher.
func New(ips, userAgents []string) *List {
	l := &List{}
	l.current.Store(Compile(ips, userAgents))
	return l
}

// Load returns the active matcher. Never nil.
func (l *List) Load() *Matcher {
	return l.current.Load()
}

// Replace swaps in a freshly compiled matcher. In-flight requests keep the
// matcher they already loaded.
func (l *List) Replace(ips, userAgents []string) {
	l.current.Store(Compile(ips, userAgents))
}
