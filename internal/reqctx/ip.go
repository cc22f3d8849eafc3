package reqctx

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIPResolver extracts the originating client address from a request,
// honoring proxy headers only when the direct peer is trusted.
type ClientIPResolver struct {
	trusted []netip.Prefix
	depth   int
}

// NewClientIPResolver compiles the trusted proxy CIDR list. With no trusted
// ranges configured, proxy headers are always honored (the PaaS deployments
// this service targets always sit behind a platform proxy). depth selects
// which X-Forwarded-For entry counts: 0 takes the leftmost, N>0 takes the
// Nth from the right.
func NewClientIPResolver(trustedCIDRs []string, depth int) (*ClientIPResolver, error) {
	r := &ClientIPResolver{depth: depth}
	for _, c := range trustedCIDRs {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		p, err := netip.ParsePrefix(c)
		if err != nil {
			// Allow bare addresses as single-host ranges.
			a, aerr := netip.ParseAddr(c)
			if aerr != nil {
				return nil, err
			}
			p = netip.PrefixFrom(a, a.BitLen())
		}
		r.trusted = append(r.trusted, p.Masked())
	}
	return r, nil
}

// Resolve returns the client IP for the request.
func (r *ClientIPResolver) Resolve(req *http.Request) string {
	remote := remoteIP(req.RemoteAddr)

	if !r.peerTrusted(remote) {
		return remote
	}

	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := pickForwarded(xff, r.depth); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(req.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return remote
}

// peerTrusted reports whether proxy headers from this peer are honored.
func (r *ClientIPResolver) peerTrusted(remote string) bool {
	if len(r.trusted) == 0 {
		return true
	}
	addr, err := netip.ParseAddr(remote)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range r.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// pickForwarded selects an entry from a comma-separated X-Forwarded-For
// value. depth 0 means leftmost; depth N means Nth from the right.
func pickForwarded(xff string, depth int) string {
	parts := strings.Split(xff, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if depth <= 0 {
		return parts[0]
	}
	idx := len(parts) - depth
	if idx < 0 {
		idx = 0
	}
	return parts[idx]
}

// remoteIP strips the port from a RemoteAddr value.
func remoteIP(remoteAddr string) string {
	ip, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return ip
}

// IsLoopback reports whether ip is a loopback address in any spelling the
// runtime produces (127.0.0.1, ::1, ::ffff:127.0.0.1).
func IsLoopback(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	return addr.Unmap().IsLoopback()
}
