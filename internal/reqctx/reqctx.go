// Package reqctx builds the per-request visitor context: the resolved client
// address, parsed user-agent facets, and best-effort geolocation. The
// pipeline assembles this once per request and every later stage (access
// filter, providers, notification) reads from it.
package reqctx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader is the canonical HTTP header for request correlation.
const RequestIDHeader = "X-Request-Id"

// maxRequestIDLen bounds client-supplied correlation IDs.
const maxRequestIDLen = 128

// Visitor is the assembled request context. The flattened JSON shape (geo
// facets beside agent facets) matches what the notification sink and the
// audit trail expect.
type Visitor struct {
	IP string `json:"ip"`
	Geo
	Agent
}

// Builder assembles Visitors from incoming requests.
type Builder struct {
	resolver *ClientIPResolver
	geo      *GeoClient
	logger   *slog.Logger
}

// NewBuilder wires the resolver and geo client together. geo may be nil to
// disable location enrichment.
func NewBuilder(resolver *ClientIPResolver, geo *GeoClient, logger *slog.Logger) *Builder {
	return &Builder{
		resolver: resolver,
		geo:      geo,
		logger:   logger.With("component", "reqctx"),
	}
}

// Build assembles the Visitor for a request. Geolocation is skipped for
// loopback clients and degrades to empty facets on failure.
func (b *Builder) Build(ctx context.Context, r *http.Request) Visitor {
	v := Visitor{
		IP:    b.resolver.Resolve(r),
		Agent: ParseAgent(r.UserAgent()),
	}
	if b.geo != nil {
		v.Geo = b.geo.Lookup(ctx, v.IP)
	}
	return v
}

// EnsureRequestID returns a validated correlation ID for the request,
// generating a fresh UUID when the client sent none (or sent garbage).
func EnsureRequestID(r *http.Request) string {
	if id := r.Header.Get(RequestIDHeader); validRequestID(id) {
		return id
	}
	return uuid.NewString()
}

// validRequestID checks that a client-supplied request ID is safe to
// propagate: bounded length, no non-printable or injection characters.
func validRequestID(s string) bool {
	if len(s) == 0 || len(s) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.' || c == ':':
		default:
			return false
		}
	}
	return true
}
