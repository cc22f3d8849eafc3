// Package providers implements the dispatch registry and the individual API
// providers: morse translation, roman numeral conversion, ban-list lookups,
// and lyrics search. Providers never fail a request; anything that goes
// wrong is reported inside the response body as data.
package providers

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/notapi/notapi/internal/observability"
)

// Params carries the recognized query parameters of an API call. Only the
// parameters a given provider cares about are consulted.
type Params struct {
	Encode string // en
	Decode string // de
	ID     string // id
	Query  string // q
}

// Provider handles one named API. Invoke returns its outcomes and whether
// the call carried at least one parameter the provider responds to.
type Provider interface {
	Name() string
	Invoke(ctx context.Context, p Params) ([]Outcome, bool)
}

// Registry dispatches API calls to registered providers. Every invocation is
// preceded by a short randomized delay, a trait of the historical service
// that callers depend on for pacing.
type Registry struct {
	providers map[string]Provider
	logger    *slog.Logger
	metrics   *observability.Metrics

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration)
}

const (
	delayMin = 150 * time.Millisecond
	delayMax = 500 * time.Millisecond
)

// NewRegistry creates a registry with the given providers. metrics may be
// nil.
func NewRegistry(logger *slog.Logger, metrics *observability.Metrics, provs ...Provider) *Registry {
	r := &Registry{
		providers: make(map[string]Provider, len(provs)),
		logger:    logger.With("component", "providers"),
		metrics:   metrics,
		sleep:     sleepCtx,
	}
	for _, p := range provs {
		r.providers[p.Name()] = p
	}
	return r
}

// Has reports whether a provider is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.providers[name]
	return ok
}

// Invoke pauses for the pacing delay, then dispatches to the named provider.
// An unknown name or a call without relevant parameters yields an
// unrecognized Result with no outcomes.
func (r *Registry) Invoke(ctx context.Context, name string, p Params) Result {
	r.sleep(ctx, delayMin+rand.N(delayMax-delayMin))

	res := Result{Provider: name}

	prov, ok := r.providers[name]
	if !ok {
		return res
	}

	start := time.Now()
	outcomes, recognized := prov.Invoke(ctx, p)
	res.Outcomes = outcomes
	res.Recognized = recognized

	if r.metrics != nil && recognized {
		r.metrics.IncInvocation(name)
		r.metrics.PromProviderDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if res.Err() {
			r.metrics.IncProviderError(name)
		}
	}
	if recognized {
		r.logger.Debug("provider invoked", "provider", name, "duration", time.Since(start))
	}
	return res
}

// sleepCtx sleeps for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
