// Package observability provides Prometheus metrics, health/readiness
// endpoints, structured logging, and OpenTelemetry tracing for NotAPI.
package observability

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds both Prometheus collectors and atomic counters for fast-path
// access in the gateway hot path.
type Metrics struct {
	// Atomic counters for hot-path (no mutex, no allocation).
	admitted       int64
	blockedAgent   int64
	blockedAddr    int64
	unrecognized   int64
	notifyInline   int64
	notifyAttach   int64
	notifyFallback int64
	notifyDropped  int64
	probeOK        int64
	probeFailed    int64
	geoErrors      int64
	cacheHits      int64
	cacheMisses    int64

	// Prometheus counters for scraping.
	promAdmitted       prometheus.Counter
	promBlockedAgent   prometheus.Counter
	promBlockedAddr    prometheus.Counter
	promUnrecognized   prometheus.Counter
	promNotifyInline   prometheus.Counter
	promNotifyAttach   prometheus.Counter
	promNotifyFallback prometheus.Counter
	promNotifyDropped  prometheus.Counter
	promProbeOK        prometheus.Counter
	promProbeFailed    prometheus.Counter
	promGeoErrors      prometheus.Counter
	promCacheHits      prometheus.Counter
	promCacheMisses    prometheus.Counter

	// Per-provider counters. The provider set is a small fixed registry, so
	// a label is safe from cardinality explosions (unlike client IPs).
	promInvocations    *prometheus.CounterVec
	promProviderErrors *prometheus.CounterVec

	// Prometheus histograms.
	PromRequestDuration  *prometheus.HistogramVec
	PromQueueWait        prometheus.Histogram
	PromProviderDuration *prometheus.HistogramVec

	// PromQueueDepth tracks invocations currently holding a queue slot.
	PromQueueDepth prometheus.Gauge
}

// NewMetrics creates and registers Prometheus metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	m := &Metrics{
		promAdmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "notapi",
			Name:      "requests_admitted_total",
			Help:      "Total number of requests that passed the access filter.",
		}),
		promBlockedAgent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "notapi",
			Name:      "requests_blocked_agent_total",
			Help:      "Total number of requests rejected by the user-agent blocklist.",
		}),
		promBlockedAddr: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "notapi",
			Name:      "requests_blocked_addr_total",
			Help:      "Total number of requests dropped by the IP blocklist.",
		}),
		promUnrecognized: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "notapi",
			Name:      "requests_unrecognized_total",
			Help:      "Total number of API calls naming no registered provider.",
		}),
		promNotifyInline: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "notapi",
			Name:      "notify_inline_total",
			Help:      "Total notifications delivered as inline messages.",
		}),
		promNotifyAttach: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "notapi",
			Name:      "notify_attachment_total",
			Help:      "Total notifications delivered as document attachments.",
		}),
		promNotifyFallback: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "notapi",
			Name:      "notify_fallback_total",
			Help:      "Total failed attachment uploads retried as inline messages.",
		}),
		promNotifyDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "notapi",
			Name:      "notify_dropped_total",
			Help:      "Total notifications abandoned after all delivery attempts failed.",
		}),
		promProbeOK: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "notapi",
			Name:      "keepalive_probes_total",
			Help:      "Total keep-alive self-probes issued.",
		}),
		promProbeFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "notapi",
			Name:      "keepalive_probe_failures_total",
			Help:      "Total keep-alive self-probes that failed.",
		}),
		promGeoErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "notapi",
			Name:      "geo_lookup_errors_total",
			Help:      "Total geolocation lookups that failed.",
		}),
		promCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "notapi",
			Name:      "lookup_cache_hits_total",
			Help:      "Total provider lookups served from the cache.",
		}),
		promCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "notapi",
			Name:      "lookup_cache_misses_total",
			Help:      "Total provider lookups that missed the cache.",
		}),
		promInvocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notapi",
			Name:      "provider_invocations_total",
			Help:      "Total provider invocations, by provider.",
		}, []string{"provider"}),
		promProviderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notapi",
			Name:      "provider_errors_total",
			Help:      "Total provider invocations that produced an error outcome, by provider.",
		}, []string{"provider"}),
		PromRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "notapi",
			Name:      "request_duration_seconds",
			Help:      "Request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status_code"}),
		PromQueueWait: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "notapi",
			Name:      "queue_wait_seconds",
			Help:      "Time spent waiting for an execution queue slot.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		PromProviderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "notapi",
			Name:      "provider_duration_seconds",
			Help:      "Provider invocation duration in seconds, by provider.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		PromQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "notapi",
			Name:      "queue_depth",
			Help:      "Invocations currently holding an execution queue slot.",
		}),
	}

	return m
}

// IncAdmitted increments the admitted requests counter.
func (m *Metrics) IncAdmitted() {
	atomic.AddInt64(&m.admitted, 1)
	m.promAdmitted.Inc()
}

// IncBlockedAgent increments the user-agent rejection counter.
func (m *Metrics) IncBlockedAgent() {
	atomic.AddInt64(&m.blockedAgent, 1)
	m.promBlockedAgent.Inc()
}

// IncBlockedAddr increments the IP drop counter.
func (m *Metrics) IncBlockedAddr() {
	atomic.AddInt64(&m.blockedAddr, 1)
	m.promBlockedAddr.Inc()
}

// IncUnrecognized increments the unrecognized-call counter.
func (m *Metrics) IncUnrecognized() {
	atomic.AddInt64(&m.unrecognized, 1)
	m.promUnrecognized.Inc()
}

// IncNotifyInline increments the inline notification counter.
func (m *Metrics) IncNotifyInline() {
	atomic.AddInt64(&m.notifyInline, 1)
	m.promNotifyInline.Inc()
}

// IncNotifyAttachment increments the attachment notification counter.
func (m *Metrics) IncNotifyAttachment() {
	atomic.AddInt64(&m.notifyAttach, 1)
	m.promNotifyAttach.Inc()
}

// IncNotifyFallback increments the attachment-to-inline fallback counter.
func (m *Metrics) IncNotifyFallback() {
	atomic.AddInt64(&m.notifyFallback, 1)
	m.promNotifyFallback.Inc()
}

// IncNotifyDropped increments the abandoned notification counter.
func (m *Metrics) IncNotifyDropped() {
	atomic.AddInt64(&m.notifyDropped, 1)
	m.promNotifyDropped.Inc()
}

// IncProbe increments the keep-alive probe counter.
func (m *Metrics) IncProbe() {
	atomic.AddInt64(&m.probeOK, 1)
	m.promProbeOK.Inc()
}

// IncProbeFailed increments the keep-alive probe failure counter.
func (m *Metrics) IncProbeFailed() {
	atomic.AddInt64(&m.probeFailed, 1)
	m.promProbeFailed.Inc()
}

// IncGeoErrors increments the geolocation lookup failure counter.
func (m *Metrics) IncGeoErrors() {
	atomic.AddInt64(&m.geoErrors, 1)
	m.promGeoErrors.Inc()
}

// IncCacheHits increments the lookup cache hit counter.
func (m *Metrics) IncCacheHits() {
	atomic.AddInt64(&m.cacheHits, 1)
	m.promCacheHits.Inc()
}

// IncCacheMisses increments the lookup cache miss counter.
func (m *Metrics) IncCacheMisses() {
	atomic.AddInt64(&m.cacheMisses, 1)
	m.promCacheMisses.Inc()
}

// IncInvocation increments the per-provider invocation counter.
func (m *Metrics) IncInvocation(provider string) {
	m.promInvocations.WithLabelValues(provider).Inc()
}

// IncProviderError increments the per-provider error counter.
func (m *Metrics) IncProviderError(provider string) {
	m.promProviderErrors.WithLabelValues(provider).Inc()
}

// MetricsSnapshot holds a point-in-time copy of all atomic counters.
type MetricsSnapshot struct {
	Admitted       int64
	BlockedAgent   int64
	BlockedAddr    int64
	Unrecognized   int64
	NotifyInline   int64
	NotifyAttach   int64
	NotifyFallback int64
	NotifyDropped  int64
	ProbeOK        int64
	ProbeFailed    int64
	GeoErrors      int64
	CacheHits      int64
	CacheMisses    int64
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Admitted:       atomic.LoadInt64(&m.admitted),
		BlockedAgent:   atomic.LoadInt64(&m.blockedAgent),
		BlockedAddr:    atomic.LoadInt64(&m.blockedAddr),
		Unrecognized:   atomic.LoadInt64(&m.unrecognized),
		NotifyInline:   atomic.LoadInt64(&m.notifyInline),
		NotifyAttach:   atomic.LoadInt64(&m.notifyAttach),
		NotifyFallback: atomic.LoadInt64(&m.notifyFallback),
		NotifyDropped:  atomic.LoadInt64(&m.notifyDropped),
		ProbeOK:        atomic.LoadInt64(&m.probeOK),
		ProbeFailed:    atomic.LoadInt64(&m.probeFailed),
		GeoErrors:      atomic.LoadInt64(&m.geoErrors),
		CacheHits:      atomic.LoadInt64(&m.cacheHits),
		CacheMisses:    atomic.LoadInt64(&m.cacheMisses),
	}
}
