package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestNewMetrics(t *testing.T) {
	t.Run("creates metrics with custom registry", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		m := NewMetrics(reg)
		assert.NotNil(t, m)
		assert.NotNil(t, m.promAdmitted)
		assert.NotNil(t, m.promUnrecognized)
		assert.NotNil(t, m.PromRequestDuration)
		assert.NotNil(t, m.PromQueueWait)
		assert.NotNil(t, m.PromQueueDepth)
	})
}

func TestMetricsAccessCounters(t *testing.T) {
	t.Run("increments admitted counter", func(t *testing.T) {
		m := NewMetrics(prometheus.NewRegistry())
		m.IncAdmitted()
		m.IncAdmitted()
		m.IncAdmitted()

		snap := m.Snapshot()
		assert.Equal(t, int64(3), snap.Admitted)
	})

	t.Run("increments blocked counters independently", func(t *testing.T) {
		m := NewMetrics(prometheus.NewRegistry())
		m.IncBlockedAgent()
		m.IncBlockedAgent()
		m.IncBlockedAddr()

		snap := m.Snapshot()
		assert.Equal(t, int64(2), snap.BlockedAgent)
		assert.Equal(t, int64(1), snap.BlockedAddr)
	})

	t.Run("increments unrecognized counter", func(t *testing.T) {
		m := NewMetrics(prometheus.NewRegistry())
		m.IncUnrecognized()

		snap := m.Snapshot()
		assert.Equal(t, int64(1), snap.Unrecognized)
	})
}

func TestMetricsNotifyCounters(t *testing.T) {
	t.Run("tracks each delivery path separately", func(t *testing.T) {
		m := NewMetrics(prometheus.NewRegistry())
		m.IncNotifyInline()
		m.IncNotifyInline()
		m.IncNotifyAttachment()
		m.IncNotifyFallback()
		m.IncNotifyDropped()

		snap := m.Snapshot()
		assert.Equal(t, int64(2), snap.NotifyInline)
		assert.Equal(t, int64(1), snap.NotifyAttach)
		assert.Equal(t, int64(1), snap.NotifyFallback)
		assert.Equal(t, int64(1), snap.NotifyDropped)
	})
}

func TestMetricsProbeCounters(t *testing.T) {
	t.Run("increments probe counters", func(t *testing.T) {
		m := NewMetrics(prometheus.NewRegistry())
		m.IncProbe()
		m.IncProbe()
		m.IncProbeFailed()

		snap := m.Snapshot()
		assert.Equal(t, int64(2), snap.ProbeOK)
		assert.Equal(t, int64(1), snap.ProbeFailed)
	})
}

func TestMetricsCacheCounters(t *testing.T) {
	t.Run("increments hit and miss counters", func(t *testing.T) {
		m := NewMetrics(prometheus.NewRegistry())
		m.IncCacheHits()
		m.IncCacheMisses()
		m.IncCacheMisses()

		snap := m.Snapshot()
		assert.Equal(t, int64(1), snap.CacheHits)
		assert.Equal(t, int64(2), snap.CacheMisses)
	})

	t.Run("increments geo error counter", func(t *testing.T) {
		m := NewMetrics(prometheus.NewRegistry())
		m.IncGeoErrors()

		snap := m.Snapshot()
		assert.Equal(t, int64(1), snap.GeoErrors)
	})
}

func TestMetricsProviderVecs(t *testing.T) {
	t.Run("per-provider counters do not panic", func(t *testing.T) {
		m := NewMetrics(prometheus.NewRegistry())
		m.IncInvocation("morse")
		m.IncInvocation("romans")
		m.IncProviderError("lyrics")
		m.PromProviderDuration.WithLabelValues("morse").Observe(0.2)
	})
}

func TestMetricsSnapshot(t *testing.T) {
	t.Run("snapshot is a consistent point-in-time copy", func(t *testing.T) {
		m := NewMetrics(prometheus.NewRegistry())
		m.IncAdmitted()

		snap1 := m.Snapshot()
		m.IncAdmitted()
		snap2 := m.Snapshot()

		assert.Equal(t, int64(1), snap1.Admitted)
		assert.Equal(t, int64(2), snap2.Admitted)
	})
}
