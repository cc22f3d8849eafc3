// Package keepalive periodically probes the deployment's own public URL so
// the hosting platform does not idle the instance out. The probe loop is
// suspended while an API invocation is in flight, so a probe never competes
// with real traffic for an execution slot.
package keepalive

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/notapi/notapi/internal/config"
	"github.com/notapi/notapi/internal/observability"
)

// Scheduler fires a GET against the configured URL on a fixed cadence.
// Suspend and Resume are refcounted: the loop stays paused while any
// invocation window is open, and picks back up when the last one closes.
type Scheduler struct {
	url          string
	cadence      time.Duration
	probeTimeout time.Duration

	client  *http.Client
	logger  *slog.Logger
	metrics *observability.Metrics

	mu    sync.Mutex
	depth int
}

// New builds a Scheduler from configuration. A nil Scheduler is returned
// when no probe URL is configured; all methods are nil-safe so callers can
// wire it unconditionally.
func New(cfg config.KeepAliveConfig, logger *slog.Logger, metrics *observability.Metrics) (*Scheduler, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	cadence, err := config.ParseDuration(cfg.Cadence, 6*time.Hour)
	if err != nil {
		return nil, err
	}
	probeTimeout, err := config.ParseDuration(cfg.ProbeTimeout, 3*time.Second)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		url:          cfg.URL,
		cadence:      cadence,
		probeTimeout: probeTimeout,
		client:       &http.Client{Timeout: probeTimeout},
		logger:       logger.With("component", "keepalive"),
		metrics:      metrics,
	}, nil
}

// Run drives the probe loop until ctx is canceled. It blocks, so callers
// run it on its own goroutine. Production deployments run it from startup;
// development runs skip it entirely.
func (s *Scheduler) Run(ctx context.Context) {
	if s == nil {
		return
	}
	ticker := time.NewTicker(s.cadence)
	defer ticker.Stop()

	s.logger.Info("keep-alive scheduler running", "url", s.url, "cadence", s.cadence)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.suspended() {
				s.logger.Debug("probe skipped, invocation in flight")
				continue
			}
			s.probe(ctx)
		}
	}
}

// Suspend opens an invocation window. The probe loop stays paused until a
// matching Resume closes it.
func (s *Scheduler) Suspend() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.depth++
	s.mu.Unlock()
}

// Resume closes an invocation window opened by Suspend. Extra calls are
// ignored rather than driving the count negative.
func (s *Scheduler) Resume() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.depth > 0 {
		s.depth--
	}
	s.mu.Unlock()
}

func (s *Scheduler) suspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depth > 0
}

// probe issues a single GET. Failures are counted and logged but never
// propagate; a dead probe target is the platform's problem, not ours.
func (s *Scheduler) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		s.metrics.IncProbeFailed()
		s.logger.Warn("probe request build failed", "error", err)
		return
	}
	resp, err := s.client.Do(req)
	if err != nil {
		s.metrics.IncProbeFailed()
		s.logger.Warn("probe failed", "error", err)
		return
	}
	resp.Body.Close()
	s.metrics.IncProbe()
	s.logger.Debug("probe ok", "status", resp.StatusCode)
}
