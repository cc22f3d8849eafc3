// Package gateway is the public HTTP pipeline: visitor assembly, the access
// filter, queued provider dispatch, the notification window, and the HTML
// pages. One Gateway instance handles every public route.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/notapi/notapi/internal/blocklist"
	"github.com/notapi/notapi/internal/config"
	"github.com/notapi/notapi/internal/keepalive"
	"github.com/notapi/notapi/internal/notify"
	"github.com/notapi/notapi/internal/observability"
	"github.com/notapi/notapi/internal/pages"
	"github.com/notapi/notapi/internal/providers"
	"github.com/notapi/notapi/internal/queue"
	"github.com/notapi/notapi/internal/reqctx"
)

var tracer = otel.Tracer("notapi/gateway")

const apiPrefix = "/api/"

// Gateway routes public traffic. Routing order mirrors the service's
// published behavior: the landing page, /api/{name}, the bot webhook, and a
// catch-all 404.
type Gateway struct {
	registry  *providers.Registry
	executor  *queue.Executor
	blocked   *blocklist.List
	visitors  *reqctx.Builder
	notifier  *notify.Notifier
	keepalive *keepalive.Scheduler
	pages     *pages.Renderer

	// webhook is nil when the bot is disabled.
	webhook     http.Handler
	webhookPath string

	invokeTimeout time.Duration

	logger  *slog.Logger
	metrics *observability.Metrics
}

// Options carries the pipeline's collaborators. Registry, Executor, Blocked,
// Visitors, Pages, Logger and Metrics are required; the rest may be nil.
type Options struct {
	Registry  *providers.Registry
	Executor  *queue.Executor
	Blocked   *blocklist.List
	Visitors  *reqctx.Builder
	Notifier  *notify.Notifier
	KeepAlive *keepalive.Scheduler
	Pages     *pages.Renderer

	Webhook     http.Handler
	WebhookPath string

	InvokeTimeout time.Duration

	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// New assembles the gateway.
func New(opts Options) *Gateway {
	return &Gateway{
		registry:      opts.Registry,
		executor:      opts.Executor,
		blocked:       opts.Blocked,
		visitors:      opts.Visitors,
		notifier:      opts.Notifier,
		keepalive:     opts.KeepAlive,
		pages:         opts.Pages,
		webhook:       opts.Webhook,
		webhookPath:   opts.WebhookPath,
		invokeTimeout: opts.InvokeTimeout,
		logger:        opts.Logger.With("component", "gateway"),
		metrics:       opts.Metrics,
	}
}

// statusWriter captures the HTTP status code written by downstream handlers.
type statusWriter struct {
	http.ResponseWriter
	code    int
	written bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.written {
		sw.code = code
		sw.written = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.written {
		sw.code = http.StatusOK
		sw.written = true
	}
	return sw.ResponseWriter.Write(b)
}

func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// statusWriterPool amortizes statusWriter allocations on the hot path.
var statusWriterPool = sync.Pool{
	New: func() any { return &statusWriter{} },
}

// ServeHTTP dispatches a public request.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sw := statusWriterPool.Get().(*statusWriter)
	sw.ResponseWriter = w
	sw.code = http.StatusOK
	sw.written = false

	reqID := reqctx.EnsureRequestID(r)
	r.Header.Set(reqctx.RequestIDHeader, reqID)
	sw.Header().Set(reqctx.RequestIDHeader, reqID)

	defer func() {
		g.metrics.PromRequestDuration.WithLabelValues(
			r.Method,
			strconv.Itoa(sw.code),
		).Observe(time.Since(start).Seconds())
		sw.ResponseWriter = nil // prevent dangling reference
		statusWriterPool.Put(sw)
	}()

	switch {
	case r.URL.Path == "/":
		g.pages.Home(sw, r)
	case strings.HasPrefix(r.URL.Path, apiPrefix):
		g.handleAPI(sw, r)
	case g.webhook != nil && r.URL.Path == g.webhookPath:
		g.webhook.ServeHTTP(sw, r)
	default:
		g.pages.NotFound(sw, r)
	}
}

// handleAPI runs the filter → queue → invoke → notify pipeline for one
// /api/{name} call.
func (g *Gateway) handleAPI(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, apiPrefix)
	if name == "" || strings.Contains(name, "/") {
		g.pages.NotFound(w, r)
		return
	}

	ctx, span := tracer.Start(r.Context(), "notapi.api")
	defer span.End()

	visitor := g.visitors.Build(ctx, r)

	m := g.blocked.Load()
	if m.MatchUserAgent(visitor.Source) {
		g.metrics.IncBlockedAgent()
		g.logger.Info("agent blocked", "ip", visitor.IP, "agent", visitor.Source)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("Bot not allowed."))
		return
	}
	if m.MatchIP(visitor.IP) {
		// Blocked addresses are not told they are blocked; they fall
		// through to the ordinary 404 page.
		g.metrics.IncBlockedAddr()
		g.logger.Info("address blocked", "ip", visitor.IP)
		g.pages.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	params := providers.Params{
		Encode: q.Get("en"),
		Decode: q.Get("de"),
		ID:     q.Get("id"),
		Query:  q.Get("q"),
	}

	res, err := g.invoke(ctx, name, params)
	if err != nil {
		g.logger.Warn("invocation did not run", "provider", name, "error", err)
		http.Error(w, "server busy", http.StatusServiceUnavailable)
		return
	}

	if !res.Recognized {
		g.metrics.IncUnrecognized()
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	g.metrics.IncAdmitted()

	// The keep-alive probe stays quiet from here through the notification
	// delivery, so it never interleaves with a live invocation window.
	g.keepalive.Suspend()
	defer g.keepalive.Resume()

	setCORS(w)
	setNoCache(w)
	w.Header().Set("Content-Type", "application/json")

	if g.notifier.Enabled() {
		_, notifySpan := tracer.Start(ctx, "notapi.notify")
		g.notifier.Notify(ctx, name, visitor, res)
		notifySpan.End()
	}

	body, err := json.Marshal(res)
	if err != nil {
		g.logger.Error("result marshal failed", "provider", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// invoke runs the provider through the execution queue, bounding the whole
// wait-plus-run with the configured timeout.
func (g *Gateway) invoke(ctx context.Context, name string, params providers.Params) (providers.Result, error) {
	if g.invokeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.invokeTimeout)
		defer cancel()
	}

	_, queueSpan := tracer.Start(ctx, "notapi.queue")
	var res providers.Result
	err := g.executor.Do(ctx, func(ctx context.Context) error {
		res = g.registry.Invoke(ctx, name, params)
		return nil
	})
	queueSpan.End()
	if err != nil {
		// A timed-out invocation may still be writing res in its slot.
		return providers.Result{}, err
	}
	return res, nil
}

func setCORS(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Methods", "GET, POST")
	h.Set("Access-Control-Allow-Headers", "content-type")
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Credentials", "true")
}

// setNoCache marks API responses uncacheable, with the Expires header a year
// in the past.
func setNoCache(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Expires", time.Now().AddDate(-1, 0, 0).UTC().Format(http.TimeFormat))
	h.Set("Pragma", "no-cache")
	h.Set("Cache-Control", "public, no-cache")
}

// ReplaceBlocklists swaps the access filter's lists, used by config reload.
func (g *Gateway) ReplaceBlocklists(cfg config.BlocklistConfig) {
	g.blocked.Replace(cfg.IPs, cfg.UserAgents)
}
