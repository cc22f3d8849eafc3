// Package server assembles and runs NotAPI: the public gateway server
// (HTTP/1.1, h2c, optional TLS and HTTP/3) and the admin server with health
// probes and Prometheus metrics.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/notapi/notapi/internal/blocklist"
	"github.com/notapi/notapi/internal/bot"
	"github.com/notapi/notapi/internal/cache"
	"github.com/notapi/notapi/internal/config"
	"github.com/notapi/notapi/internal/gateway"
	"github.com/notapi/notapi/internal/keepalive"
	"github.com/notapi/notapi/internal/notify"
	"github.com/notapi/notapi/internal/observability"
	"github.com/notapi/notapi/internal/pages"
	"github.com/notapi/notapi/internal/providers"
	"github.com/notapi/notapi/internal/queue"
	"github.com/notapi/notapi/internal/reqctx"
	"github.com/notapi/notapi/internal/telegram"
)

// Server is the assembled NotAPI process.
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	version string

	mainServer  *http.Server
	http3Server *http3.Server // nil when HTTP/3 is disabled.
	adminServer *http.Server

	gateway   *gateway.Gateway
	botClient *telegram.Client
	scheduler *keepalive.Scheduler
	store     *cache.Store
	geo       *reqctx.GeoClient

	health          *observability.HealthChecker
	metrics         *observability.Metrics
	tracingShutdown func(context.Context) error
	certs           *certHolder // non-nil when TLS is enabled; supports hot-reload.
}

// New wires every component from configuration.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, version string) (*Server, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(collectors.NewGoCollector())

	metrics := observability.NewMetrics(reg)
	health := observability.NewHealthChecker()

	store, err := cache.New(ctx, cfg.Cache, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("lookup cache: %w", err)
	}
	if store != nil {
		health.SetCachePinger(store)
	}

	var geo *reqctx.GeoClient
	if cfg.Geo.URL != "" {
		geo, err = reqctx.NewGeoClient(cfg.Geo, logger, metrics)
		if err != nil {
			return nil, err
		}
	}

	resolver, err := reqctx.NewClientIPResolver(cfg.Server.TrustedProxies, cfg.Server.TrustedIPDepth)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	registry := providers.NewRegistry(logger, metrics,
		providers.NewMorse(),
		providers.NewRomans(),
		providers.NewSpamwatch(cfg.Providers.Spamwatch, store, logger),
		providers.NewLyrics(cfg.Providers.Lyrics, store, logger),
	)

	scheduler, err := keepalive.New(cfg.KeepAlive, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("keep-alive: %w", err)
	}

	botClient := telegram.New(cfg.Bot, logger)

	var webhook http.Handler
	var webhookPath string
	if botClient.Enabled() {
		webhook = bot.NewHandler(botClient, time.Now(), logger)
		webhookPath = bot.WebhookPath(cfg.Bot)
	}

	gw := gateway.New(gateway.Options{
		Registry:      registry,
		Executor:      queue.New(config.QueueCapacity, metrics),
		Blocked:       blocklist.New(cfg.Blocklist.IPs, cfg.Blocklist.UserAgents),
		Visitors:      reqctx.NewBuilder(resolver, geo, logger),
		Notifier:      notify.New(botClient, cfg.Bot.LogChatID, logger, metrics),
		KeepAlive:     scheduler,
		Pages:         pages.NewRenderer(logger),
		Webhook:       webhook,
		WebhookPath:   webhookPath,
		InvokeTimeout: config.MustParseDuration(cfg.Server.InvokeTimeout, 0),
		Logger:        logger,
		Metrics:       metrics,
	})

	mainServer, h3srv := buildMainServer(cfg, gw, logger)
	adminServer := buildAdminServer(cfg, health, reg)

	return &Server{
		cfg:         cfg,
		logger:      logger,
		version:     version,
		mainServer:  mainServer,
		http3Server: h3srv,
		adminServer: adminServer,
		gateway:     gw,
		botClient:   botClient,
		scheduler:   scheduler,
		store:       store,
		geo:         geo,
		health:      health,
		metrics:     metrics,
	}, nil
}

func buildMainServer(cfg *config.Config, gw *gateway.Gateway, logger *slog.Logger) (*http.Server, *http3.Server) {
	readTimeout := config.MustParseDuration(cfg.Server.ReadTimeout, 30*time.Second)
	writeTimeout := config.MustParseDuration(cfg.Server.WriteTimeout, 60*time.Second)
	idleTimeout := config.MustParseDuration(cfg.Server.IdleTimeout, 120*time.Second)

	h2s := &http2.Server{}
	mainHandler := h2c.NewHandler(gw, h2s)

	var h3srv *http3.Server
	if cfg.Server.TLS.HTTP3Enabled {
		h3srv = &http3.Server{
			Addr:           cfg.Server.Address,
			Handler:        gw,
			MaxHeaderBytes: 1 << 20, // 1 MiB — same as the TCP server.
			IdleTimeout:    idleTimeout,
			QUICConfig: &quic.Config{
				MaxIdleTimeout: idleTimeout,
				Allow0RTT:      false, // Disable 0-RTT to prevent replay attacks.
			},
		}

		tcpHandler := mainHandler
		mainHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ProtoMajor < 3 {
				if setErr := h3srv.SetQUICHeaders(w.Header()); setErr != nil {
					logger.Debug("failed to set Alt-Svc header", "error", setErr)
				}
			}
			tcpHandler.ServeHTTP(w, r)
		})
	}

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           mainHandler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB — explicit default to prevent large-header DoS.
		BaseContext: func(_ net.Listener) context.Context {
			return context.Background()
		},
	}

	return srv, h3srv
}

func buildAdminServer(cfg *config.Config, health *observability.HealthChecker, reg *prometheus.Registry) *http.Server {
	adminReadTimeout := config.MustParseDuration(cfg.Admin.ReadTimeout, 5*time.Second)
	adminWriteTimeout := config.MustParseDuration(cfg.Admin.WriteTimeout, 10*time.Second)
	adminIdleTimeout := config.MustParseDuration(cfg.Admin.IdleTimeout, 30*time.Second)

	adminMux := http.NewServeMux()
	adminMux.Handle("/startz", health.StartzHandler())
	adminMux.Handle("/healthz", health.HealthzHandler())
	adminMux.Handle("/readyz", health.ReadyzHandler())
	adminMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	return &http.Server{
		Addr:              cfg.Admin.Address,
		Handler:           adminMux,
		ReadTimeout:       adminReadTimeout,
		WriteTimeout:      adminWriteTimeout,
		IdleTimeout:       adminIdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB — explicit default.
	}
}

// certHolder provides atomic TLS certificate hot-reload via GetCertificate.
type certHolder struct {
	cert atomic.Pointer[tls.Certificate]
}

// newCertHolder creates and loads the initial certificate.
func newCertHolder(certFile, keyFile string) (*certHolder, error) {
	ch := &certHolder{}
	if err := ch.Reload(certFile, keyFile); err != nil {
		return nil, err
	}
	return ch, nil
}

// Reload loads a new certificate from disk and atomically swaps it.
func (ch *certHolder) Reload(certFile, keyFile string) error {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("load TLS certificate: %w", err)
	}
	ch.cert.Store(&cert)
	return nil
}

// GetCertificate implements the tls.Config.GetCertificate callback.
func (ch *certHolder) GetCertificate(_ *tls.ClientHelloInfo) (*tls.Certificate, error) {
	return ch.cert.Load(), nil
}

// tlsMinVersion returns the tls.Config MinVersion from config, defaulting to TLS 1.2.
func tlsMinVersion(cfg *config.Config) uint16 {
	if cfg.Server.TLS.MinVersion == config.TLSVersion13 {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

// Run starts both servers and blocks until the context is canceled, then
// performs a graceful shutdown. After the main listener binds, the webhook
// is registered and, in production, the keep-alive loop starts.
func (s *Server) Run(ctx context.Context) error {
	tracingShutdown, err := observability.InitTracing(ctx, s.cfg.Tracing, s.version)
	if err != nil {
		s.logger.Warn("failed to initialize tracing", "error", err)
		tracingShutdown = func(_ context.Context) error { return nil }
	}
	s.tracingShutdown = tracingShutdown

	errCh := make(chan error, 3)

	// readyCh is closed after the main listener has successfully bound,
	// preventing SetReady from being called before the server can accept
	// connections.
	readyCh := make(chan struct{})

	go s.startAdminServer(errCh)
	go s.startMainServerWithReady(errCh, readyCh)

	if s.http3Server != nil {
		go s.startHTTP3Server(errCh)
	}

	s.health.SetStarted()

	select {
	case <-readyCh:
		s.health.SetReady()
		s.logger.Info("notapi is ready", "version", s.version, "mode", s.cfg.Mode)
	case srvErr := <-errCh:
		return srvErr
	}

	bot.Register(ctx, s.botClient, s.cfg.Bot, s.cfg.IsProduction(), s.logger)

	// The probe loop only runs where an idle-culling platform needs it.
	if s.cfg.IsProduction() {
		go s.scheduler.Run(ctx)
	}

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining...")
	case srvErr := <-errCh:
		return srvErr
	}

	return s.shutdown()
}

func (s *Server) startAdminServer(errCh chan<- error) {
	s.logger.Info("admin server starting", "address", s.cfg.Admin.Address)
	if err := s.adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		errCh <- fmt.Errorf("admin server: %w", err)
	}
}

func (s *Server) startMainServerWithReady(errCh chan<- error, readyCh chan struct{}) {
	s.logger.Info("gateway server starting",
		"address", s.cfg.Server.Address,
		"tls", s.cfg.Server.TLS.Enabled,
		"http3", s.cfg.Server.TLS.HTTP3Enabled)

	// Separate Listen from Serve so we can signal readiness after bind.
	ln, listenErr := net.Listen("tcp", s.cfg.Server.Address)
	if listenErr != nil {
		errCh <- fmt.Errorf("gateway server listen: %w", listenErr)
		return
	}
	close(readyCh) // signal that the listener has bound

	var err error
	if s.cfg.Server.TLS.Enabled {
		ch, certErr := newCertHolder(s.cfg.Server.TLS.CertFile, s.cfg.Server.TLS.KeyFile)
		if certErr != nil {
			errCh <- certErr
			return
		}
		s.certs = ch

		minVer := max(tlsMinVersion(s.cfg), tls.VersionTLS12)
		tlsCfg := &tls.Config{
			MinVersion:     minVer,
			GetCertificate: ch.GetCertificate,
		}
		s.mainServer.TLSConfig = tlsCfg

		// Share the same TLS config with the HTTP/3 server so both
		// listeners enforce identical MinVersion and ciphers.
		if s.http3Server != nil {
			s.http3Server.TLSConfig = tlsCfg
		}

		tlsLn := tls.NewListener(ln, tlsCfg)
		err = s.mainServer.Serve(tlsLn)
	} else {
		err = s.mainServer.Serve(ln)
	}

	if err != nil && err != http.ErrServerClosed {
		errCh <- fmt.Errorf("gateway server: %w", err)
	}
}

func (s *Server) startHTTP3Server(errCh chan<- error) {
	s.logger.Info("HTTP/3 (QUIC) server starting", "address", s.cfg.Server.Address)
	err := s.http3Server.ListenAndServeTLS(s.cfg.Server.TLS.CertFile, s.cfg.Server.TLS.KeyFile)
	if err != nil && err != http.ErrServerClosed {
		errCh <- fmt.Errorf("HTTP/3 server: %w", err)
	}
}

// Reload applies a changed configuration without restarting: the access
// filter lists and TLS certificates swap in place. Address or stack changes
// still need a restart.
func (s *Server) Reload(newCfg *config.Config) error {
	s.gateway.ReplaceBlocklists(newCfg.Blocklist)

	if s.certs != nil && newCfg.Server.TLS.CertFile != "" && newCfg.Server.TLS.KeyFile != "" {
		if err := s.certs.Reload(newCfg.Server.TLS.CertFile, newCfg.Server.TLS.KeyFile); err != nil {
			s.logger.Error("TLS certificate reload failed, keeping old certificate", "error", err)
		} else {
			s.logger.Info("TLS certificates reloaded")
		}
	}

	s.cfg = newCfg
	s.logger.Info("configuration reloaded")
	return nil
}

func (s *Server) shutdown() error {
	s.health.SetNotReady()

	drainTimeout := config.MustParseDuration(s.cfg.Server.DrainTimeout, 30*time.Second)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	if s.http3Server != nil {
		if err := s.http3Server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP/3 server shutdown error", "error", err)
		}
	}

	if err := s.mainServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("main server shutdown error", "error", err)
	}

	if err := s.adminServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("admin server shutdown error", "error", err)
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error("lookup cache close error", "error", err)
	}
	if s.geo != nil {
		s.geo.Close()
	}

	if s.tracingShutdown != nil {
		if err := s.tracingShutdown(shutdownCtx); err != nil {
			s.logger.Error("tracing shutdown error", "error", err)
		}
	}

	s.logger.Info("shutdown complete")
	return nil
}
