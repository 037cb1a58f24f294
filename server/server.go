// Package server runs demoseed as a long-lived service: it re-seeds the
// target database on a cron schedule and exposes an HTTP API to watch and
// trigger runs.
//
// # Endpoints
//
//   - GET /health - "ok" once a configuration is loaded
//   - GET /api/status - Server properties, the current run and the next scheduled run
//   - GET /config - Current configuration as YAML, passwords masked
//   - POST /reload - Reloads configuration from disk
//   - POST /run - Starts a seeding run, 409 if one is in progress
//   - GET /history - Finished runs, most recent first
//   - GET /history/{id} - One finished run with its step logs
//   - POST /history/reload - Re-reads the history directory (state_dir only)
//   - GET /metrics - Prometheus metrics
//
// # Architecture
//
// The configuration is swapped atomically on reload. Every run reads the
// configuration current when it starts and connects to the platform afresh,
// so changes take effect on the next run without disturbing the one in
// progress. The listen address, schedule, history store and TLS pair are
// read once at startup.
//
// # Example
//
//	srv, err := server.New("/etc/demoseed/config.yaml", logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/nomis52/demoseed/bos"
	"github.com/nomis52/demoseed/buildinfo"
	"github.com/nomis52/demoseed/clients/trytonclient"
	"github.com/nomis52/demoseed/config"
	"github.com/nomis52/demoseed/logging"
	"github.com/nomis52/demoseed/metrics"
	"github.com/nomis52/demoseed/schedule"
	"github.com/nomis52/demoseed/server/handlers"
	"github.com/nomis52/demoseed/server/runner"
	"github.com/nomis52/demoseed/server/types"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

// serverDeps holds config-derived dependencies that are swapped atomically on reload.
type serverDeps struct {
	config *config.Config
}

// Server is the demoseed schedule server.
type Server struct {
	addr       string
	cronSpec   string
	configPath string
	logger     *slog.Logger
	deps       atomic.Pointer[serverDeps]
	props      types.ServerProperties
	connect    runner.Connector

	httpServer *http.Server
	certs      *CertLoader
	registry   *metrics.ScrapeRegistry
	store      runner.StateStore
	runner     *runner.Runner
	trigger    *schedule.Trigger
}

// Option configures a Server.
type Option func(*Server)

// WithListenAddr overrides the configured listen address.
func WithListenAddr(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

// WithCron overrides the configured schedule. An empty spec disables it.
func WithCron(spec string) Option {
	return func(s *Server) {
		s.cronSpec = spec
	}
}

// WithConnector replaces the JSON-RPC connection used by runs.
func WithConnector(connect runner.Connector) Option {
	return func(s *Server) {
		s.connect = connect
	}
}

// New loads the configuration at configPath and builds the server.
func New(configPath string, logger *slog.Logger, opts ...Option) (*Server, error) {
	s := &Server{
		configPath: configPath,
		logger:     logging.Component(logger, "server"),
		connect:    dial,
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	cfg := s.Config()
	s.addr = cfg.Schedule.Listen
	s.cronSpec = cfg.Schedule.Cron
	for _, opt := range opts {
		opt(s)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	s.props = types.ServerProperties{
		Build:     buildinfo.Get(),
		StartedAt: time.Now(),
		Hostname:  hostname,
	}

	s.registry, err = metrics.NewScrapeRegistry(metrics.WithNamespace(cfg.Monitoring.MetricsPrefix))
	if err != nil {
		return nil, fmt.Errorf("creating metrics registry: %w", err)
	}

	if cfg.Schedule.StateDir != "" {
		s.store, err = runner.NewDiskStore(cfg.Schedule.StateDir, cfg.Schedule.History, logging.Component(logger, "history"))
		if err != nil {
			return nil, err
		}
	} else {
		s.store = runner.NewMemoryStore(cfg.Schedule.History)
	}

	s.runner, err = runner.New(logger, s, s.connect,
		runner.WithStateStore(s.store),
		runner.WithMetricsRegistry(s.registry),
	)
	if err != nil {
		return nil, err
	}

	if s.cronSpec != "" {
		s.trigger, err = schedule.New(s.cronSpec, s.runner, logging.Component(logger, "schedule"))
		if err != nil {
			return nil, err
		}
	}

	if cfg.Schedule.TLSCert != "" {
		s.certs, err = NewCertLoader(cfg.Schedule.TLSCert, cfg.Schedule.TLSKey, s.logger)
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func dial(ctx context.Context, cfg *config.Config, logger *slog.Logger) (bos.Service, error) {
	return trytonclient.Dial(ctx, cfg.Target, logger)
}

// Reload reads the config from disk and swaps it in.
func (s *Server) Reload() error {
	cfg, err := config.LoadConfig(s.configPath)
	if err != nil {
		return err
	}
	s.deps.Store(&serverDeps{config: &cfg})
	s.logger.Info("configuration loaded", "config_path", s.configPath, "database", cfg.Target.Database)
	return nil
}

// Config returns the current configuration.
func (s *Server) Config() *config.Config {
	return s.deps.Load().config
}

// Properties describes the running server.
func (s *Server) Properties() types.ServerProperties {
	return s.props
}

// NextRun returns the next scheduled run time, or nil if no schedule is configured.
func (s *Server) NextRun() *time.Time {
	if s.trigger == nil {
		return nil
	}
	next := s.trigger.NextRun()
	return &next
}

// Status returns the current run status by delegating to the runner.
func (s *Server) Status() runner.RunStatus {
	return s.runner.Status()
}

// Runner returns the server's runner.
func (s *Server) Runner() *runner.Runner {
	return s.runner
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return mux
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It performs a graceful shutdown when the context is done, cancelling a
// run in progress.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}
	if s.certs != nil {
		s.httpServer.TLSConfig = s.certs.TLSConfig()
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}

	if s.trigger != nil {
		s.logger.Info("starting schedule", "spec", s.trigger.Spec(), "next_run", s.trigger.NextRun())
		s.trigger.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", ln.Addr().String(), "tls", s.certs != nil, "config_path", s.configPath)
		var err error
		if s.certs != nil {
			err = s.httpServer.ServeTLS(ln, "", "")
		} else {
			err = s.httpServer.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.runner.Stop()
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		err := s.httpServer.Shutdown(shutdownCtx)
		s.runner.Stop()
		return err
	}
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.Handle("GET /health", handlers.NewHealthHandler(s))
	mux.Handle("GET /api/status", handlers.NewStatusHandler(s))
	mux.Handle("GET /config", handlers.NewConfigHandler(s))
	mux.Handle("POST /reload", handlers.NewReloadHandler(s.logger, "configuration", s))
	mux.Handle("POST /run", handlers.NewRunHandler(s.logger, s.runner))
	mux.Handle("GET /history", handlers.NewHistoryHandler(s.runner))
	mux.Handle("GET /history/{id}", handlers.NewRunDetailHandler(s.runner))
	if store, ok := s.store.(handlers.Reloader); ok {
		mux.Handle("POST /history/reload", handlers.NewReloadHandler(s.logger, "history", store))
	}
	mux.Handle("GET /metrics", s.registry.Handler())
}
