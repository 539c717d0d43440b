// Package server runs the portal's operational HTTP endpoints: a health check
// backed by the database handle and the Prometheus metrics endpoint. It handles
// the server lifecycle and graceful shutdown.
package server

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ejustice-portal/bootstrap/internal/snapshot"
	"github.com/ejustice-portal/bootstrap/pkg/server/middleware"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const (
	HealthPath  = "/healthz"
	MetricsPath = "/metrics"

	healthTimeout   = 5 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Pinger is the part of a database handle the health check uses.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves the health and metrics endpoints.
type Server struct {
	config          Config
	engine          *gin.Engine
	httpServer      *http.Server
	listener        net.Listener
	shutdownHooks   []func() error
	shutdownChannel chan os.Signal
	mu              sync.Mutex
}

// New builds a server. db backs /healthz; gatherer backs /metrics and may be nil,
// in which case /metrics is not routed.
func New(cfg Config, db Pinger, gatherer prometheus.Gatherer) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if db == nil {
		return nil, errors.New("a database handle is required for the health check")
	}

	s := &Server{config: *snapshot.MustCopy(&cfg)}
	if s.config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if gin.IsDebugging() {
		engine.Use(gin.Logger())
	} else if err := engine.SetTrustedProxies(nil); err != nil {
		return nil, err
	}
	engine.Use(
		gin.Recovery(),
		middleware.SecurityHeaders(s.config.ContentSecurityPolicy),
	)

	engine.GET(HealthPath, healthHandler(db))
	if gatherer != nil {
		engine.GET(MetricsPath, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	s.engine = engine
	return s, nil
}

// healthHandler reports 200 when the database answers a ping and 503 otherwise.
// The driver error is logged, never returned to the client.
func healthHandler(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			log.Error().Err(err).Msg("Health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// Handler returns the router, e.g. for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// AddShutdownHook registers f to run after the HTTP server has stopped.
func (s *Server) AddShutdownHook(f func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdownHooks = append(s.shutdownHooks, f)
}

// Start binds the configured address and serves in the background. Bind errors
// are returned.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.config.Address)
	}

	s.mu.Lock()
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpServer := s.httpServer
	s.mu.Unlock()

	log.Info().Msgf("Starting server on %s", listener.Addr())
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server stopped unexpectedly")
		}
	}()
	return nil
}

// Addr returns the bound address once Start succeeded.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// StartAndWaitForSignal starts the server and blocks until SIGINT or SIGTERM,
// then shuts it down gracefully.
func (s *Server) StartAndWaitForSignal() error {
	if err := s.Start(); err != nil {
		return err
	}
	return s.waitForSignal()
}

func (s *Server) waitForSignal() error {
	s.shutdownChannel = make(chan os.Signal, 1)
	signal.Notify(s.shutdownChannel, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.shutdownChannel)
	log.Info().Msgf("Shutdown signal received (%s)", <-s.shutdownChannel)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops accepting requests, waits for active ones within ctx and then
// runs the shutdown hooks, also when ctx expires first. Hook errors are logged.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down server...")

	s.mu.Lock()
	httpServer := s.httpServer
	hooks := s.shutdownHooks
	s.shutdownHooks = nil
	s.mu.Unlock()

	var shutdownErr error
	if httpServer != nil {
		if err := httpServer.Shutdown(ctx); err != nil {
			shutdownErr = errors.Wrap(err, "forced shutdown")
			log.Error().Err(err).Msg("Active requests did not finish in time")
		}
	}

	// Hooks release resources such as the database handle and run either way.
	log.Info().Msg("Executing shutdown hooks...")
	for _, hook := range hooks {
		if err := hook(); err != nil {
			log.Error().Msgf("Error during shutdown hook: %s", err)
		}
	}

	if shutdownErr != nil {
		return shutdownErr
	}
	log.Info().Msg("Server exited gracefully")
	return nil
}
