// Package server exposes the analysis engines over HTTP. The API is a thin
// JSON layer: requests decode straight into engine inputs, results encode
// straight back out, and provider outages surface as fallback-flagged 200s
// rather than errors.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmarlow/planpilot/internal/analysis"
	"github.com/jmarlow/planpilot/internal/config"
	"github.com/jmarlow/planpilot/internal/logging"
	"github.com/jmarlow/planpilot/internal/orchestrator"
)

// Server is the planpilot HTTP API server.
type Server struct {
	cfg        *config.Config
	engine     *analysis.Engine
	orch       *orchestrator.Orchestrator
	log        *logging.Logger
	httpServer *http.Server
	version    string
	startTime  time.Time
}

// New assembles the server over an analysis engine and the orchestrator it
// runs on. A nil logger falls back to the global one.
func New(cfg *config.Config, engine *analysis.Engine, orch *orchestrator.Orchestrator, version string, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Global()
	}

	s := &Server{
		cfg:       cfg,
		engine:    engine,
		orch:      orch,
		log:       log.WithComponent("Server"),
		version:   version,
		startTime: time.Now(),
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSec) * time.Second,
	}

	return s
}

// Handler returns the fully wired route tree, middleware included. It is the
// same handler the listener serves, exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/analysis/feasibility", s.handleFeasibility)
	mux.HandleFunc("POST /v1/analysis/downgrade", s.handleDowngrade)
	mux.HandleFunc("POST /v1/analysis/overthinking", s.handleOverthinking)
	mux.HandleFunc("POST /v1/analysis/reflection", s.handleReflection)
	mux.HandleFunc("GET /v1/providers", s.handleProviders)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.withRequestID(s.withMetrics(s.withLogging(mux)))
}

// Start runs the listener until the context is canceled or the listener
// fails. Cancellation triggers a graceful shutdown bounded by the configured
// timeout.
func (s *Server) Start(ctx context.Context) error {
	s.log.Info("HTTP API listening on %s", s.httpServer.Addr)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			time.Duration(s.cfg.Server.ShutdownTimeoutSec)*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP API")
	return s.httpServer.Shutdown(ctx)
}
