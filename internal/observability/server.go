// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

// Package observability provides HTTP endpoints for metrics and health checks.
package observability

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
)

// ReadinessChecker returns whether the service is ready to accept work.
type ReadinessChecker func() bool

// Package-level dispatch counters. The dispatch engine increments these
// without needing access to a Server instance.
var (
	eventsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embermush_events_dispatched_total",
			Help: "Total number of events that completed all four phases, by event name",
		},
		[]string{"event"},
	)
	eventsVetoed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embermush_events_vetoed_total",
			Help: "Total number of events aborted by an Allow-phase veto, by event name",
		},
		[]string{"event"},
	)
	handlerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embermush_handler_errors_total",
			Help: "Total number of handler execution failures, by event name",
		},
		[]string{"event"},
	)
)

// RecordEventDispatched increments the dispatched-event counter.
func RecordEventDispatched(event string) {
	eventsDispatched.WithLabelValues(event).Inc()
}

// RecordEventVetoed increments the vetoed-event counter.
func RecordEventVetoed(event string) {
	eventsVetoed.WithLabelValues(event).Inc()
}

// RecordHandlerError increments the handler failure counter.
func RecordHandlerError(event string) {
	handlerErrors.WithLabelValues(event).Inc()
}

// Metrics contains custom Prometheus metrics for EmberMUSH.
type Metrics struct {
	EntitiesLoaded prometheus.Gauge
	ScriptPacks    prometheus.Gauge
}

// NewMetrics creates and registers custom EmberMUSH metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EntitiesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "embermush_entities_loaded",
			Help: "Number of entities currently resident in the world shard",
		}),
		ScriptPacks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "embermush_script_packs_loaded",
			Help: "Number of behavior script packs currently loaded",
		}),
	}

	reg.MustRegister(m.EntitiesLoaded)
	reg.MustRegister(m.ScriptPacks)
	reg.MustRegister(eventsDispatched)
	reg.MustRegister(eventsVetoed)
	reg.MustRegister(handlerErrors)

	return m
}

// Server provides HTTP endpoints for observability (metrics and health probes).
type Server struct {
	addr       string
	listener   net.Listener
	httpServer *http.Server
	registry   *prometheus.Registry
	metrics    *Metrics
	isReady    ReadinessChecker
	running    atomic.Bool
}

// NewServer creates a new observability server.
// addr: listen address in "host:port" format (e.g., "127.0.0.1:9100").
func NewServer(addr string, readinessChecker ReadinessChecker) *Server {
	// Private registry to avoid polluting the global one
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics := NewMetrics(registry)

	return &Server{
		addr:     addr,
		registry: registry,
		metrics:  metrics,
		isReady:  readinessChecker,
	}
}

// Metrics returns the custom metrics for recording application events.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start begins serving observability endpoints. It returns an error channel
// that receives any errors from the HTTP server after it starts; the
// channel is closed when the server stops gracefully.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/healthz/liveness", s.handleLiveness)
	mux.HandleFunc("/healthz/readiness", s.handleReadiness)

	httpSrv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		// Use local httpSrv to avoid a race with subsequent Start() calls
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("observability server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("observability server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the observability server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			// Restore running state on failure so the server can be stopped again
			s.running.Store(true)
			return oops.With("operation", "shutdown_observability_server").Wrap(err)
		}
	}

	slog.Info("observability server stopped")
	return nil
}

// Addr returns the address the server is listening on, or empty when not
// running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte("ok\n"))
}

func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if s.isReady == nil || s.isReady() {
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck // health check write error is acceptable, client may disconnect
		w.Write([]byte("ok\n"))
		return
	}

	w.WriteHeader(http.StatusServiceUnavailable)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte("not ready\n"))
}
