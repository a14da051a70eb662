// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package observability exports the state of a bridge host: registry gauges,
// lifecycle counters and health probes.
package observability

import (
	"context"
	"errors"
	"fmt"
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

// Probe paths.
const (
	LivenessPath  = "/healthz/liveness"
	ReadinessPath = "/healthz/readiness"
	MetricsPath   = "/metrics"
)

// Server serves the metrics and health probes of one Host.
type Server struct {
	addr     string
	host     *Host
	registry *prometheus.Registry
	metrics  *Metrics
	running  atomic.Bool
	listener net.Listener
	http     *http.Server
}

// NewServer creates a server for host listening on addr ("host:port"; port
// 0 picks a free port). The host's registry gauges, the lifecycle counters
// and the Go runtime collectors share one private prometheus registry.
func NewServer(addr string, host *Host) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		host,
	)
	return &Server{
		addr:     addr,
		host:     host,
		registry: registry,
		metrics:  NewMetrics(registry),
	}
}

// Metrics returns the lifecycle counters. Callers feed them with
// Metrics.Observe once the registry exists.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start listens and serves in the background. The returned channel carries
// a serve failure and is closed when the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.In("observability").With("addr", s.addr).Errorf("metrics server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.In("observability").With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.Handle(MetricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	mux.HandleFunc(LivenessPath, s.handleLiveness)
	mux.HandleFunc(ReadinessPath, s.handleReadiness)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	s.http = srv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "addr", listener.Addr().String(), "error", err)
			errCh <- err
		}
	}()

	slog.Info("metrics server listening", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop shuts the server down. Stopping a server that is not running does
// nothing.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.http.Shutdown(ctx); err != nil {
		s.running.Store(true)
		return oops.In("observability").With("addr", s.Addr()).Wrap(err)
	}
	slog.Info("metrics server stopped")
	return nil
}

// Addr returns the listen address, empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeProbe(w, http.StatusOK, "ok")
}

// handleReadiness answers 200 while the host serves bridges and 503 with the
// phase otherwise.
func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	if phase := s.host.Phase(); phase != PhaseServing {
		writeProbe(w, http.StatusServiceUnavailable, phase)
		return
	}
	writeProbe(w, http.StatusOK, PhaseServing)
}

func writeProbe(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	//nolint:errcheck // the prober may hang up
	fmt.Fprintln(w, body)
}
