// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/bridgehost/internal/library"
)

// Host phases reported by the readiness probe.
const (
	PhaseLoading  = "loading"
	PhaseServing  = "serving"
	PhaseDraining = "draining"
)

// Host is the state of a bridge host as seen by the metrics server. The
// server starts before discovery so that load signals are counted; until a
// registry is attached the host reports PhaseLoading and exports no registry
// gauges.
type Host struct {
	reg      atomic.Pointer[library.Registry]
	draining atomic.Bool
	descs    *RegistryCollector
}

// Compile-time interface check.
var _ prometheus.Collector = (*Host)(nil)

// NewHost creates a host in PhaseLoading.
func NewHost() *Host {
	return &Host{descs: NewRegistryCollector(nil)}
}

// Attach publishes reg as the served registry and moves the host to
// PhaseServing.
func (h *Host) Attach(reg *library.Registry) {
	h.reg.Store(reg)
	h.draining.Store(false)
}

// Drain moves the host to PhaseDraining. Registry gauges stay available
// until the process exits.
func (h *Host) Drain() {
	h.draining.Store(true)
}

// Phase returns the current phase.
func (h *Host) Phase() string {
	switch {
	case h.draining.Load():
		return PhaseDraining
	case h.reg.Load() == nil:
		return PhaseLoading
	default:
		return PhaseServing
	}
}

// Ready reports whether the host is serving bridges.
func (h *Host) Ready() bool {
	return h.Phase() == PhaseServing
}

// Describe implements prometheus.Collector.
func (h *Host) Describe(ch chan<- *prometheus.Desc) {
	h.descs.Describe(ch)
}

// Collect implements prometheus.Collector.
func (h *Host) Collect(ch chan<- prometheus.Metric) {
	if reg := h.reg.Load(); reg != nil {
		NewRegistryCollector(reg).Collect(ch)
	}
}
