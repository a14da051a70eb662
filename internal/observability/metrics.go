// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/bridgehost/internal/library"
	"github.com/holomush/bridgehost/pkg/bridge"
)

// Lifecycle event label values.
const (
	EventLoad   = "load"
	EventUnload = "unload"
	EventStart  = "start"
	EventStop   = "stop"
)

// Metrics contains the lifecycle counters of the bridge host.
type Metrics struct {
	LifecycleEvents *prometheus.CounterVec
	LoadFailures    *prometheus.CounterVec
}

// NewMetrics creates and registers the lifecycle counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LifecycleEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridgehost_lifecycle_events_total",
				Help: "Total number of bridge lifecycle events by kind and event",
			},
			[]string{"kind", "event"},
		),
		LoadFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridgehost_load_failures_total",
				Help: "Total number of failed library loads by status",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(m.LifecycleEvents)
	reg.MustRegister(m.LoadFailures)

	return m
}

// RecordLoadFailure counts a failed load under the status of err.
func (m *Metrics) RecordLoadFailure(err error) {
	if err == nil {
		return
	}
	m.LoadFailures.WithLabelValues(bridge.StatusOf(err).String()).Inc()
}

// Observe counts the lifecycle signals of every kind of reg. The
// registrations last until the registry is closed.
func (m *Metrics) Observe(reg *library.Registry) error {
	for _, kind := range library.Kinds() {
		tm, err := reg.TypeManager(kind)
		if err != nil {
			return err
		}
		events := map[string]library.SignalID{
			EventLoad:   tm.LoadSignal(),
			EventUnload: tm.UnloadSignal(),
			EventStart:  tm.StartSignal(),
			EventStop:   tm.StopSignal(),
		}
		for event, id := range events {
			if id < 0 {
				continue
			}
			counter := m.LifecycleEvents.WithLabelValues(kind.String(), event)
			cb := library.NewCallback(func(*library.Library, any) bool {
				counter.Inc()
				return true
			})
			if err := tm.Signals().Register(id, cb, nil); err != nil {
				return err
			}
		}
	}
	return nil
}
