// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/bridgehost/internal/library"
)

// RegistryCollector exports the state of a library registry at scrape time.
type RegistryCollector struct {
	reg *library.Registry

	libraries  *prometheus.Desc
	openCount  *prometheus.Desc
	startCount *prometheus.Desc
	active     *prometheus.Desc
}

// Compile-time interface check.
var _ prometheus.Collector = (*RegistryCollector)(nil)

// NewRegistryCollector creates a collector over reg.
func NewRegistryCollector(reg *library.Registry) *RegistryCollector {
	return &RegistryCollector{
		reg: reg,
		libraries: prometheus.NewDesc("bridgehost_libraries",
			"Loaded bridge libraries by kind", []string{"kind"}, nil),
		openCount: prometheus.NewDesc("bridgehost_middleware_open_count",
			"Open count of each loaded middleware bridge", []string{"library"}, nil),
		startCount: prometheus.NewDesc("bridgehost_middleware_start_count",
			"Start count of each loaded middleware bridge", []string{"library"}, nil),
		active: prometheus.NewDesc("bridgehost_middleware_active_bridges",
			"Number of open middleware bridges", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *RegistryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.libraries
	ch <- c.openCount
	ch <- c.startCount
	ch <- c.active
}

// Collect implements prometheus.Collector.
func (c *RegistryCollector) Collect(ch chan<- prometheus.Metric) {
	for _, kind := range library.Kinds() {
		tm, err := c.reg.TypeManager(kind)
		if err != nil {
			slog.Warn("skipping library metrics", "kind", kind.String(), "error", err)
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.libraries, prometheus.GaugeValue,
			float64(tm.Count()), kind.String())
	}

	mm, err := c.reg.Middleware()
	if err != nil {
		return
	}
	for _, lib := range mm.TypeManager().List(nil) {
		ch <- prometheus.MustNewConstMetric(c.openCount, prometheus.GaugeValue,
			float64(mm.OpenCount(lib)), lib.Name())
		ch <- prometheus.MustNewConstMetric(c.startCount, prometheus.GaugeValue,
			float64(mm.StartCount(lib)), lib.Name())
	}
	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(mm.ActiveBridges()))
}
