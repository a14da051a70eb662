// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/bridgehost/internal/config"
	"github.com/holomush/bridgehost/internal/discovery"
	"github.com/holomush/bridgehost/internal/library"
	"github.com/holomush/bridgehost/internal/observability"
	"github.com/holomush/bridgehost/internal/property"
	"github.com/holomush/bridgehost/internal/xdg"
	"github.com/holomush/bridgehost/pkg/errutil"
)

// host is a registry populated from the configuration.
type host struct {
	cfg     *config.Config
	reg     *library.Registry
	report  discovery.Report
	metrics *observability.Metrics
}

// hostOptions selects what openHost does beyond creating the registry.
type hostOptions struct {
	discover bool
	preload  bool
	metrics  *observability.Metrics
}

// openHost creates the registry, then runs discovery and the preload list
// when asked. The registry is closed again on failure.
func openHost(ctx context.Context, cfg *config.Config, opts hostOptions) (*host, error) {
	props := property.NewStore()
	for _, f := range cfg.PropertiesFiles {
		if err := props.LoadFile(f); err != nil {
			return nil, err
		}
	}
	reg := library.New(append(cfg.RegistryOptions(), library.WithProperties(props))...)
	h := &host{cfg: cfg, reg: reg, metrics: opts.metrics}

	if err := h.populate(ctx, opts); err != nil {
		if cerr := reg.Close(ctx); cerr != nil {
			errutil.LogError(slog.Default(), "failed to close registry", cerr)
		}
		return nil, err
	}
	return h, nil
}

func (h *host) populate(ctx context.Context, opts hostOptions) error {
	if h.metrics != nil {
		if err := h.metrics.Observe(h.reg); err != nil {
			return err
		}
	}
	if opts.discover && h.cfg.Discover {
		dirs := append(append([]string(nil), h.cfg.SearchPath...), xdg.BridgesDir())
		report, err := discovery.LoadAll(ctx, h.reg, dirs)
		if err != nil {
			return err
		}
		h.report = report
		if h.metrics != nil {
			for _, f := range report.Failures {
				h.metrics.RecordLoadFailure(f.Err)
			}
		}
		slog.Info("discovery complete",
			"loaded", len(report.Loaded),
			"skipped", len(report.Skipped),
			"failed", len(report.Failures))
	}
	if opts.preload {
		return h.preload(ctx)
	}
	return nil
}

// preload loads, opens and starts the configured libraries in order.
func (h *host) preload(ctx context.Context) error {
	for _, p := range h.cfg.Preload {
		kind, err := library.ParseKind(p.Kind)
		if err != nil {
			return err
		}
		lib, err := h.reg.Load(ctx, p.Name, kind, p.Path)
		if err != nil {
			if h.metrics != nil {
				h.metrics.RecordLoadFailure(err)
			}
			return oops.In("preload").With("library", p.Name).Wrap(err)
		}
		if !p.Open {
			continue
		}
		mm, err := h.reg.Middleware()
		if err != nil {
			return err
		}
		if err := mm.Open(ctx, lib); err != nil {
			return oops.In("preload").With("library", p.Name).Wrap(err)
		}
		if !p.Start {
			continue
		}
		if err := mm.StartInBackground(ctx, lib, logStartFailure); err != nil {
			return oops.In("preload").With("library", p.Name).Wrap(err)
		}
	}
	return nil
}

func logStartFailure(lib *library.Library, err error) {
	if err != nil {
		errutil.LogError(slog.Default(), "bridge dispatch failed", oops.With("library", lib.Name()).Wrap(err))
	}
}

func (h *host) close(ctx context.Context) error {
	return h.reg.Close(ctx)
}
