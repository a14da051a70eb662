// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/holomush/bridgehost/internal/config"
	"github.com/holomush/bridgehost/internal/library"
	"github.com/holomush/bridgehost/internal/observability"
)

// shutdownTimeout bounds the metrics server shutdown and registry drain.
const shutdownTimeout = 10 * time.Second

// ObservabilityServer is the subset of observability.Server used by serve.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// ObservabilityServerFactory creates the metrics server for a host.
type ObservabilityServerFactory func(addr string, host *observability.Host) ObservabilityServer

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load bridges and supervise them until interrupted",
		Long: `Discover bridge libraries, load the preload list, open and start the
configured middleware bridges, and serve metrics and health probes until
SIGINT or SIGTERM. On shutdown every library is unloaded, plugins first and
payloads last.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runServe(ctx, cmd, cfg, nil)
		},
	}

	cmd.Flags().String("metrics-addr", config.DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")

	return cmd
}

// runServe runs the host until ctx is done or a signal arrives. A nil
// factory selects observability.NewServer.
func runServe(ctx context.Context, cmd *cobra.Command, cfg *config.Config, factory ObservabilityServerFactory) error {
	if factory == nil {
		factory = func(addr string, host *observability.Host) ObservabilityServer {
			return observability.NewServer(addr, host)
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	host := observability.NewHost()
	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.MetricsAddr != "" {
		obsServer = factory(cfg.MetricsAddr, host)
		metrics = obsServer.Metrics()
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		defer stopServer(obsServer)
	}

	h, err := openHost(ctx, cfg, hostOptions{discover: true, preload: true, metrics: metrics})
	if err != nil {
		return err
	}
	host.Attach(h.reg)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	libs, err := h.reg.List(library.KindUnknown, nil)
	if err != nil {
		_ = h.close(ctx)
		return err
	}
	cmd.Println("bridgehost started")
	slog.Info("bridgehost ready",
		"libraries", len(libs),
		"failures", len(h.report.Failures))

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	host.Drain()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := h.close(shutdownCtx); err != nil {
		slog.Warn("error unloading libraries", "error", err)
	}
	slog.Info("shutdown complete")
	return nil
}

func stopServer(s ObservabilityServer) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		slog.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors monitors a server's error channel and cancels the context on error.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
