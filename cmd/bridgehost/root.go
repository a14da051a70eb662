// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/holomush/bridgehost/internal/config"
	"github.com/holomush/bridgehost/internal/logging"
	"github.com/holomush/bridgehost/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the bridgehost CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bridgehost",
		Short: "bridgehost - a middleware-agnostic bridge registry",
		Long: `bridgehost loads middleware, payload, entitlement and plugin bridges
from shared objects, Lua scripts and out-of-process plugins, and supervises
their open, start, stop and close lifecycle.`,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/bridgehost/config.yaml when present)")
	pf.StringSlice("search-path", nil, "directories searched for bridge libraries")
	pf.StringSlice("properties-files", nil, ".properties files loaded before discovery")
	pf.String("host-version", "", "host API version checked against library minimum versions")
	pf.Bool("discover", true, "load every bridge library found on the search path")
	pf.String("log-format", config.DefaultLogFormat, "log format (json or text)")
	pf.String("log-level", config.DefaultLogLevel, "log level (debug, info, warn or error)")

	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewInspectCmd())
	cmd.AddCommand(NewSymbolsCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewSchemaCmd())

	return cmd
}

// loadConfig resolves the configuration of cmd and installs the default
// logger it selects.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configFile
	if path == "" {
		if _, err := os.Stat(xdg.ConfigFile()); err == nil {
			path = xdg.ConfigFile()
		}
	}
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logging.SetDefault(logging.Options{
		Version: version,
		Format:  cfg.LogFormat,
		Level:   level,
	})
	return cfg, nil
}
