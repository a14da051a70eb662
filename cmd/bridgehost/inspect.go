// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/holomush/bridgehost/internal/library"
)

// inspectResult is the output of the inspect command.
type inspectResult struct {
	library.Description `yaml:",inline"`
	ID                  string   `json:"id,omitempty" yaml:"id,omitempty"`
	DefaultPayloads     []string `json:"default_payloads,omitempty" yaml:"default_payloads,omitempty"`
}

// NewInspectCmd creates the inspect subcommand.
func NewInspectCmd() *cobra.Command {
	var (
		kindName string
		path     string
		output   string
		open     bool
	)

	cmd := &cobra.Command{
		Use:   "inspect NAME",
		Short: "Load one bridge library and describe it",
		Long: `Load the named bridge library, without discovery, and print its
descriptive properties. With --open a middleware bridge is also opened so
that its default payloads are reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := library.ParseKind(kindName)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			h, err := openHost(ctx, cfg, hostOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = h.close(ctx) }()

			lib, err := h.reg.Load(ctx, args[0], kind, path)
			if err != nil {
				return err
			}
			result := inspectResult{ID: libraryID(h.reg, lib)}
			if open && lib.Kind() == library.KindMiddleware {
				mm, err := h.reg.Middleware()
				if err != nil {
					return err
				}
				if err := mm.Open(ctx, lib); err != nil {
					return err
				}
				result.DefaultPayloads = mm.DefaultPayloads(lib)
			}
			desc, err := h.reg.Describe(lib)
			if err != nil {
				return err
			}
			result.Description = desc
			return render(cmd.OutOrStdout(), output, result)
		},
	}

	cmd.Flags().StringVar(&kindName, "kind", "", "library kind (middleware, payload, entitlement or plugin); empty classifies")
	cmd.Flags().StringVar(&path, "path", "", "library file (default: search the search path)")
	cmd.Flags().StringVarP(&output, "output", "o", formatYAML, "output format (yaml or json)")
	cmd.Flags().BoolVar(&open, "open", false, "open a middleware bridge to resolve its default payloads")

	return cmd
}
