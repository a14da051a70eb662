// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/holomush/bridgehost/internal/library"
	"github.com/holomush/bridgehost/internal/selector"
)

// listEntry is one row of the list command.
type listEntry struct {
	Name       string `json:"name" yaml:"name"`
	Kind       string `json:"kind" yaml:"kind"`
	ID         string `json:"id,omitempty" yaml:"id,omitempty"`
	Path       string `json:"path,omitempty" yaml:"path,omitempty"`
	InstanceID string `json:"instance_id" yaml:"instance_id"`
	Version    string `json:"version" yaml:"version"`
}

// NewListCmd creates the list subcommand.
func NewListCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list [selector]",
		Short: "List the bridge libraries found on the search path",
		Long: `Discover bridge libraries, load the preload list and print the loaded
libraries. An optional selector filters them, for example:

  bridgehost list 'kind == middleware and not name ~= "test*"'
  bridgehost list 'prop.author == NYSE'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := selector.Parse(strings.Join(args, " "))
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
			h, err := openHost(ctx, cfg, hostOptions{discover: true, preload: true})
			if err != nil {
				return err
			}
			defer func() { _ = h.close(ctx) }()

			entries, err := listEntries(h.reg, sel)
			if err != nil {
				return err
			}
			if output == formatTable {
				return printTable(cmd, entries)
			}
			return render(cmd.OutOrStdout(), output, entries)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format (table, yaml or json)")

	return cmd
}

func listEntries(reg *library.Registry, sel *selector.Selector) ([]listEntry, error) {
	libs, err := reg.List(library.KindUnknown, sel.Predicate(reg))
	if err != nil {
		return nil, err
	}
	entries := make([]listEntry, 0, len(libs))
	for _, lib := range libs {
		version, _ := reg.Property(lib, "version")
		entries = append(entries, listEntry{
			Name:       lib.Name(),
			Kind:       lib.Kind().String(),
			ID:         libraryID(reg, lib),
			Path:       lib.Path(),
			InstanceID: lib.InstanceID().String(),
			Version:    version,
		})
	}
	return entries, nil
}

// libraryID returns the single character id of middleware, payload and
// entitlement libraries once assigned.
func libraryID(reg *library.Registry, lib *library.Library) string {
	var (
		id  byte
		err error
	)
	switch lib.Kind() {
	case library.KindMiddleware:
		var mm *library.MiddlewareManager
		if mm, err = reg.Middleware(); err == nil {
			id, err = mm.ID(lib)
		}
	case library.KindPayload:
		var pm *library.PayloadManager
		if pm, err = reg.Payload(); err == nil {
			id, err = pm.ID(lib)
		}
	case library.KindEntitlement:
		var em *library.EntitlementManager
		if em, err = reg.Entitlement(); err == nil {
			id, err = em.ID(lib)
		}
	}
	if err != nil || id == 0 {
		return ""
	}
	return string(id)
}

func printTable(cmd *cobra.Command, entries []listEntry) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tID\tVERSION\tPATH")
	for _, e := range entries {
		path := e.Path
		if path == "" {
			path = "(in process)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Name, e.Kind, e.ID, e.Version, path)
	}
	return tw.Flush()
}
