// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/holomush/bridgehost/internal/library"
)

// symbolEntry is one row of the symbols command.
type symbolEntry struct {
	Symbol   string `json:"symbol" yaml:"symbol"`
	Required bool   `json:"required" yaml:"required"`
	Type     string `json:"type" yaml:"type"`
}

// NewSymbolsCmd creates the symbols subcommand.
func NewSymbolsCmd() *cobra.Command {
	var (
		name   string
		output string
	)

	cmd := &cobra.Command{
		Use:   "symbols KIND",
		Short: "List the entry points a bridge kind resolves",
		Long: `List the entry points bound into the dispatch table of a bridge kind,
in bind order. Optional entry points fall back to default<Func> when the
library does not export them. With --library the names are prefixed the
way the library must export them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := library.ParseKind(args[0])
			if err != nil {
				return err
			}
			infos, err := library.Symbols(kind)
			if err != nil {
				return err
			}
			entries := make([]symbolEntry, len(infos))
			for i, info := range infos {
				entries[i] = symbolEntry{
					Symbol:   name + info.Func,
					Required: info.Required,
					Type:     info.Type.String(),
				}
			}
			if output != formatTable {
				return render(cmd.OutOrStdout(), output, entries)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SYMBOL\tREQUIRED\tTYPE")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%t\t%s\n", e.Symbol, e.Required, e.Type)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&name, "library", "", "library name prefixed to every entry point")
	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format (table, yaml or json)")

	return cmd
}
