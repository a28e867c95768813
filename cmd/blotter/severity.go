package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/blotter/internal/engine/severity"
)

func severityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "severity [category]",
		Short: "Look up a category's severity tier, or print the table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table := severity.Default()
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				fmt.Fprintln(out, table.Lookup(args[0]))
				return nil
			}
			for _, tier := range table.Tiers() {
				fmt.Fprintf(out, "%d\t%s\n", int(tier.Severity), strings.Join(tier.Categories, ", "))
			}
			return nil
		},
	}
}
