package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/blotter/internal/document"
	"github.com/crimson-sun/blotter/internal/engine/extractor"
)

func extractCmd() *cobra.Command {
	var tikaURL string

	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Print the labelled sections found in a report",
		Long: `Extract prints the report's sections as JSON, with null for each section
that was not found. It reads stdin when no file is given. No artifacts
are needed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			pages, err := readPages(cmd.Context(), document.RegistryFor(tikaURL), path, cmd.InOrStdin())
			if err != nil {
				return err
			}

			fields := extractor.Extract(extractor.JoinPages(pages))
			data, err := json.MarshalIndent(fields, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))

			if missing := extractor.Missing(fields); len(missing) > 0 {
				names := make([]string, len(missing))
				for i, f := range missing {
					names[i] = string(f)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "missing: %s\n", strings.Join(names, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tikaURL, "tika-url", "", "Apache Tika server for PDF and office documents")
	return cmd
}
