// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pvetools/pvetemplate/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Show the image catalog",
	Long: `Show the images this tool knows how to turn into templates.

Additional entries can be supplied with --catalog pointing at a TOML file;
entries with a known name replace the built-in ones.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := loadCatalog()
		if err != nil {
			return err
		}
		fmt.Print(formatCatalogTable(entries))
		return nil
	},
}

func formatCatalogTable(entries []catalog.ImageDescriptor) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTEMPLATE\tARCHIVE\tURL")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, e.DefaultTemplateName, e.Layout.Kind, e.URL)
	}
	w.Flush()
	return buf.String()
}
