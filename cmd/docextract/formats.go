package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/docextract/internal/extract"
)

func (c *cli) formatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported file extensions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, ext := range extract.SupportedExtensions() {
				fmt.Fprintln(cmd.OutOrStdout(), ext)
			}
		},
	}
}
