package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/docextract/internal/batch"
	"github.com/hyperifyio/docextract/internal/export"
)

func (c *cli) extractCmd() *cobra.Command {
	var (
		req         batch.Request
		output      string
		outDir      string
		searchLimit int
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract text from files, URLs, web pages or search results",
		Example: `  docextract extract --files report.pdf,scan.png
  docextract extract --urls https://example.com/a.pdf --output all
  docextract extract --pages https://example.com/reports --search "annual report 2023"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Empty() {
				_ = cmd.Help()
				return batch.ErrNoSources
			}
			formats, err := export.ParseOutput(output)
			if err != nil {
				return err
			}
			cfg := c.cfg
			if cmd.Flags().Changed("search-limit") {
				cfg.SearchLimit = searchLimit
			}
			a, err := c.newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}

			report := a.Run(cmd.Context(), req)
			if report.Total == 0 {
				log.Warn().Str("run_id", report.RunID).Msg("no documents were processed")
				return nil
			}
			paths, err := a.Export(report, formats, outDir, time.Now())
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			log.Info().Msgf("Processed %d documents", report.Total)
			log.Info().Msgf("Successful extractions: %d/%d", report.Succeeded, report.Total)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&req.Files, "files", nil, "Local files to extract")
	f.StringSliceVar(&req.URLs, "urls", nil, "Document URLs to download and extract")
	f.StringVar(&req.URLFile, "url-file", "", "File listing one URL per line")
	f.StringSliceVar(&req.Pages, "pages", nil, "Web pages to scan for PDF links")
	f.StringVar(&req.Query, "search", "", "Search query for PDF documents")
	f.IntVar(&searchLimit, "search-limit", 0, "Maximum search results to process")
	f.StringVar(&output, "output", "both", "Export format: json, csv, xlsx, both or all")
	f.StringVar(&outDir, "out-dir", "", "Export directory (default <data-dir>/processed)")
	return cmd
}
