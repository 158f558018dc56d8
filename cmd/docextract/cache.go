package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/docextract/internal/app"
)

func (c *cli) cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Maintain downloaded documents and cached pages",
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached download and page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.ClearCaches(c.cfg)
		},
	}

	var maxAge time.Duration
	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove cache entries older than --max-age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			age := maxAge
			if !cmd.Flags().Changed("max-age") {
				age = c.cfg.CacheMaxAge
			}
			if age <= 0 {
				return errors.New("purge needs a positive --max-age (or CACHE_MAX_AGE)")
			}
			n, err := app.PurgeCaches(c.cfg, age)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", n)
			return nil
		},
	}
	purgeCmd.Flags().DurationVar(&maxAge, "max-age", 0, "Age threshold, e.g. 72h")

	cmd.AddCommand(clearCmd, purgeCmd)
	return cmd
}
