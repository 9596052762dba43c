package main

import (
	"github.com/couchcryptid/dpe-enrichment-service/internal/app"
	"github.com/couchcryptid/dpe-enrichment-service/internal/observability"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the energy-cost and DPE class reference tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := app.New(ctx, cfg, logger, observability.NewMetrics())
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Loader.Seed(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
