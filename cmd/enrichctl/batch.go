package main

import (
	"os/signal"
	"syscall"

	"github.com/couchcryptid/dpe-enrichment-service/internal/app"
	"github.com/couchcryptid/dpe-enrichment-service/internal/observability"
	"github.com/spf13/cobra"
)

var batchPersist bool

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Enrich every stored user",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg, logger, observability.NewMetrics())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Runner.Run(ctx, batchPersist)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	batchCmd.Flags().BoolVar(&batchPersist, "persist", false, "store results, compute indicators and publish events")
	rootCmd.AddCommand(batchCmd)
}
