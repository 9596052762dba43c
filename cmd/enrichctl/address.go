package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/dpe-enrichment-service/internal/app"
	"github.com/couchcryptid/dpe-enrichment-service/internal/domain"
	"github.com/couchcryptid/dpe-enrichment-service/internal/observability"
	"github.com/spf13/cobra"
)

var (
	addr           domain.Address
	addrRadius     float64
	addrIndicators bool
)

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Enrich a single address and print the combined result",
	Example: `  enrichctl address --numero 12 --type-voie Rue --adresse "de la Paix" --code-postal 75002 --commune Paris
  enrichctl address --numero 12 --type-voie Rue --adresse "de la Paix" --code-postal 75002 --commune Paris --indicators`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runAddress(ctx, cmd)
	},
}

func runAddress(ctx context.Context, cmd *cobra.Command) error {
	a, err := app.New(ctx, cfg, logger, observability.NewMetrics())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Pipeline.Enrich(ctx, addr, domain.EnrichOptions{
		RadiusMeters: addrRadius,
		Indicators:   addrIndicators,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func init() {
	f := addressCmd.Flags()
	f.StringVar(&addr.StreetNumber, "numero", "", "street number")
	f.StringVar(&addr.StreetType, "type-voie", "", "street type (Rue, Avenue, ...)")
	f.StringVar(&addr.StreetName, "adresse", "", "street name")
	f.StringVar(&addr.PostalCode, "code-postal", "", "postal code")
	f.StringVar(&addr.Commune, "commune", "", "commune")
	f.Float64Var(&addrRadius, "distance", 0, "search radius in meters (default SEARCH_RADIUS_METERS)")
	f.BoolVar(&addrIndicators, "indicators", false, "compute IRE, IPE and the savings projection")
	rootCmd.AddCommand(addressCmd)
}
