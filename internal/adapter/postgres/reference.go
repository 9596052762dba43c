package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/dpe-enrichment-service/internal/domain"
	"github.com/jackc/pgx/v5"
)

const (
	costSQL = `SELECT cout_moyen_kwh FROM energy_costs WHERE type_chauffage = $1`

	classSQL = `SELECT classe, consommation_min, consommation_moyenne, consommation_max
FROM dpe_class_consumption WHERE classe = $1`

	upsertCostSQL = `INSERT INTO energy_costs (type_chauffage, cout_moyen_kwh, annee)
VALUES ($1, $2, $3)
ON CONFLICT (type_chauffage) DO UPDATE SET cout_moyen_kwh = EXCLUDED.cout_moyen_kwh, annee = EXCLUDED.annee`

	upsertClassSQL = `INSERT INTO dpe_class_consumption (classe, consommation_min, consommation_moyenne, consommation_max)
VALUES ($1, $2, $3, $4)
ON CONFLICT (classe) DO UPDATE SET consommation_min = EXCLUDED.consommation_min,
    consommation_moyenne = EXCLUDED.consommation_moyenne,
    consommation_max = EXCLUDED.consommation_max`
)

// AverageCostPerKwh returns the cost for heatingType. A row with a NULL
// cost yields (nil, nil); a missing row yields a NotFound error.
func (s *Store) AverageCostPerKwh(ctx context.Context, heatingType string) (*float64, error) {
	var cost *float64
	err := s.pool.QueryRow(ctx, costSQL, heatingType).Scan(&cost)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFound(domain.StageEnergyCost, fmt.Sprintf("no energy cost for %q", heatingType))
	}
	if err != nil {
		return nil, domain.Store(domain.StageEnergyCost, "query energy cost", err)
	}
	return cost, nil
}

// ClassConsumption returns the consumption band of a DPE class.
func (s *Store) ClassConsumption(ctx context.Context, class string) (domain.ClassConsumption, error) {
	var c domain.ClassConsumption
	err := s.pool.QueryRow(ctx, classSQL, class).Scan(&c.Class, &c.Min, &c.Average, &c.Max)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ClassConsumption{}, domain.NotFound(domain.StageIndicators, fmt.Sprintf("no consumption band for class %q", class))
	}
	if err != nil {
		return domain.ClassConsumption{}, domain.Store(domain.StageIndicators, "query class consumption", err)
	}
	return c, nil
}

// SeedEnergyCosts upserts entries in one transaction and returns the count written.
func (s *Store) SeedEnergyCosts(ctx context.Context, entries []domain.EnergyCostEntry) (int, error) {
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		for _, e := range entries {
			if _, err := tx.Exec(ctx, upsertCostSQL, e.HeatingType, e.CostPerKwh, e.Year); err != nil {
				return fmt.Errorf("upsert energy cost %q: %w", e.HeatingType, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed energy costs: %w", err)
	}
	return len(entries), nil
}

// SeedClassConsumption upserts bands in one transaction and returns the count written.
func (s *Store) SeedClassConsumption(ctx context.Context, bands []domain.ClassConsumption) (int, error) {
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		for _, b := range bands {
			if _, err := tx.Exec(ctx, upsertClassSQL, b.Class, b.Min, b.Average, b.Max); err != nil {
				return fmt.Errorf("upsert class %q: %w", b.Class, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed class consumption: %w", err)
	}
	return len(bands), nil
}
