// Package refdata holds the embedded reference tables used to compute
// indicators: average energy cost per kWh and DPE class consumption bands.
package refdata

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/dpe-enrichment-service/internal/domain"
	"github.com/couchcryptid/dpe-enrichment-service/internal/observability"
	"gopkg.in/yaml.v3"
)

var (
	//go:embed energy_costs.yaml
	energyCostsYAML []byte

	//go:embed dpe_classes.yaml
	dpeClassesYAML []byte
)

// EnergyCosts returns the embedded energy-cost table.
func EnergyCosts() ([]domain.EnergyCostEntry, error) {
	var doc struct {
		Entries []domain.EnergyCostEntry `yaml:"energy_costs"`
	}
	if err := yaml.Unmarshal(energyCostsYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse energy costs: %w", err)
	}
	for i, e := range doc.Entries {
		if e.HeatingType == "" {
			return nil, fmt.Errorf("energy cost %d: missing type_chauffage", i)
		}
	}
	return doc.Entries, nil
}

// ClassBands returns the embedded DPE class consumption table.
func ClassBands() ([]domain.ClassConsumption, error) {
	var doc struct {
		Classes []domain.ClassConsumption `yaml:"dpe_classes"`
	}
	if err := yaml.Unmarshal(dpeClassesYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse dpe classes: %w", err)
	}
	for _, c := range doc.Classes {
		if _, ok := domain.DPEScore(c.Class); !ok {
			return nil, fmt.Errorf("dpe class %q: unknown label", c.Class)
		}
		if c.Min > c.Average || c.Average > c.Max {
			return nil, fmt.Errorf("dpe class %s: band is not ordered", c.Class)
		}
	}
	return doc.Classes, nil
}

// Seeder writes reference tables.
type Seeder interface {
	SeedEnergyCosts(ctx context.Context, entries []domain.EnergyCostEntry) (int, error)
	SeedClassConsumption(ctx context.Context, bands []domain.ClassConsumption) (int, error)
}

// Report counts the rows written by Seed.
type Report struct {
	EnergyCosts int `json:"energy_costs"`
	DPEClasses  int `json:"dpe_classes"`
}

// Seed upserts both embedded tables.
func Seed(ctx context.Context, s Seeder, metrics *observability.Metrics, logger *slog.Logger) (Report, error) {
	costs, err := EnergyCosts()
	if err != nil {
		return Report{}, err
	}
	bands, err := ClassBands()
	if err != nil {
		return Report{}, err
	}

	var r Report
	if r.EnergyCosts, err = s.SeedEnergyCosts(ctx, costs); err != nil {
		return r, err
	}
	metrics.ReferenceRowsSeeded.WithLabelValues("energy_costs").Add(float64(r.EnergyCosts))

	if r.DPEClasses, err = s.SeedClassConsumption(ctx, bands); err != nil {
		return r, err
	}
	metrics.ReferenceRowsSeeded.WithLabelValues("dpe_class_consumption").Add(float64(r.DPEClasses))

	logger.Info("reference data seeded", "energy_costs", r.EnergyCosts, "dpe_classes", r.DPEClasses)
	return r, nil
}

// Loader binds Seed to a store so callers can trigger seeding on demand.
type Loader struct {
	seeder  Seeder
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewLoader creates a Loader that seeds into s.
func NewLoader(s Seeder, metrics *observability.Metrics, logger *slog.Logger) *Loader {
	return &Loader{seeder: s, metrics: metrics, logger: logger}
}

// Seed upserts both embedded tables into the bound store.
func (l *Loader) Seed(ctx context.Context) (Report, error) {
	return Seed(ctx, l.seeder, l.metrics, l.logger)
}
