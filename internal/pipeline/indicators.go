package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/couchcryptid/dpe-enrichment-service/internal/domain"
)

// IndicatorStage derives IRE, IPE and the savings projection for one
// diagnostic. Reference rows that do not exist are soft misses: the
// dependent figures are nil and a warning is logged.
type IndicatorStage struct {
	costs       domain.EnergyCostLookup
	classes     domain.ClassConsumptionLookup
	targetClass string
	logger      *slog.Logger
}

// NewIndicatorStage creates an IndicatorStage. A nil classes lookup disables
// the savings projection.
func NewIndicatorStage(costs domain.EnergyCostLookup, classes domain.ClassConsumptionLookup, targetClass string, logger *slog.Logger) *IndicatorStage {
	return &IndicatorStage{
		costs:       costs,
		classes:     classes,
		targetClass: targetClass,
		logger:      logger,
	}
}

// Compute looks up the energy cost of d and derives its indicators.
func (s *IndicatorStage) Compute(ctx context.Context, d domain.DiagnosticRecord) (domain.Indicators, error) {
	var ind domain.Indicators

	cost, err := s.costPerKwh(ctx, d)
	if err != nil {
		return domain.Indicators{}, err
	}
	ind.CostPerKwh = cost
	ind.IRE = domain.ComputeIRE(d, cost)
	ind.IPE = domain.ComputeIPE(d, s.logger)

	if cost == nil || s.classes == nil {
		return ind, nil
	}

	ref, err := s.classes.ClassConsumption(ctx, s.targetClass)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.logger.Warn("no consumption band for target class, skipping projection", "class", s.targetClass)
		return ind, nil
	case err != nil:
		return domain.Indicators{}, classify(domain.StageIndicators, err)
	}
	ind.Projection = domain.ProjectSavings(d, *cost, ref)
	return ind, nil
}

func (s *IndicatorStage) costPerKwh(ctx context.Context, d domain.DiagnosticRecord) (*float64, error) {
	energy := d.CostEnergyType()
	if energy == "" {
		s.logger.Debug("diagnostic has no energy type, skipping cost lookup", "ban_id", d.BANID)
		return nil, nil
	}

	cost, err := s.costs.AverageCostPerKwh(ctx, energy)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.logger.Warn("no average cost for energy type", "energy_type", energy)
		return nil, nil
	case err != nil:
		return nil, classify(domain.StageEnergyCost, err)
	}
	return cost, nil
}
