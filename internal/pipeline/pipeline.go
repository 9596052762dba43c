package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/couchcryptid/dpe-enrichment-service/internal/domain"
	"github.com/couchcryptid/dpe-enrichment-service/internal/observability"
)

const (
	modeSingle = "single"
	modeBatch  = "batch"

	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Pipeline enriches one address: geocode, then nearby sales, then nearby
// diagnostics, strictly in that order. Any stage failure aborts the run.
type Pipeline struct {
	geocoder     domain.Geocoder
	transactions domain.TransactionLookup
	diagnostics  domain.DiagnosticLookup
	indicators   *IndicatorStage
	validator    *addressValidator
	radius       float64
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// New creates a Pipeline. radius is the default search radius in meters.
// indicators may be nil, in which case indicator requests are ignored.
func New(g domain.Geocoder, t domain.TransactionLookup, d domain.DiagnosticLookup, indicators *IndicatorStage, radius float64, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if radius <= 0 {
		radius = domain.DefaultSearchRadius
	}
	return &Pipeline{
		geocoder:     g,
		transactions: t,
		diagnostics:  d,
		indicators:   indicators,
		validator:    newAddressValidator(),
		radius:       radius,
		logger:       logger,
		metrics:      metrics,
	}
}

// lookupResult is the output of the three upstream stages, with diagnostics
// already narrowed to the queried street number.
type lookupResult struct {
	formatted   string
	point       domain.GeoPoint
	mutation    domain.MutationRecord
	diagnostics []domain.DiagnosticRecord
}

// Enrich runs the pipeline for addr and returns the combined result, or a
// classified *domain.Error naming the failed stage.
func (p *Pipeline) Enrich(ctx context.Context, addr domain.Address, opts domain.EnrichOptions) (domain.CombinedResult, error) {
	res, err := p.enrich(ctx, addr, opts)
	if err != nil {
		p.recordFailure(modeSingle, err)
		p.logger.Warn("address enrichment failed", "stage", domain.StageOf(err), "error", err)
		return domain.CombinedResult{}, err
	}
	p.metrics.Enrichments.WithLabelValues(modeSingle, outcomeSuccess).Inc()
	return res, nil
}

func (p *Pipeline) enrich(ctx context.Context, addr domain.Address, opts domain.EnrichOptions) (domain.CombinedResult, error) {
	addr = addr.Trimmed()
	if err := p.validator.checkFull(addr); err != nil {
		return domain.CombinedResult{}, err
	}

	lr, err := p.lookup(ctx, addr, opts.RadiusMeters)
	if err != nil {
		return domain.CombinedResult{}, err
	}

	res := domain.CombinedResult{
		Address:        lr.formatted,
		Geocode:        lr.point,
		RecentMutation: lr.mutation,
		Diagnostics:    lr.diagnostics,
	}

	if opts.Indicators && p.indicators != nil {
		if first := domain.FirstDiagnostic(lr.diagnostics); first != nil {
			ind, err := p.indicators.Compute(ctx, *first)
			if err != nil {
				return domain.CombinedResult{}, err
			}
			res.Indicators = &ind
		}
	}
	return res, nil
}

// lookup runs the three upstream stages for an already validated address.
func (p *Pipeline) lookup(ctx context.Context, addr domain.Address, radius float64) (lookupResult, error) {
	if radius <= 0 {
		radius = p.radius
	}
	formatted := addr.Formatted()

	point, err := p.geocoder.Resolve(ctx, formatted)
	if err != nil {
		return lookupResult{}, classify(domain.StageGeocode, err)
	}

	mutations, err := p.transactions.Lookup(ctx, point, radius)
	if err != nil {
		return lookupResult{}, classify(domain.StageTransactions, err)
	}
	recent, ok := domain.MostRecentMutation(mutations)
	if !ok {
		return lookupResult{}, domain.NotFound(domain.StageTransactions, "no mutation data found for the given coordinates")
	}

	records, err := p.diagnostics.Lookup(ctx, point, radius)
	if err != nil {
		return lookupResult{}, classify(domain.StageDiagnostics, err)
	}

	return lookupResult{
		formatted:   formatted,
		point:       point,
		mutation:    recent,
		diagnostics: domain.FilterByStreetNumber(records, addr.StreetNumber),
	}, nil
}

func (p *Pipeline) recordFailure(mode string, err error) {
	p.metrics.Enrichments.WithLabelValues(mode, outcomeFailure).Inc()
	p.metrics.EnrichmentFailures.WithLabelValues(string(domain.StageOf(err))).Inc()
}

// classify leaves classified errors untouched and wraps anything else as
// the failure kind of stage.
func classify(stage domain.Stage, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	switch stage {
	case domain.StageEnergyCost, domain.StageIndicators, domain.StagePersist, domain.StageListUsers:
		return domain.Store(stage, "store request failed", err)
	default:
		return domain.Upstream(stage, "upstream request failed", err)
	}
}
