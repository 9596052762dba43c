package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/dpe-enrichment-service/internal/domain"
	"github.com/couchcryptid/dpe-enrichment-service/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// EventPublisher writes enrichment events downstream.
type EventPublisher interface {
	LoadBatch(ctx context.Context, events []domain.EnrichmentEvent) error
}

// Runner enriches every user concurrently. A failure for one user is
// recorded on that user's entry and never affects the others.
type Runner struct {
	users       domain.UserStore
	results     domain.ResultStore
	pipeline    *Pipeline
	indicators  *IndicatorStage
	publisher   EventPublisher
	concurrency int
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// RunnerConfig holds the Runner collaborators. Results, Indicators and
// Publisher are only used by persisting runs; Publisher may be nil. Clock
// stamps persisted rows and defaults to the real clock.
type RunnerConfig struct {
	Users       domain.UserStore
	Results     domain.ResultStore
	Pipeline    *Pipeline
	Indicators  *IndicatorStage
	Publisher   EventPublisher
	Concurrency int // 0 launches every user at once
	Clock       clockwork.Clock
}

// NewRunner creates a Runner.
func NewRunner(cfg RunnerConfig, logger *slog.Logger, metrics *observability.Metrics) *Runner {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Runner{
		users:       cfg.Users,
		results:     cfg.Results,
		pipeline:    cfg.Pipeline,
		indicators:  cfg.Indicators,
		publisher:   cfg.Publisher,
		concurrency: cfg.Concurrency,
		clock:       cfg.Clock,
		logger:      logger,
		metrics:     metrics,
	}
}

// Run lists the users and enriches them. Only a listing failure is returned
// as an error.
func (r *Runner) Run(ctx context.Context, persist bool) (domain.BatchResult, error) {
	users, err := r.users.ListUsers(ctx)
	if err != nil {
		return domain.BatchResult{}, classify(domain.StageListUsers, err)
	}
	return r.RunAll(ctx, users, persist), nil
}

// RunAll enriches users, returning one entry per user in input order. When
// persist is set each successful user also gets indicators, one stored row
// and one published event, all tagged with a fresh run ID.
func (r *Runner) RunAll(ctx context.Context, users []domain.UserRecord, persist bool) domain.BatchResult {
	start := time.Now()
	var runID string
	if persist {
		runID = uuid.NewString()
	}

	logger := r.logger.With("run_id", runID, "persist", persist)
	logger.Info("batch started", "users", len(users))

	out := make([]domain.EnrichedUserRecord, len(users))
	events := make([]*domain.EnrichmentEvent, len(users))

	var g errgroup.Group
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for i, u := range users {
		g.Go(func() error {
			out[i], events[i] = r.enrichUser(ctx, logger, runID, u, persist)
			return nil
		})
	}
	_ = g.Wait()

	r.publish(ctx, logger, events)

	var failed int
	for _, rec := range out {
		if rec.Error != "" {
			failed++
		}
	}
	r.metrics.BatchSize.Observe(float64(len(users)))
	r.metrics.BatchDuration.Observe(time.Since(start).Seconds())
	logger.Info("batch complete", "users", len(users), "failed", failed, "duration", time.Since(start))

	return domain.BatchResult{RunID: runID, Users: out}
}

func (r *Runner) enrichUser(ctx context.Context, logger *slog.Logger, runID string, u domain.UserRecord, persist bool) (domain.EnrichedUserRecord, *domain.EnrichmentEvent) {
	combined, ind, err := r.combine(ctx, u, persist)

	var ev *domain.EnrichmentEvent
	if err == nil && persist {
		var stored domain.EnrichmentEvent
		stored, err = r.store(ctx, runID, u, combined, ind)
		ev = &stored
	}
	if err != nil {
		r.pipeline.recordFailure(modeBatch, err)
		logger.Warn("user enrichment failed", "user_id", u.ID, "stage", domain.StageOf(err), "error", err)
		return domain.EnrichedUserRecord{UserRecord: u, Error: err.Error()}, nil
	}

	r.metrics.Enrichments.WithLabelValues(modeBatch, outcomeSuccess).Inc()
	return domain.EnrichedUserRecord{UserRecord: u, CombinedData: &combined}, ev
}

// combine builds the combined block for one user. Indicators are computed
// only when persisting and a diagnostic matched.
func (r *Runner) combine(ctx context.Context, u domain.UserRecord, persist bool) (domain.UserCombinedData, domain.Indicators, error) {
	addr := domain.AddressFromUser(u)
	if err := r.pipeline.validator.check(addr); err != nil {
		return domain.UserCombinedData{}, domain.Indicators{}, err
	}

	lr, err := r.pipeline.lookup(ctx, addr, 0)
	if err != nil {
		return domain.UserCombinedData{}, domain.Indicators{}, err
	}

	combined := domain.UserCombinedData{
		Address:        lr.formatted,
		Geocode:        lr.point,
		RecentMutation: lr.mutation,
		Diagnostic:     domain.FirstDiagnostic(lr.diagnostics),
	}

	var ind domain.Indicators
	if persist && combined.Diagnostic != nil && r.indicators != nil {
		ind, err = r.indicators.Compute(ctx, *combined.Diagnostic)
		if err != nil {
			return domain.UserCombinedData{}, domain.Indicators{}, err
		}
		combined.IRE = ind.IRE
		combined.IPE = ind.IPE
	}
	return combined, ind, nil
}

func (r *Runner) store(ctx context.Context, runID string, u domain.UserRecord, combined domain.UserCombinedData, ind domain.Indicators) (domain.EnrichmentEvent, error) {
	row := domain.ResultRow{
		RunID:      runID,
		User:       u,
		Combined:   combined,
		Indicators: ind,
		EnrichedAt: r.clock.Now().UTC(),
	}
	if err := r.results.InsertResult(ctx, row); err != nil {
		return domain.EnrichmentEvent{}, classify(domain.StagePersist, err)
	}
	r.metrics.RowsPersisted.Inc()
	return domain.EnrichmentEvent{
		RunID:      runID,
		UserID:     u.ID,
		Combined:   combined,
		Indicators: ind,
		EnrichedAt: row.EnrichedAt,
	}, nil
}

// publish sends the events of persisted users. Failures are logged only:
// rows are already stored.
func (r *Runner) publish(ctx context.Context, logger *slog.Logger, events []*domain.EnrichmentEvent) {
	if r.publisher == nil {
		return
	}
	batch := make([]domain.EnrichmentEvent, 0, len(events))
	for _, ev := range events {
		if ev != nil {
			batch = append(batch, *ev)
		}
	}
	if len(batch) == 0 {
		return
	}
	if err := r.publisher.LoadBatch(ctx, batch); err != nil {
		r.metrics.PublishErrors.Inc()
		logger.Error("publish enrichment events failed", "error", err, "events", len(batch))
		return
	}
	r.metrics.EventsPublished.Add(float64(len(batch)))
}
