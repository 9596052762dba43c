package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/dpe-enrichment-service/internal/domain"
	"github.com/couchcryptid/dpe-enrichment-service/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// BatchRunner runs one batch over the stored users.
type BatchRunner interface {
	Run(ctx context.Context, persist bool) (domain.BatchResult, error)
}

// Scheduler runs the persisting batch on a fixed interval.
type Scheduler struct {
	runner   BatchRunner
	interval time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics
	runs     atomic.Int64
}

// NewScheduler creates a Scheduler that runs every interval.
func NewScheduler(runner BatchRunner, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
	}
}

// Runs returns the number of completed batch runs.
func (s *Scheduler) Runs() int64 { return s.runs.Load() }

// Run executes a batch immediately and then once per interval until the
// context is cancelled. A failed user listing is retried with exponential
// backoff before the next interval starts.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.New("scheduler interval must be positive")
	}
	s.logger.Info("scheduler started", "interval", s.interval)
	s.metrics.SchedulerRunning.Set(1)
	defer s.metrics.SchedulerRunning.Set(0)

	for {
		if !s.runOnce(ctx) {
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		}
		if !retry.SleepWithContext(ctx, s.interval) {
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// runOnce runs one persisting batch, retrying listing failures. Returns
// false if the scheduler should stop.
func (s *Scheduler) runOnce(ctx context.Context) bool {
	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			return false
		}
		res, err := s.runner.Run(ctx, true)
		if err == nil {
			s.runs.Add(1)
			s.logger.Info("scheduled batch complete", "run_id", res.RunID, "users", len(res.Users))
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		s.logger.Error("scheduled batch failed", "error", err, "retry_in", backoff)
		if !retry.SleepWithContext(ctx, backoff) {
			return false
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}
