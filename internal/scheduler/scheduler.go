// Package scheduler runs the periodic background jobs: reloading loaded
// workspaces from the backend and refreshing the exchange-rate quote.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/boddenberg/broker-crm-bfa-go/internal/infra/observability"
)

// Job is one periodic task.
type Job struct {
	Name     string
	Schedule string
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler wraps a cron runner whose jobs never overlap themselves.
type Scheduler struct {
	cron    *cron.Cron
	metrics *observability.Metrics
	logger  *zap.Logger
}

// New creates a stopped scheduler.
func New(metrics *observability.Metrics, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DiscardLogger),
			cron.SkipIfStillRunning(cron.DiscardLogger),
		)),
		metrics: metrics,
		logger:  logger,
	}
}

// Add registers job. An empty schedule disables it.
func (s *Scheduler) Add(job Job) error {
	if job.Schedule == "" {
		s.logger.Info("scheduled job disabled", zap.String("job", job.Name))
		return nil
	}
	if _, err := s.cron.AddFunc(job.Schedule, func() { s.run(job) }); err != nil {
		return fmt.Errorf("scheduling %s (%q): %w", job.Name, job.Schedule, err)
	}
	s.logger.Info("scheduled job registered",
		zap.String("job", job.Name),
		zap.String("schedule", job.Schedule),
	)
	return nil
}

func (s *Scheduler) run(job Job) {
	ctx := context.Background()
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := job.Run(ctx)
	s.metrics.RecordRequestDuration("job."+job.Name, time.Since(start))
	if err != nil {
		s.metrics.IncrJobRun(job.Name, "error")
		s.logger.Error("scheduled job failed", zap.String("job", job.Name), zap.Error(err))
		return
	}
	s.metrics.IncrJobRun(job.Name, "ok")
	s.logger.Debug("scheduled job done",
		zap.String("job", job.Name),
		zap.Duration("took", time.Since(start)),
	)
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}
