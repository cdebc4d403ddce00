package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/shipment-console/pkg/logger"
)

const defaultInterval = 6 * time.Hour

// RunRecorder observes job runs. metrics.MaintenanceMetrics satisfies it.
type RunRecorder interface {
	ObserveRun(job string, duration time.Duration, err error)
}

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  RunRecorder
	Interval time.Duration
}

// Service runs the registered maintenance jobs on a fixed cadence under a shared lock.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  RunRecorder
	interval time.Duration
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = &Registry{}
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run starts the cron loop until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	jobs, _ := s.registry.Select()
	if err := s.runCycle(ctx, jobs); err != nil {
		s.logg.Error(ctx, "cron.cycle.failed", err)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron.stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.runCycle(ctx, jobs); err != nil {
				s.logg.Error(ctx, "cron.cycle.failed", err)
			}
		}
	}
}

// RunOnce runs a single locked cycle of the named jobs, or of every job when
// none are named.
func (s *Service) RunOnce(ctx context.Context, names ...string) error {
	jobs, err := s.registry.Select(names...)
	if err != nil {
		return err
	}
	return s.runCycle(ctx, jobs)
}

// runCycle runs each job once. A failing job does not stop the others; their
// errors come back combined.
func (s *Service) runCycle(ctx context.Context, jobs []Job) (err error) {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "cron.cycle.skipped")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "cron.lock.release_failed", relErr)
		}
	}()

	s.logg.Info(s.logg.WithField(ctx, "jobs", len(jobs)), "cron.cycle.start")
	for _, job := range jobs {
		err = multierr.Append(err, s.runJob(ctx, job))
	}
	s.logg.Info(ctx, "cron.cycle.complete")
	return err
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx := s.logg.WithFields(ctx, map[string]any{
		"job":   job.Name(),
		"event": "cron.job",
	})
	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	if s.metrics != nil {
		s.metrics.ObserveRun(job.Name(), duration, err)
	}
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "cron.job.failed", err)
		return fmt.Errorf("%s: %w", job.Name(), err)
	}
	s.logg.Info(jobCtx, "cron.job.complete")
	return nil
}
