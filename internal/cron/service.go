package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
)

const defaultInterval = time.Minute

// ServiceParams configure one cron loop.
type ServiceParams struct {
	Loop     string
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Service executes registered jobs on a fixed cadence while it holds the loop lock.
type Service struct {
	loop     string
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
}

// NewService builds a cron loop.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	if params.Loop == "" {
		return nil, fmt.Errorf("loop name required")
	}
	registry := params.Registry
	if registry == nil {
		registry, _ = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		loop:     params.Loop,
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run executes a cycle immediately and then once per interval until ctx is
// canceled. A cycle in progress always finishes.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = s.logg.WithField(ctx, "loop", s.loop)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"jobs":     s.registry.Names(),
		"interval": s.interval.String(),
	}), "cron loop started")
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron loop stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	// jobs see a context that survives shutdown so the current cycle completes
	if err := s.runCycle(context.WithoutCancel(ctx)); err != nil {
		s.logg.Error(ctx, "scheduled run failed", err)
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Debug(ctx, "another worker holds the loop lock; skipping cycle")
		return nil
	}

	cycleCtx, cancel := context.WithCancelCause(ctx)
	stopRenew := s.renewLease(cycleCtx, cancel)
	defer func() {
		stopRenew()
		cancel(nil)
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release cron lock", relErr)
		}
	}()

	for _, job := range s.registry.Jobs() {
		if cause := context.Cause(cycleCtx); cause != nil {
			s.metrics.IncLeaseLost(s.loop)
			s.logg.Warn(s.logg.WithField(ctx, "skipped_job", job.Name()), "cron lease lost; abandoning cycle")
			return cause
		}
		s.runJob(cycleCtx, job)
	}
	return nil
}

// renewLease extends the lock every third of its TTL until stopped. Losing the
// lease cancels the cycle so no further job runs without exclusivity.
func (s *Service) renewLease(ctx context.Context, cancel context.CancelCauseFunc) func() {
	every := s.lock.TTL() / 3
	if every <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := s.lock.Extend(ctx)
				if errors.Is(err, ErrLockLost) {
					cancel(err)
					return
				}
				if err != nil {
					s.logg.Error(ctx, "cron lease renewal failed", err)
				}
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})
	start := time.Now()
	err := job.Run(jobCtx)
	took := time.Since(start)
	s.metrics.ObserveRun(s.loop, job.Name(), took, err)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		return
	}
	s.logg.Debug(jobCtx, "job completed")
}
