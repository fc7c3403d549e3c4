package worker

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// BatchJob processes one batch and reports how many items it handled.
type BatchJob interface {
	Execute(ctx context.Context) (int, error)
}

// AutoCloseJob runs an auto-close sweep with the stored settings.
type AutoCloseJob struct {
	Settings repository.SettingsRepository
	Service  *service.AutoCloseService
}

// Execute implements BatchJob.
func (j AutoCloseJob) Execute(ctx context.Context) (int, error) {
	settings, err := j.Settings.Get(ctx)
	if err != nil {
		return 0, err
	}
	result, err := j.Service.Run(ctx, settings)
	if err != nil {
		return 0, err
	}
	return result.Closed, nil
}

// Scheduler owns the periodic jobs.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *zap.Logger

	mu      sync.Mutex
	started bool
}

// NewScheduler builds a scheduler running in UTC.
func NewScheduler(logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}
	return &Scheduler{scheduler: s, logger: logger}, nil
}

// RegisterAutoClose runs job every interval. A slow sweep delays the next one
// instead of overlapping it.
func (s *Scheduler) RegisterAutoClose(interval time.Duration, job BatchJob) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			s.runBatch(ctx, "auto-close", job)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("tickets", "auto-close"),
		gocron.WithName("auto-close-pending-validation"),
	)
	if err != nil {
		return err
	}
	s.logger.Info("registered auto-close job", zap.Duration("interval", interval))
	return nil
}

func (s *Scheduler) runBatch(ctx context.Context, name string, job BatchJob) {
	start := time.Now()
	count, err := job.Execute(ctx)
	if err != nil {
		s.logger.Error("scheduled job failed",
			zap.String("job", name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return
	}
	if count > 0 {
		s.logger.Info("scheduled job finished",
			zap.String("job", name),
			zap.Int("count", count),
			zap.Duration("duration", time.Since(start)))
		return
	}
	s.logger.Debug("scheduled job found nothing to do", zap.String("job", name))
}

// Start begins running registered jobs.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.scheduler.Start()
	s.started = true
	s.logger.Info("scheduler started", zap.Int("job_count", len(s.scheduler.Jobs())))
}

// Stop waits for running jobs and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return s.scheduler.Shutdown()
	}
	s.started = false
	if err := s.scheduler.Shutdown(); err != nil {
		s.logger.Error("scheduler shutdown failed", zap.Error(err))
		return err
	}
	s.logger.Info("scheduler stopped")
	return nil
}
