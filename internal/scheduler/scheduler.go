package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultCompletionSchedule runs the completion sweep daily at 02:00 UTC.
const DefaultCompletionSchedule = "0 0 2 * * *"

// Completer moves approved bookings whose stay is over to completed.
type Completer interface {
	CompleteElapsedBookings(ctx context.Context, now time.Time) (int, error)
}

// Scheduler runs the periodic booking jobs.
type Scheduler struct {
	cron      *cron.Cron
	completer Completer
	logger    *zap.Logger
	timeout   time.Duration
	now       func() time.Time
}

// New creates a scheduler with UTC, seconds-precision cron specs and registers
// the completion sweep under spec.
func New(completer Completer, spec string, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		completer: completer,
		logger:    logger.Named("scheduler"),
		timeout:   time.Minute,
		now:       time.Now,
	}
	if spec == "" {
		spec = DefaultCompletionSchedule
	}
	if _, err := s.cron.AddFunc(spec, s.CompleteElapsed); err != nil {
		return nil, fmt.Errorf("failed to register completion job %q: %w", spec, err)
	}
	return s, nil
}

// CompleteElapsed runs one completion sweep.
func (s *Scheduler) CompleteElapsed() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.completer.CompleteElapsedBookings(ctx, s.now().UTC())
	if err != nil {
		s.logger.Error("completion sweep failed", zap.Int("completed", n), zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("completed elapsed bookings", zap.Int("count", n))
	}
}

// Start begins the cron scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("starting cron scheduler", zap.Int("jobs", len(s.cron.Entries())))
	s.cron.Start()
}

// Stop waits for running jobs and stops the scheduler.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("cron scheduler stopped")
}
