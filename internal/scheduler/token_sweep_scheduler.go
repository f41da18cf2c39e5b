package scheduler

import (
	"context"
	"time"

	"github.com/ikkim/coach-portal-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the sweep twice an hour.
const DefaultSweepSchedule = "@every 30m"

// ExpirySweeper deletes expired records and reports how many were removed.
type ExpirySweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// TokenSweepScheduler periodically removes expired reset tokens that were
// never looked up again.
type TokenSweepScheduler struct {
	cron     *cron.Cron
	sweeper  ExpirySweeper
	schedule string
	timeout  time.Duration
}

func NewTokenSweepScheduler(sweeper ExpirySweeper, schedule string, timeout time.Duration) *TokenSweepScheduler {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &TokenSweepScheduler{
		cron:     cron.New(),
		sweeper:  sweeper,
		schedule: schedule,
		timeout:  timeout,
	}
}

// Start registers the sweep job and starts the scheduler
func (s *TokenSweepScheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.RunOnce)
	if err != nil {
		logger.Error("Failed to add cron job for reset token sweep", err, map[string]interface{}{
			"schedule": s.schedule,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Reset token sweep scheduler started", map[string]interface{}{
		"schedule": s.schedule,
	})
	return nil
}

// RunOnce performs a single sweep.
func (s *TokenSweepScheduler) RunOnce() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	n, err := s.sweeper.SweepExpired(ctx)
	if err != nil {
		logger.Error("Failed to sweep expired reset tokens", err)
		return
	}
	logger.Info("Swept expired reset tokens", map[string]interface{}{
		"deleted": n,
	})
}

// Stop stops the scheduler and waits for a running sweep to finish
func (s *TokenSweepScheduler) Stop() {
	logger.Info("Stopping reset token sweep scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Reset token sweep scheduler stopped")
}
