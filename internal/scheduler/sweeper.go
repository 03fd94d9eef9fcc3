package scheduler

import (
	"context"
	"time"
)

const defaultSweepInterval = 15 * time.Minute

// Sweeper runs the posting and trial sweeps in-process on a ticker. The API
// uses it when no Redis is configured for asynq.
type Sweeper struct {
	jobs     *Jobs
	interval time.Duration
}

func NewSweeper(jobs *Jobs, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{jobs: jobs, interval: interval}
}

func (s *Sweeper) Run(ctx context.Context) {
	if s == nil || s.jobs == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep errors are logged by the jobs.
func (s *Sweeper) sweep(ctx context.Context) {
	_ = s.jobs.postDue(ctx)
	_ = s.jobs.expireTrials(ctx)
}
