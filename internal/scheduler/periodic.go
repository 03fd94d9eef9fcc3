package scheduler

import (
	"context"
	"fmt"
	"time"

	"leadledger_backend/platform/config"
	"leadledger_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const (
	defaultPostingSweepSpec = "@every 15m"
	defaultTrialSweepSpec   = "@every 1h"
)

// Periodic enqueues the posting and trial sweeps on their cron specs.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})
	queue := asynq.Queue(queueName(cfg))

	postingSpec := cfg.GetPostingSweepSpec()
	if postingSpec == "" {
		postingSpec = defaultPostingSweepSpec
	}
	if _, err := s.Register(postingSpec, NewPostingSweepTask(), queue, asynq.Unique(time.Minute)); err != nil {
		return nil, fmt.Errorf("register posting sweep: %w", err)
	}

	trialSpec := cfg.GetTrialSweepSpec()
	if trialSpec == "" {
		trialSpec = defaultTrialSweepSpec
	}
	if _, err := s.Register(trialSpec, NewTrialSweepTask(), queue, asynq.Unique(time.Minute)); err != nil {
		return nil, fmt.Errorf("register trial sweep: %w", err)
	}

	log.Info("periodic sweeps registered", "posting", postingSpec, "trials", trialSpec)
	return &Periodic{scheduler: s, log: log}, nil
}

// Run blocks until ctx is done.
func (p *Periodic) Run(ctx context.Context) {
	if p == nil || p.scheduler == nil {
		return
	}
	if err := p.scheduler.Start(); err != nil {
		p.log.Error("periodic scheduler failed to start", "error", err)
		return
	}
	<-ctx.Done()
	p.scheduler.Shutdown()
}
