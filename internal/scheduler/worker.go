package scheduler

import (
	"context"
	"fmt"
	"time"

	"leadledger_backend/internal/leads/domain"
	"leadledger_backend/platform/config"
	"leadledger_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// LeadPoster moves due pending leads to posted.
type LeadPoster interface {
	PostDue(ctx context.Context, now time.Time) ([]domain.Lead, error)
	PostIfDue(ctx context.Context, id uuid.UUID, now time.Time) (domain.Lead, bool, error)
}

// TrialExpirer removes unspent trial credits once the trial window closes.
type TrialExpirer interface {
	ExpireTrials(ctx context.Context, now time.Time) (int, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	jobs   *Jobs
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, jobs *Jobs, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		jobs:   jobs,
		log:    log,
	}
	jobs.Register(mux)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// Jobs holds the task handlers. It is shared by the asynq worker and the
// in-process Sweeper.
type Jobs struct {
	leads  LeadPoster
	trials TrialExpirer
	log    *logger.Logger
	now    func() time.Time
}

func NewJobs(leads LeadPoster, trials TrialExpirer, log *logger.Logger) *Jobs {
	return &Jobs{leads: leads, trials: trials, log: log, now: time.Now}
}

// WithClock replaces the time source.
func (j *Jobs) WithClock(now func() time.Time) *Jobs {
	j.now = now
	return j
}

func (j *Jobs) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskPostingSweep, j.HandlePostingSweep)
	mux.HandleFunc(TaskPostLead, j.HandlePostLead)
	mux.HandleFunc(TaskTrialSweep, j.HandleTrialSweep)
}

func (j *Jobs) HandlePostingSweep(ctx context.Context, _ *asynq.Task) error {
	return j.postDue(ctx)
}

func (j *Jobs) HandleTrialSweep(ctx context.Context, _ *asynq.Task) error {
	return j.expireTrials(ctx)
}

// HandlePostLead posts one lead. A lead that is no longer pending, or not
// yet due, is left alone; the periodic sweep catches late approvals.
func (j *Jobs) HandlePostLead(ctx context.Context, task *asynq.Task) error {
	leadID, err := ParsePostLeadPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	_, posted, err := j.leads.PostIfDue(ctx, leadID, j.now().UTC())
	if err != nil {
		return err
	}
	if posted {
		j.log.Info("lead posted", "lead_id", leadID.String())
	}
	return nil
}

func (j *Jobs) postDue(ctx context.Context) error {
	posted, err := j.leads.PostDue(ctx, j.now().UTC())
	if err != nil {
		j.log.Warn("posting sweep failed", "error", err)
		return err
	}
	if len(posted) > 0 {
		j.log.Info("posting sweep posted leads", "count", len(posted))
	}
	return nil
}

func (j *Jobs) expireTrials(ctx context.Context) error {
	n, err := j.trials.ExpireTrials(ctx, j.now().UTC())
	if err != nil {
		j.log.Warn("trial sweep failed", "error", err)
		return err
	}
	if n > 0 {
		j.log.Info("trial sweep expired wallets", "count", n)
	}
	return nil
}
