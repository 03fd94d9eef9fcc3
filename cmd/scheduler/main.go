package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"leadledger_backend/internal/bootstrap"
	"leadledger_backend/internal/events"
	"leadledger_backend/internal/leads/management"
	leadrepo "leadledger_backend/internal/leads/repository"
	"leadledger_backend/internal/leads/scoring"
	"leadledger_backend/internal/scheduler"
	walletrepo "leadledger_backend/internal/wallet/repository"
	walletsvc "leadledger_backend/internal/wallet/service"
	"leadledger_backend/platform/config"
	"leadledger_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := bootstrap.ConnectDatabase(ctx, cfg, log, false)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	events.SubscribeAudit(eventBus, log)

	leadsSvc := management.New(leadrepo.New(pool), scoring.New(), eventBus, log, cfg.GetPhoneRegion())
	wallets := walletsvc.New(walletrepo.New(pool), eventBus, log)
	jobs := scheduler.NewJobs(leadsSvc, wallets, log)

	worker, err := scheduler.NewWorker(cfg, jobs, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic sweeps", "error", err)
		panic("failed to initialize periodic sweeps: " + err.Error())
	}

	runScheduler(ctx, worker, periodic, log)
}

func runScheduler(ctx context.Context, worker *scheduler.Worker, periodic *scheduler.Periodic, log *logger.Logger) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})
	g.Go(func() error {
		periodic.Run(gctx)
		return nil
	})
	_ = g.Wait()
	log.Info("scheduler stopped")
}
