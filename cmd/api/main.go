package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	addonsmodule "leadledger_backend/internal/addons/module"
	"leadledger_backend/internal/billing"
	"leadledger_backend/internal/bootstrap"
	"leadledger_backend/internal/events"
	apphttp "leadledger_backend/internal/http"
	"leadledger_backend/internal/http/router"
	"leadledger_backend/internal/leads"
	"leadledger_backend/internal/scheduler"
	unlockmodule "leadledger_backend/internal/unlock/module"
	walletmodule "leadledger_backend/internal/wallet/module"
	"leadledger_backend/platform/config"
	"leadledger_backend/platform/logger"
	"leadledger_backend/platform/validator"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	pool, err := bootstrap.ConnectDatabase(ctx, cfg, log, true)
	if err != nil {
		log.Error("failed to initialize database", "error", err)
		panic("failed to initialize database: " + err.Error())
	}
	defer pool.Close()

	catalog, err := bootstrap.LoadPlans(cfg, log)
	if err != nil {
		log.Error("failed to load plan catalog", "error", err)
		panic("failed to load plan catalog: " + err.Error())
	}

	grantCache, closeCache := bootstrap.GrantCache(cfg, log)
	defer closeCache()

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	events.SubscribeAudit(eventBus, log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	leadsModule, err := leads.NewModule(pool, eventBus, val, cfg, log)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}
	walletModule := walletmodule.NewModule(pool, catalog, eventBus, val, log)
	unlockModule := unlockmodule.NewModule(pool, leadsModule.Repository(), walletModule.Service(), grantCache, eventBus, val, log)
	addonsModule, err := addonsmodule.NewModule(walletModule.Service(), catalog, val)
	if err != nil {
		log.Error("failed to initialize addons module", "error", err)
		panic("failed to initialize addons module: " + err.Error())
	}

	leadsModule.SetUnlockChecker(unlockModule.Service())

	postingClient, closePosting := initPostingScheduler(cfg, log)
	defer closePosting()
	if postingClient != nil {
		leadsModule.SetPostingScheduler(postingClient)
	}

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: pool,
		Modules: []apphttp.Module{
			leadsModule,
			walletModule,
			unlockModule,
			addonsModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// Without Redis there is no asynq worker, so posting and trial expiry
	// are swept in-process.
	if postingClient == nil {
		jobs := scheduler.NewJobs(leadsModule.ManagementService(), walletModule.Service(), log)
		sweeper := scheduler.NewSweeper(jobs, 0)
		g.Go(func() error {
			sweeper.Run(gctx)
			return nil
		})
	}

	if cfg.IsBillingConsumerEnabled() {
		dispatcher := billing.NewDispatcher(walletModule.Service(), addonsModule.Service(), catalog, log)
		g.Go(func() error {
			return billing.Supervise(gctx, cfg, dispatcher, log)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}
	log.Info("server stopped")
}

func initPostingScheduler(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; posting and trial sweeps run in-process")
		return nil, func() {}
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize posting scheduler client", "error", err)
		return nil, func() {}
	}

	return client, func() {
		_ = client.Close()
	}
}
