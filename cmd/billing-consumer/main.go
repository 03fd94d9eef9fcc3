package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"leadledger_backend/internal/addons"
	"leadledger_backend/internal/billing"
	"leadledger_backend/internal/bootstrap"
	"leadledger_backend/internal/events"
	walletrepo "leadledger_backend/internal/wallet/repository"
	walletsvc "leadledger_backend/internal/wallet/service"
	"leadledger_backend/platform/config"
	"leadledger_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	if cfg.GetAMQPURL() == "" {
		panic("AMQP_URL is required for the billing consumer")
	}
	log.Info("starting billing consumer", "env", cfg.Env, "exchange", cfg.GetBillingExchange(), "queue", cfg.GetBillingQueue())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := bootstrap.ConnectDatabase(ctx, cfg, log, false)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	catalog, err := bootstrap.LoadPlans(cfg, log)
	if err != nil {
		log.Error("failed to load plan catalog", "error", err)
		panic("failed to load plan catalog: " + err.Error())
	}

	eventBus := events.NewInMemoryBus(log)
	events.SubscribeAudit(eventBus, log)
	wallets := walletsvc.New(walletrepo.New(pool), eventBus, log)
	dispatcher := billing.NewDispatcher(wallets, addons.New(wallets, catalog), catalog, log)

	if err := billing.Supervise(ctx, cfg, dispatcher, log); err != nil {
		log.Error("billing consumer failed", "error", err)
		panic("billing consumer failed: " + err.Error())
	}
	log.Info("billing consumer stopped")
}
