package main

import (
	"encoding/json"
	"fmt"
	"io"

	"leadledger_backend/internal/addons"
	"leadledger_backend/internal/bootstrap"
	"leadledger_backend/internal/events"
	"leadledger_backend/internal/leads/management"
	leadrepo "leadledger_backend/internal/leads/repository"
	"leadledger_backend/internal/leads/scoring"
	"leadledger_backend/internal/plans"
	walletrepo "leadledger_backend/internal/wallet/repository"
	walletsvc "leadledger_backend/internal/wallet/service"
	"leadledger_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// settings adapts viper keys to the platform config interfaces.
type settings struct {
	v *viper.Viper
}

func (s settings) GetDatabaseURL() string   { return s.v.GetString("database_url") }
func (s settings) GetDatabaseMaxConns() int { return 4 }
func (s settings) GetPlansFile() string     { return s.v.GetString("plans_file") }
func (s settings) GetPhoneRegion() string   { return s.v.GetString("phone_region") }

// env is the set of services a subcommand works with.
type env struct {
	pool    *pgxpool.Pool
	log     *logger.Logger
	leads   *management.Service
	wallets *walletsvc.Service
	addons  *addons.Service
	catalog *plans.Catalog
}

func (e *env) Close() {
	e.pool.Close()
}

func openEnv(cmd *cobra.Command) (*env, error) {
	cfg := settings{v: viper.GetViper()}
	if cfg.GetDatabaseURL() == "" {
		return nil, fmt.Errorf("database url is required (--database-url or DATABASE_URL)")
	}
	log := logger.New(viper.GetString("app_env"))

	pool, err := bootstrap.ConnectDatabase(cmd.Context(), cfg, log, false)
	if err != nil {
		return nil, err
	}
	catalog, err := bootstrap.LoadPlans(cfg, log)
	if err != nil {
		pool.Close()
		return nil, err
	}

	bus := events.NewInMemoryBus(log)
	events.SubscribeAudit(bus, log)
	wallets := walletsvc.New(walletrepo.New(pool), bus, log)
	return &env{
		pool:    pool,
		log:     log,
		leads:   management.New(leadrepo.New(pool), scoring.New(), bus, log, cfg.GetPhoneRegion()),
		wallets: wallets,
		addons:  addons.New(wallets, catalog),
		catalog: catalog,
	}, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
