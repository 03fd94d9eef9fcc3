// Package leads provides the lead ranking and review bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"leadledger_backend/internal/events"
	apphttp "leadledger_backend/internal/http"
	"leadledger_backend/internal/leads/catalog"
	"leadledger_backend/internal/leads/handler"
	"leadledger_backend/internal/leads/management"
	"leadledger_backend/internal/leads/repository"
	"leadledger_backend/internal/leads/scoring"
	"leadledger_backend/internal/leads/transport"
	"leadledger_backend/platform/config"
	"leadledger_backend/platform/logger"
	"leadledger_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ModuleConfig is the configuration the leads module reads.
type ModuleConfig interface {
	config.CatalogConfig
	config.LeadIntakeConfig
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	repo       *repository.Repository
	management *management.Service
	catalog    *catalog.Service
	handler    *handler.Handler
	admin      *handler.AdminHandler
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, cfg ModuleConfig, log *logger.Logger) (*Module, error) {
	if err := transport.RegisterValidators(val); err != nil {
		return nil, err
	}

	repo := repository.New(pool)
	mgmtSvc := management.New(repo, scoring.New(), eventBus, log, cfg.GetPhoneRegion())
	catalogSvc := catalog.New(repo, cfg.GetCatalogMaxScan())

	return &Module{
		repo:       repo,
		management: mgmtSvc,
		catalog:    catalogSvc,
		handler:    handler.New(mgmtSvc, catalogSvc, nil, val),
		admin:      handler.NewAdmin(mgmtSvc, catalogSvc, val),
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Repository exposes lead storage for the unlock module.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// ManagementService returns the intake and review service for external use.
func (m *Module) ManagementService() *management.Service {
	return m.management
}

// CatalogService returns the deduplicating listing service.
func (m *Module) CatalogService() *catalog.Service {
	return m.catalog
}

// SetPostingScheduler wires delayed per-lead posting on approval.
func (m *Module) SetPostingScheduler(ps management.PostingScheduler) {
	m.management.WithPostingScheduler(ps)
}

// SetUnlockChecker lets the lead view report whether the caller holds a grant.
func (m *Module) SetUnlockChecker(u handler.UnlockChecker) {
	m.handler.SetUnlockChecker(u)
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
	m.admin.RegisterRoutes(ctx.Admin.Group("/leads"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
