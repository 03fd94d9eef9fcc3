// Package module wires the wallet bounded context into the HTTP server.
package module

import (
	"leadledger_backend/internal/events"
	apphttp "leadledger_backend/internal/http"
	"leadledger_backend/internal/plans"
	"leadledger_backend/internal/wallet/handler"
	"leadledger_backend/internal/wallet/repository"
	"leadledger_backend/internal/wallet/service"
	"leadledger_backend/platform/logger"
	"leadledger_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the wallet bounded context module implementing http.Module.
type Module struct {
	service *service.Service
	handler *handler.Handler
}

func NewModule(pool *pgxpool.Pool, catalog *plans.Catalog, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), eventBus, log)
	return &Module{
		service: svc,
		handler: handler.New(svc, catalog, val),
	}
}

func (m *Module) Name() string {
	return "wallet"
}

// Service returns the wallet service; unlock and add-ons debit and credit through it.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/wallet"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/wallets"))
}

var _ apphttp.Module = (*Module)(nil)
