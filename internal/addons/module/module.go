// Package module wires add-on routes into the HTTP server.
package module

import (
	"leadledger_backend/internal/addons"
	"leadledger_backend/internal/addons/handler"
	apphttp "leadledger_backend/internal/http"
	"leadledger_backend/internal/plans"
	"leadledger_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

type Module struct {
	service *addons.Service
	handler *handler.Handler
}

func NewModule(wallets addons.WalletService, catalog *plans.Catalog, val *validator.Validator) (*Module, error) {
	if err := handler.RegisterValidators(val); err != nil {
		return nil, err
	}
	svc := addons.New(wallets, catalog)
	return &Module{service: svc, handler: handler.New(svc, val)}, nil
}

func (m *Module) Name() string {
	return "addons"
}

func (m *Module) Service() *addons.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	var spend []gin.HandlerFunc
	if ctx.SpendRateLimiter != nil {
		spend = append(spend, ctx.SpendRateLimiter.RateLimit())
	}
	m.handler.RegisterRoutes(ctx.Protected.Group("/addons"), spend...)
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/addons"))
}

var _ apphttp.Module = (*Module)(nil)
