// Package module wires the unlock bounded context into the HTTP server.
package module

import (
	"leadledger_backend/internal/events"
	apphttp "leadledger_backend/internal/http"
	"leadledger_backend/internal/unlock"
	"leadledger_backend/internal/unlock/handler"
	"leadledger_backend/internal/unlock/repository"
	"leadledger_backend/internal/unlock/service"
	"leadledger_backend/platform/logger"
	"leadledger_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the unlock bounded context module implementing http.Module.
type Module struct {
	service *service.Service
	handler *handler.Handler
}

// NewModule builds the unlock flow on pool. cache may be nil.
func NewModule(pool *pgxpool.Pool, leads service.LeadReader, wallets service.Debiter, cache unlock.GrantCache, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), leads, wallets, cache, eventBus, log)
	return &Module{
		service: svc,
		handler: handler.New(svc, val),
	}
}

func (m *Module) Name() string {
	return "unlock"
}

// Service returns the unlock service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts unlock routes; the debit route sits behind the spend limiter.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	var spend []gin.HandlerFunc
	if ctx.SpendRateLimiter != nil {
		spend = append(spend, ctx.SpendRateLimiter.RateLimit())
	}
	m.handler.RegisterRoutes(ctx.Protected.Group("/unlocks"), spend...)
}

var _ apphttp.Module = (*Module)(nil)
