// Package http defines what the router needs from the composition root and
// the contract each bounded context implements to mount its routes.
package http

import (
	"leadledger_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module mounts one bounded context's routes.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext is handed to every Module during registration.
type RouterContext struct {
	// Protected requires a valid access token; paths are under /api/v1.
	Protected *gin.RouterGroup
	// Admin additionally requires the admin role; paths are under /api/v1/admin.
	Admin *gin.RouterGroup
	// SpendRateLimiter is shared so unlock and redeem draw on one per-account budget.
	SpendRateLimiter *httpkit.SpendRateLimiter
}
