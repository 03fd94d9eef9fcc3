// Package httpkit holds the gin middleware and response helpers shared by
// every module's handlers.
package httpkit

import (
	"time"

	"leadledger_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs each request against its route template once it completes.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		log.HTTPRequest(c.Request.Context(), c.Request.Method, route, c.Writer.Status(),
			float64(time.Since(start).Milliseconds()), c.ClientIP())
		for _, err := range c.Errors {
			log.WithContext(c.Request.Context()).Error("request failed", "route", route, "error", err.Err)
		}
	}
}

func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Header("Cache-Control", "no-store")
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
