package httpkit

import (
	"net/http"
	"sync"

	"leadledger_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// SpendRateLimiter throttles the routes that spend or redeem credits. Callers
// are keyed by account; requests without an identity fall back to client IP.
type SpendRateLimiter struct {
	limiters sync.Map
	limit    rate.Limit
	burst    int
	log      *logger.Logger
}

// NewSpendRateLimiter allows perMinute requests per account with an equal burst.
func NewSpendRateLimiter(perMinute int, log *logger.Logger) *SpendRateLimiter {
	if perMinute < 1 {
		perMinute = 30
	}
	return &SpendRateLimiter{
		limit: rate.Limit(float64(perMinute) / 60.0),
		burst: perMinute,
		log:   log,
	}
}

func (l *SpendRateLimiter) limiter(key string) *rate.Limiter {
	if existing, ok := l.limiters.Load(key); ok {
		return existing.(*rate.Limiter)
	}
	actual, _ := l.limiters.LoadOrStore(key, rate.NewLimiter(l.limit, l.burst))
	return actual.(*rate.Limiter)
}

func (l *SpendRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if id := GetIdentity(c); id != nil {
			key = "account:" + id.AccountID().String()
		}

		if !l.limiter(key).Allow() {
			if l.log != nil {
				l.log.RateLimitExceeded(c.Request.Context(), key, c.FullPath())
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
