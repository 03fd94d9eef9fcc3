package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apphttp "leadledger_backend/internal/http"
	"leadledger_backend/platform/httpkit"
	"leadledger_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testConfig struct{}

func (testConfig) GetHTTPAddr() string         { return ":0" }
func (testConfig) GetCORSAllowAll() bool       { return false }
func (testConfig) GetCORSOrigins() []string    { return []string{"http://localhost:4200"} }
func (testConfig) GetCORSAllowCreds() bool     { return true }
func (testConfig) GetUnlockRatePerMinute() int { return 2 }
func (testConfig) GetJWTAccessSecret() string  { return testSecret }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

// echoModule mounts one protected, one admin and one rate-limited route.
type echoModule struct{}

func (echoModule) Name() string { return "echo" }

func (echoModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/whoami", func(c *gin.Context) {
		id := httpkit.MustGetIdentity(c)
		if id == nil {
			return
		}
		c.JSON(http.StatusOK, gin.H{"account": id.AccountID().String()})
	})
	ctx.Protected.POST("/spend", ctx.SpendRateLimiter.RateLimit(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	ctx.Admin.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

func newTestEngine(health apphttp.HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config:  testConfig{},
		Logger:  logger.New("test"),
		Health:  health,
		Modules: []apphttp.Module{echoModule{}},
	})
}

func token(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	claims["type"] = "access"
	claims["exp"] = time.Now().Add(time.Hour).Unix()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func do(engine *gin.Engine, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	assert.Equal(t, http.StatusOK, do(newTestEngine(pinger{}), http.MethodGet, "/api/health", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(newTestEngine(pinger{err: errors.New("down")}), http.MethodGet, "/api/health", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	w := do(newTestEngine(nil), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	engine := newTestEngine(nil)
	assert.Equal(t, http.StatusUnauthorized, do(engine, http.MethodGet, "/api/v1/whoami", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(engine, http.MethodGet, "/api/v1/whoami", "garbage").Code)
}

func TestAccountClaimSelectsAccount(t *testing.T) {
	engine := newTestEngine(nil)
	user, account := uuid.New(), uuid.New()

	w := do(engine, http.MethodGet, "/api/v1/whoami", token(t, jwt.MapClaims{"sub": user.String(), "account_id": account.String()}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), account.String())

	w = do(engine, http.MethodGet, "/api/v1/whoami", token(t, jwt.MapClaims{"sub": user.String()}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), user.String())
}

func TestAdminRequiresRole(t *testing.T) {
	engine := newTestEngine(nil)
	sub := uuid.NewString()

	assert.Equal(t, http.StatusForbidden, do(engine, http.MethodGet, "/api/v1/admin/ping", token(t, jwt.MapClaims{"sub": sub})).Code)
	assert.Equal(t, http.StatusNoContent, do(engine, http.MethodGet, "/api/v1/admin/ping",
		token(t, jwt.MapClaims{"sub": sub, "roles": []string{"admin"}})).Code)
}

func TestSpendRouteIsRateLimited(t *testing.T) {
	engine := newTestEngine(nil)
	bearer := token(t, jwt.MapClaims{"sub": uuid.NewString()})

	assert.Equal(t, http.StatusNoContent, do(engine, http.MethodPost, "/api/v1/spend", bearer).Code)
	assert.Equal(t, http.StatusNoContent, do(engine, http.MethodPost, "/api/v1/spend", bearer).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(engine, http.MethodPost, "/api/v1/spend", bearer).Code)
}
