package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"leadledger_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

func newEngine(seen *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) {
		*seen, _ = c.Request.Context().Value(logger.RequestIDKey).(string)
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestRequestIDPropagatesHeader(t *testing.T) {
	var seen string
	r := newEngine(&seen)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
	if seen != "abc-123" {
		t.Fatalf("expected request id on context, got %q", seen)
	}
}

func TestRequestIDGeneratesWhenMissing(t *testing.T) {
	var seen string
	r := newEngine(&seen)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	got := w.Header().Get(RequestIDHeader)
	if got == "" || got != seen {
		t.Fatalf("expected generated id on header and context, got %q and %q", got, seen)
	}
}
