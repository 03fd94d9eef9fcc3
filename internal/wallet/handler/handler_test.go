package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"leadledger_backend/internal/plans"
	"leadledger_backend/internal/testutil/memstore"
	"leadledger_backend/internal/wallet"
	"leadledger_backend/internal/wallet/service"
	"leadledger_backend/internal/wallet/transport"
	"leadledger_backend/platform/logger"
	"leadledger_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var fixedNow = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

func newAdminEngine(t *testing.T, clock *testClock) (*gin.Engine, *memstore.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memstore.New()
	svc := service.New(store.Wallets(), nil, logger.New("test")).WithClock(clock.Now)
	h := New(svc, plans.Default(), validator.New()).WithClock(clock.Now)

	engine := gin.New()
	h.RegisterAdminRoutes(engine.Group("/wallets"))
	return engine, store
}

func post(engine *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestStartTrialUsesPlanTermsAndHandlerClock(t *testing.T) {
	clock := &testClock{t: fixedNow}
	engine, store := newAdminEngine(t, clock)
	id := uuid.New()
	store.PutWallet(wallet.NewWallet(id, nil, fixedNow))

	w := post(engine, "/wallets/"+id.String()+"/trial", map[string]string{"planSlug": "starter"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp transport.WalletResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Trial != 25 || resp.Spendable != 25 {
		t.Fatalf("expected 25 trial credits, got trial=%d spendable=%d", resp.Trial, resp.Spendable)
	}
	want := fixedNow.AddDate(0, 0, 14)
	if resp.TrialExpiresAt == nil || !resp.TrialExpiresAt.Equal(want) {
		t.Fatalf("expected trial to end at %s, got %v", want, resp.TrialExpiresAt)
	}
}

func TestStartTrialWithoutTermsIsRejected(t *testing.T) {
	engine, store := newAdminEngine(t, &testClock{t: fixedNow})
	id := uuid.New()
	store.PutWallet(wallet.NewWallet(id, nil, fixedNow))

	w := post(engine, "/wallets/"+id.String()+"/trial", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestExpireTrialsSweepsAtHandlerTime(t *testing.T) {
	clock := &testClock{t: fixedNow}
	engine, store := newAdminEngine(t, clock)
	id := uuid.New()
	store.PutWallet(wallet.NewWallet(id, nil, fixedNow))

	if w := post(engine, "/wallets/"+id.String()+"/trial", map[string]string{"planSlug": "starter"}); w.Code != http.StatusOK {
		t.Fatalf("start trial: %d %s", w.Code, w.Body.String())
	}

	w := post(engine, "/wallets/expire-trials", nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte(`"expired":0`)) {
		t.Fatalf("nothing should expire yet: %d %s", w.Code, w.Body.String())
	}

	clock.t = fixedNow.AddDate(0, 0, 15)
	w = post(engine, "/wallets/expire-trials", nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte(`"expired":1`)) {
		t.Fatalf("expected one expired trial: %d %s", w.Code, w.Body.String())
	}
}
