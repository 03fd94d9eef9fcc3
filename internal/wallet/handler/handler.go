package handler

import (
	"net/http"
	"time"

	"leadledger_backend/internal/plans"
	"leadledger_backend/internal/wallet"
	"leadledger_backend/internal/wallet/service"
	"leadledger_backend/internal/wallet/transport"
	"leadledger_backend/platform/apperr"
	"leadledger_backend/platform/httpkit"
	"leadledger_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler serves the caller's own wallet and the admin wallet routes.
type Handler struct {
	svc     *service.Service
	catalog *plans.Catalog
	val     *validator.Validator
	now     func() time.Time
}

func New(svc *service.Service, catalog *plans.Catalog, val *validator.Validator) *Handler {
	return &Handler{svc: svc, catalog: catalog, val: val, now: time.Now}
}

// WithClock replaces the time source used for trial terms and sweeps.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

func (h *Handler) nowUTC() time.Time {
	return h.now().UTC()
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.GetOwn)
	rg.GET("/ledger", h.OwnLedger)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/expire-trials", h.ExpireTrials)
	rg.GET("/:accountId", h.Get)
	rg.POST("/:accountId", h.Open)
	rg.GET("/:accountId/ledger", h.Ledger)
	rg.POST("/:accountId/deposit", h.Deposit)
	rg.POST("/:accountId/renew", h.Renew)
	rg.POST("/:accountId/trial", h.StartTrial)
	rg.POST("/:accountId/adjust", h.Adjust)
	rg.POST("/:accountId/release-frozen", h.ReleaseFrozen)
}

func (h *Handler) GetOwn(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	h.respondWallet(c, id.AccountID())
}

func (h *Handler) OwnLedger(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	h.respondLedger(c, id.AccountID())
}

func (h *Handler) Get(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}
	h.respondWallet(c, accountID)
}

func (h *Handler) Ledger(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}
	h.respondLedger(c, accountID)
}

func (h *Handler) Open(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}
	var req transport.OpenWalletRequest
	if !h.bind(c, &req) {
		return
	}

	w, err := h.svc.Open(c.Request.Context(), accountID, req.PlanSlug)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToWalletResponse(w))
}

func (h *Handler) Deposit(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}
	var req transport.DepositRequest
	if !h.bind(c, &req) {
		return
	}
	bucket := wallet.Bucket(req.Bucket)
	if bucket == "" {
		bucket = wallet.BucketSpendable
	}

	w, err := h.svc.Deposit(c.Request.Context(), accountID, req.Amount, bucket, req.Reference)
	h.respondMutation(c, w, err)
}

// Renew resets the balance to the plan allotment unless one is given.
func (h *Handler) Renew(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}
	var req transport.RenewRequest
	if !h.bind(c, &req) {
		return
	}
	plan, found := h.catalog.Plan(req.PlanSlug)
	if !found {
		httpkit.HandleError(c, apperr.Validation("unknown plan").WithDetails(map[string]string{"planSlug": req.PlanSlug}))
		return
	}
	allotment := plan.MonthlyCredits
	if req.Allotment != nil {
		allotment = *req.Allotment
	}

	w, err := h.svc.Renew(c.Request.Context(), accountID, plan.Slug, allotment, req.Reference)
	h.respondMutation(c, w, err)
}

// StartTrial grants trial credits; omitted fields come from the plan's trial terms.
func (h *Handler) StartTrial(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}
	var req transport.StartTrialRequest
	if !h.bind(c, &req) {
		return
	}

	var plan plans.Plan
	if req.PlanSlug != "" {
		p, found := h.catalog.Plan(req.PlanSlug)
		if !found {
			httpkit.HandleError(c, apperr.Validation("unknown plan").WithDetails(map[string]string{"planSlug": req.PlanSlug}))
			return
		}
		plan = p
	}
	if (req.Credits == nil || req.ExpiresAt == nil) && !plan.HasTrial() {
		httpkit.HandleError(c, apperr.Validation("credits and expiresAt are required without a plan that offers a trial"))
		return
	}

	now := h.nowUTC()
	credits := plan.TrialCredits
	if req.Credits != nil {
		credits = *req.Credits
	}
	expiresAt := plan.TrialEnd(now)
	if req.ExpiresAt != nil {
		expiresAt = req.ExpiresAt.UTC()
	}

	w, err := h.svc.StartTrial(c.Request.Context(), accountID, credits, expiresAt, req.Reference)
	h.respondMutation(c, w, err)
}

func (h *Handler) Adjust(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}
	var req transport.AdjustRequest
	if !h.bind(c, &req) {
		return
	}

	w, err := h.svc.Adjust(c.Request.Context(), accountID, req.Delta, req.Reference)
	h.respondMutation(c, w, err)
}

func (h *Handler) ReleaseFrozen(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}
	var req transport.ReleaseFrozenRequest
	if !h.bind(c, &req) {
		return
	}

	w, err := h.svc.ReleaseFrozen(c.Request.Context(), accountID, req.Reference)
	h.respondMutation(c, w, err)
}

func (h *Handler) ExpireTrials(c *gin.Context) {
	n, err := h.svc.ExpireTrials(c.Request.Context(), h.nowUTC())
	if httpkit.HandleError(c, service.MapError(err)) {
		return
	}
	httpkit.OK(c, gin.H{"expired": n})
}

func (h *Handler) respondWallet(c *gin.Context, accountID uuid.UUID) {
	w, err := h.svc.Get(c.Request.Context(), accountID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToWalletResponse(w))
}

func (h *Handler) respondLedger(c *gin.Context, accountID uuid.UUID) {
	var q transport.LedgerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	items, total, err := h.svc.Ledger(c.Request.Context(), accountID, q.Limit, q.Offset)
	if httpkit.HandleError(c, err) {
		return
	}
	if items == nil {
		items = []wallet.Entry{}
	}
	httpkit.OK(c, transport.LedgerResponse{Items: items, Total: total, Offset: q.Offset, Limit: q.Limit})
}

func (h *Handler) respondMutation(c *gin.Context, w wallet.Wallet, err error) {
	if httpkit.HandleError(c, service.MapError(err)) {
		return
	}
	httpkit.OK(c, transport.ToWalletResponse(w))
}

// bind decodes and validates a JSON body. An empty body is treated as {}.
func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return false
		}
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

func parseAccountID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("accountId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}
