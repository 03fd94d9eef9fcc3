package handler

import (
	"net/http"
	"time"

	"leadledger_backend/internal/leads/catalog"
	"leadledger_backend/internal/leads/domain"
	"leadledger_backend/internal/leads/management"
	"leadledger_backend/internal/leads/transport"
	"leadledger_backend/platform/httpkit"
	"leadledger_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler serves intake, moderation and scoring routes.
type AdminHandler struct {
	mgmt    *management.Service
	catalog *catalog.Service
	val     *validator.Validator
}

func NewAdmin(mgmt *management.Service, cat *catalog.Service, val *validator.Validator) *AdminHandler {
	return &AdminHandler{mgmt: mgmt, catalog: cat, val: val}
}

func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Ingest)
	rg.POST("/post-due", h.PostDue)
	rg.POST("/rescore-stale", h.RescoreStale)
	rg.GET("/:id", h.GetByID)
	rg.POST("/:id/approve", h.Approve)
	rg.POST("/:id/decline", h.Decline)
	rg.GET("/:id/score", h.Breakdown)
	rg.POST("/:id/rescore", h.Rescore)
}

// List is the review listing. It defaults to newest first across all states.
func (h *AdminHandler) List(c *gin.Context) {
	var q transport.ListLeadsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	order := domain.Order(q.Order)
	if order == "" {
		order = domain.OrderCreatedDesc
	}

	page, err := h.catalog.List(c.Request.Context(), catalog.Query{
		Filter: q.ToFilter(),
		Order:  order,
		Offset: q.Offset,
		Limit:  q.Limit,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.AdminLeadPageResponse{
		Items:     transport.ToAdminResponses(page.Items),
		Total:     page.Total,
		Collapsed: page.Collapsed,
		Offset:    page.Offset,
		Limit:     page.Limit,
	})
}

func (h *AdminHandler) Ingest(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.mgmt.Ingest(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToAdminLeadResponse(lead))
}

func (h *AdminHandler) GetByID(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}

	lead, err := h.mgmt.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToAdminLeadResponse(lead))
}

func (h *AdminHandler) Approve(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}

	var req transport.ApproveLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.mgmt.Approve(c.Request.Context(), id, req.DayOffset, req.AnchorAt)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToAdminLeadResponse(lead))
}

func (h *AdminHandler) Decline(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}

	var req transport.DeclineLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.mgmt.Decline(c.Request.Context(), id, req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToAdminLeadResponse(lead))
}

func (h *AdminHandler) Breakdown(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}

	lead, result, err := h.mgmt.Breakdown(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ScoreBreakdownResponse{LeadID: lead.ID, Stored: lead.RelevanceScore, Breakdown: result})
}

func (h *AdminHandler) Rescore(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}

	lead, previous, err := h.mgmt.Rescore(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.RescoreResponse{Lead: transport.ToAdminLeadResponse(lead), Previous: previous})
}

func (h *AdminHandler) RescoreStale(c *gin.Context) {
	var req transport.RescoreStaleRequest
	// Empty body means the default batch.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	n, err := h.mgmt.RescoreStale(c.Request.Context(), req.Limit)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.RescoreStaleResponse{Rescored: n})
}

// PostDue runs the posting sweep immediately. An explicit now is accepted for backfills.
func (h *AdminHandler) PostDue(c *gin.Context) {
	var req transport.PostDueRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
	}
	now := time.Now().UTC()
	if req.Now != nil {
		now = req.Now.UTC()
	}

	posted, err := h.mgmt.PostDue(c.Request.Context(), now)
	if httpkit.HandleError(c, err) {
		return
	}

	ids := make([]uuid.UUID, len(posted))
	for i, l := range posted {
		ids[i] = l.ID
	}
	httpkit.OK(c, transport.PostDueResponse{Posted: ids})
}

func parseLeadID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}
