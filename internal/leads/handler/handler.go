package handler

import (
	"context"
	"net/http"

	"leadledger_backend/internal/leads/catalog"
	"leadledger_backend/internal/leads/domain"
	"leadledger_backend/internal/leads/management"
	"leadledger_backend/internal/leads/transport"
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

// UnlockChecker reports whether an account already holds a grant for a lead.
type UnlockChecker interface {
	IsUnlocked(ctx context.Context, accountID, leadID uuid.UUID) (bool, error)
}

// Handler serves the buyer and contractor lead routes.
type Handler struct {
	mgmt    *management.Service
	catalog *catalog.Service
	unlocks UnlockChecker
	val     *validator.Validator
}

func New(mgmt *management.Service, cat *catalog.Service, unlocks UnlockChecker, val *validator.Validator) *Handler {
	return &Handler{mgmt: mgmt, catalog: cat, unlocks: unlocks, val: val}
}

func (h *Handler) SetUnlockChecker(u UnlockChecker) {
	h.unlocks = u
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Feed)
	rg.GET("/marked/:mark", h.ListMarked)
	rg.POST("/submissions", h.Submit)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id/marks/:mark", h.Mark)
	rg.DELETE("/:id/marks/:mark", h.Unmark)
	rg.POST("/:id/resubmit", h.Resubmit)
}

// Feed lists posted leads for the caller's account, deduplicated.
func (h *Handler) Feed(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var q transport.ListLeadsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	page, err := h.catalog.Feed(c.Request.Context(), id.AccountID(), catalog.Query{
		Filter: q.ToFilter(),
		Order:  domain.Order(q.Order),
		Offset: q.Offset,
		Limit:  q.Limit,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.LeadPageResponse{
		Items:     transport.ToSummaries(page.Items),
		Total:     page.Total,
		Collapsed: page.Collapsed,
		Offset:    page.Offset,
		Limit:     page.Limit,
	})
}

// GetByID returns the redacted view of a posted lead.
func (h *Handler) GetByID(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.mgmt.Get(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	if !lead.IsPosted() {
		httpkit.HandleError(c, apperr.NotFound("lead not found"))
		return
	}

	unlocked := false
	if h.unlocks != nil {
		unlocked, err = h.unlocks.IsUnlocked(c.Request.Context(), id.AccountID(), leadID)
		if httpkit.HandleError(c, err) {
			return
		}
	}

	httpkit.OK(c, transport.LeadViewResponse{Lead: lead.Summary(), Unlocked: unlocked})
}

func (h *Handler) Mark(c *gin.Context) {
	h.toggleMark(c, true)
}

func (h *Handler) Unmark(c *gin.Context) {
	h.toggleMark(c, false)
}

func (h *Handler) toggleMark(c *gin.Context, set bool) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	mark := domain.Mark(c.Param("mark"))

	if set {
		err = h.mgmt.Mark(c.Request.Context(), id.AccountID(), leadID, mark)
	} else {
		err = h.mgmt.Unmark(c.Request.Context(), id.AccountID(), leadID, mark)
	}
	if httpkit.HandleError(c, err) {
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ListMarked(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	mark := domain.Mark(c.Param("mark"))

	leads, err := h.mgmt.ListMarked(c.Request.Context(), id.AccountID(), mark)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.MarkedLeadsResponse{Mark: mark, Items: transport.ToSummaries(leads)})
}

// Submit stores a contractor-uploaded lead in the review queue.
func (h *Handler) Submit(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.mgmt.Submit(c.Request.Context(), id.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToAdminLeadResponse(lead))
}

// Resubmit creates a new pending lead from a declined submission.
func (h *Handler) Resubmit(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.mgmt.Resubmit(c.Request.Context(), id.UserID(), leadID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToAdminLeadResponse(lead))
}
