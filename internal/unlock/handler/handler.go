package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"leadledger_backend/internal/unlock"
	"leadledger_backend/internal/unlock/service"
	"leadledger_backend/internal/unlock/transport"
	"leadledger_backend/platform/httpkit"
	"leadledger_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the read routes. spend guards the debiting route.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, spend ...gin.HandlerFunc) {
	rg.GET("", h.List)
	rg.GET("/export", h.Export)
	rg.POST("/status", h.Status)
	rg.GET("/:leadId", h.Get)
	rg.PUT("/:leadId/notes", h.UpdateNotes)
	rg.POST("/:leadId", append(spend, h.Unlock)...)
}

// Unlock debits the lead's score once and returns the full lead. Replays
// return the original grant with 200; a new grant returns 201.
func (h *Handler) Unlock(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}

	res, err := h.svc.Unlock(c.Request.Context(), id.AccountID(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	httpkit.JSON(c, status, res)
}

func (h *Handler) Get(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}

	grant, err := h.svc.Get(c.Request.Context(), id.AccountID(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, grant)
}

func (h *Handler) List(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var q transport.ListUnlocksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	items, total, err := h.svc.List(c.Request.Context(), id.AccountID(), q.Limit, q.Offset)
	if httpkit.HandleError(c, err) {
		return
	}
	if items == nil {
		items = []unlock.Grant{}
	}

	httpkit.OK(c, transport.UnlockPageResponse{Items: items, Total: total, Offset: q.Offset, Limit: q.Limit})
}

// Export streams every grant as CSV.
func (h *Handler) Export(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var buf bytes.Buffer
	if err := h.svc.ExportCSV(c.Request.Context(), id.AccountID(), &buf); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	filename := fmt.Sprintf("unlocked-leads-%s.csv", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *Handler) UpdateNotes(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}

	var req transport.UpdateNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	grant, err := h.svc.UpdateNotes(c.Request.Context(), id.AccountID(), leadID, req.Notes)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, grant)
}

// Status reports, for each requested lead, whether the account unlocked it.
func (h *Handler) Status(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.UnlockStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	set, err := h.svc.UnlockedSet(c.Request.Context(), id.AccountID(), req.LeadIDs)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make(map[uuid.UUID]bool, len(req.LeadIDs))
	for _, leadID := range req.LeadIDs {
		out[leadID] = set[leadID]
	}
	httpkit.OK(c, transport.UnlockStatusResponse{Unlocked: out})
}

func parseLeadID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}
