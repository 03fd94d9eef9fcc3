package handler

import (
	"net/http"

	"leadledger_backend/internal/addons"
	"leadledger_backend/internal/wallet"
	"leadledger_backend/platform/httpkit"
	"leadledger_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type EarnRequest struct {
	Kind      string `json:"kind" validate:"required,addon_kind"`
	Credits   *int   `json:"credits,omitempty" validate:"omitempty,min=0"`
	Seats     *int   `json:"seats,omitempty" validate:"omitempty,min=0"`
	Reference string `json:"reference" validate:"max=200"`
}

type RedeemResponse struct {
	Redemption wallet.Redemption `json:"redemption"`
	Spendable  int               `json:"spendable"`
	BonusSeats int               `json:"bonusSeats"`
}

type Handler struct {
	svc *addons.Service
	val *validator.Validator
}

func New(svc *addons.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterValidators adds the addon_kind tag.
func RegisterValidators(val *validator.Validator) error {
	kinds := make([]string, len(wallet.AddOnKinds))
	for i, k := range wallet.AddOnKinds {
		kinds[i] = string(k)
	}
	return val.RegisterEnum("addon_kind", kinds...)
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, spend ...gin.HandlerFunc) {
	rg.GET("", h.Overview)
	rg.POST("/:kind/redeem", append(spend, h.Redeem)...)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/:accountId/earn", h.Earn)
}

func (h *Handler) Overview(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	overview, err := h.svc.Overview(c.Request.Context(), id.AccountID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, overview)
}

func (h *Handler) Redeem(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	kind := c.Param("kind")
	if err := h.val.Var(kind, "required,addon_kind"); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	redemption, w, err := h.svc.Redeem(c.Request.Context(), id.AccountID(), wallet.AddOnKind(kind))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, RedeemResponse{Redemption: redemption, Spendable: w.Spendable, BonusSeats: w.BonusSeats})
}

// Earn credits an add-on bucket for an account. Amounts default to the catalog grant.
func (h *Handler) Earn(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("accountId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req EarnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	w, err := h.svc.Earn(c.Request.Context(), accountID, wallet.AddOnKind(req.Kind), req.Credits, req.Seats, req.Reference)
	if httpkit.HandleError(c, err) {
		return
	}
	credits, seats := w.Earned(wallet.AddOnKind(req.Kind))
	httpkit.OK(c, gin.H{"kind": req.Kind, "creditsEarned": credits, "seatsEarned": seats})
}
