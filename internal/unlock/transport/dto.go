package transport

import (
	"leadledger_backend/internal/unlock"

	"github.com/google/uuid"
)

type ListUnlocksQuery struct {
	Offset int `form:"offset" validate:"min=0"`
	Limit  int `form:"limit" validate:"min=0,max=100"`
}

type UpdateNotesRequest struct {
	Notes *string `json:"notes" validate:"omitempty,max=4000"`
}

type UnlockStatusRequest struct {
	LeadIDs []uuid.UUID `json:"leadIds" validate:"required,min=1,max=200"`
}

type UnlockPageResponse struct {
	Items  []unlock.Grant `json:"items"`
	Total  int            `json:"total"`
	Offset int            `json:"offset"`
	Limit  int            `json:"limit"`
}

type UnlockStatusResponse struct {
	Unlocked map[uuid.UUID]bool `json:"unlocked"`
}
