package transport

import (
	"time"

	"leadledger_backend/internal/leads/domain"
	"leadledger_backend/internal/leads/scoring"

	"github.com/google/uuid"
)

// Request DTOs
type CreateLeadRequest struct {
	TypeLabel      string  `json:"typeLabel" validate:"required,min=1,max=200"`
	Description    string  `json:"description" validate:"max=10000"`
	Address        string  `json:"address" validate:"max=500"`
	EstimatedValue *string `json:"estimatedValue,omitempty" validate:"omitempty,max=64"`
	StageStatus    *string `json:"stageStatus,omitempty" validate:"omitempty,max=100"`
	ContactName    string  `json:"contactName" validate:"max=200"`
	ContactEmail   string  `json:"contactEmail,omitempty" validate:"omitempty,email,max=254"`
	ContactPhone   string  `json:"contactPhone,omitempty" validate:"omitempty,min=5,max=40"`
	HasDocuments   bool    `json:"hasDocuments"`
}

type ApproveLeadRequest struct {
	DayOffset int        `json:"dayOffset" validate:"min=0,max=365"`
	AnchorAt  *time.Time `json:"anchorAt,omitempty"`
}

type DeclineLeadRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=1000"`
}

// ListLeadsQuery binds catalog query parameters.
type ListLeadsQuery struct {
	Order       string     `form:"order" validate:"omitempty,lead_order"`
	State       []string   `form:"state" validate:"omitempty,dive,review_state"`
	SourceKind  string     `form:"source" validate:"omitempty,source_kind"`
	TypeLabel   string     `form:"type" validate:"max=200"`
	Search      string     `form:"q" validate:"max=200"`
	MinScore    int        `form:"minScore" validate:"omitempty,min=10,max=20"`
	PostedSince *time.Time `form:"postedSince" time_format:"2006-01-02T15:04:05Z07:00"`
	Offset      int        `form:"offset" validate:"min=0"`
	Limit       int        `form:"limit" validate:"min=0,max=100"`
}

type PostDueRequest struct {
	Now *time.Time `json:"now,omitempty"`
}

// Response DTOs
type LeadPageResponse struct {
	Items     []domain.LeadSummary `json:"items"`
	Total     int                  `json:"total"`
	Collapsed int                  `json:"collapsed"`
	Offset    int                  `json:"offset"`
	Limit     int                  `json:"limit"`
}

// AdminLeadResponse is the unredacted moderation view.
type AdminLeadResponse struct {
	ID             uuid.UUID          `json:"id"`
	Detail         domain.LeadDetail  `json:"detail"`
	ReviewState    domain.ReviewState `json:"reviewState"`
	DeclineReason  *string            `json:"declineReason,omitempty"`
	PostedAt       *time.Time         `json:"postedAt,omitempty"`
	DayOffset      int                `json:"dayOffset"`
	DueAt          *time.Time         `json:"dueAt,omitempty"`
	ScoreVersion   string             `json:"scoreVersion"`
	ScoredAt       time.Time          `json:"scoredAt"`
	UploadedBy     *uuid.UUID         `json:"uploadedBy,omitempty"`
	ResubmissionOf *uuid.UUID         `json:"resubmissionOf,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
}

type AdminLeadPageResponse struct {
	Items     []AdminLeadResponse `json:"items"`
	Total     int                 `json:"total"`
	Collapsed int                 `json:"collapsed"`
	Offset    int                 `json:"offset"`
	Limit     int                 `json:"limit"`
}

type ScoreBreakdownResponse struct {
	LeadID    uuid.UUID      `json:"leadId"`
	Stored    int            `json:"stored"`
	Breakdown scoring.Result `json:"breakdown"`
}

type RescoreResponse struct {
	Lead     AdminLeadResponse `json:"lead"`
	Previous int               `json:"previous"`
}

type PostDueResponse struct {
	Posted []uuid.UUID `json:"posted"`
}

type RescoreStaleResponse struct {
	Rescored int `json:"rescored"`
}

type RescoreStaleRequest struct {
	Limit int `json:"limit" validate:"min=0,max=5000"`
}

// LeadViewResponse is the buyer view of one lead. Contact fields stay
// redacted; the unlock grant carries them.
type LeadViewResponse struct {
	Lead     domain.LeadSummary `json:"lead"`
	Unlocked bool               `json:"unlocked"`
}

type MarkedLeadsResponse struct {
	Mark  domain.Mark          `json:"mark"`
	Items []domain.LeadSummary `json:"items"`
}
