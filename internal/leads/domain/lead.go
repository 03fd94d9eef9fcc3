package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Lead is a prospective job listing.
type Lead struct {
	ID  uuid.UUID
	Seq int64

	TypeLabel      string
	Description    string
	Address        string
	EstimatedValue *string
	StageStatus    *string
	ContactName    string
	ContactEmail   string
	ContactPhone   string
	HasDocuments   bool

	RelevanceScore int
	ScoreVersion   string
	ScoredAt       time.Time

	ReviewState   ReviewState
	DeclineReason *string
	// PostedAt is the approval anchor while pending and the publication time once posted.
	PostedAt  *time.Time
	DayOffset int

	SourceKind     SourceKind
	UploadedBy     *uuid.UUID
	ResubmissionOf *uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (l Lead) HasPhone() bool { return strings.TrimSpace(l.ContactPhone) != "" }
func (l Lead) HasEmail() bool { return strings.TrimSpace(l.ContactEmail) != "" }

// IsPosted reports whether the lead is visible to buyers.
func (l Lead) IsPosted() bool { return l.ReviewState == ReviewPosted }

// PostingDueAt returns anchor + DayOffset days for a pending, approved lead.
func (l Lead) PostingDueAt() (time.Time, bool) {
	if l.ReviewState != ReviewPending || l.PostedAt == nil {
		return time.Time{}, false
	}
	return l.PostedAt.AddDate(0, 0, l.DayOffset), true
}

// IsDueForPosting is the scheduler predicate: a pending lead with an approval
// anchor is due once now reaches anchor + DayOffset days.
func (l Lead) IsDueForPosting(now time.Time) bool {
	due, ok := l.PostingDueAt()
	if !ok {
		return false
	}
	return !now.Before(due)
}

// LeadDetail is the full view returned after a successful unlock and stored
// with the grant.
type LeadDetail struct {
	ID             uuid.UUID  `json:"id"`
	TypeLabel      string     `json:"typeLabel"`
	Description    string     `json:"description"`
	Address        string     `json:"address"`
	EstimatedValue *string    `json:"estimatedValue,omitempty"`
	StageStatus    *string    `json:"stageStatus,omitempty"`
	ContactName    string     `json:"contactName"`
	ContactEmail   string     `json:"contactEmail"`
	ContactPhone   string     `json:"contactPhone"`
	HasDocuments   bool       `json:"hasDocuments"`
	RelevanceScore int        `json:"relevanceScore"`
	PostedAt       *time.Time `json:"postedAt,omitempty"`
	SourceKind     SourceKind `json:"sourceKind"`
}

// LeadSummary is the listing view with contact details withheld.
type LeadSummary struct {
	ID             uuid.UUID  `json:"id"`
	TypeLabel      string     `json:"typeLabel"`
	Description    string     `json:"description"`
	Address        string     `json:"address"`
	EstimatedValue *string    `json:"estimatedValue,omitempty"`
	StageStatus    *string    `json:"stageStatus,omitempty"`
	HasPhone       bool       `json:"hasPhone"`
	HasEmail       bool       `json:"hasEmail"`
	HasDocuments   bool       `json:"hasDocuments"`
	RelevanceScore int        `json:"relevanceScore"`
	UnlockCost     int        `json:"unlockCost"`
	PostedAt       *time.Time `json:"postedAt,omitempty"`
	SourceKind     SourceKind `json:"sourceKind"`
}

func (l Lead) Detail() LeadDetail {
	return LeadDetail{
		ID:             l.ID,
		TypeLabel:      l.TypeLabel,
		Description:    l.Description,
		Address:        l.Address,
		EstimatedValue: l.EstimatedValue,
		StageStatus:    l.StageStatus,
		ContactName:    l.ContactName,
		ContactEmail:   l.ContactEmail,
		ContactPhone:   l.ContactPhone,
		HasDocuments:   l.HasDocuments,
		RelevanceScore: l.RelevanceScore,
		PostedAt:       l.PostedAt,
		SourceKind:     l.SourceKind,
	}
}

// Summary redacts the contact fields.
func (l Lead) Summary() LeadSummary {
	return LeadSummary{
		ID:             l.ID,
		TypeLabel:      l.TypeLabel,
		Description:    l.Description,
		Address:        l.Address,
		EstimatedValue: l.EstimatedValue,
		StageStatus:    l.StageStatus,
		HasPhone:       l.HasPhone(),
		HasEmail:       l.HasEmail(),
		HasDocuments:   l.HasDocuments,
		RelevanceScore: l.RelevanceScore,
		UnlockCost:     l.RelevanceScore,
		PostedAt:       l.PostedAt,
		SourceKind:     l.SourceKind,
	}
}
