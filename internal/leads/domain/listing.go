package domain

import (
	"time"

	"github.com/google/uuid"
)

// Order selects the sort applied before deduplication.
type Order string

const (
	// OrderScoreDesc: highest score first, then most recently posted.
	OrderScoreDesc Order = "score"
	// OrderRecencyDesc: most recently posted first, then most recently created.
	OrderRecencyDesc Order = "recent"
	// OrderCreatedDesc: newest records first; used by the review queue.
	OrderCreatedDesc Order = "created"
)

// Valid reports whether o is a known order.
func (o Order) Valid() bool {
	switch o {
	case OrderScoreDesc, OrderRecencyDesc, OrderCreatedDesc:
		return true
	}
	return false
}

// Mark is a per-account flag on a lead.
type Mark string

const (
	MarkSaved         Mark = "saved"
	MarkNotInterested Mark = "not_interested"
)

func (m Mark) Valid() bool {
	return m == MarkSaved || m == MarkNotInterested
}

// ListFilter narrows a catalog listing. Zero values do not filter.
type ListFilter struct {
	States      []ReviewState
	SourceKind  SourceKind
	TypeLabel   string
	Search      string
	MinScore    int
	PostedSince *time.Time
	UploadedBy  *uuid.UUID
	// ExcludeFor hides leads the account has unlocked or marked.
	ExcludeFor *uuid.UUID
	// MaxScan caps rows read from storage before deduplication.
	MaxScan int
}

// Less orders a before b under o. Ties fall back to storage order (Seq).
func (o Order) Less(a, b Lead) bool {
	switch o {
	case OrderScoreDesc:
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		if c := compareTimeDesc(a.PostedAt, b.PostedAt); c != 0 {
			return c < 0
		}
	case OrderRecencyDesc:
		if c := compareTimeDesc(a.PostedAt, b.PostedAt); c != 0 {
			return c < 0
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
	case OrderCreatedDesc:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
	}
	return a.Seq < b.Seq
}

// compareTimeDesc returns -1 when a sorts first (later time), 1 when b does.
// Nil sorts last, matching NULLS LAST.
func compareTimeDesc(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.After(*b):
		return -1
	case b.After(*a):
		return 1
	}
	return 0
}
