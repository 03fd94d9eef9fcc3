package repository

import (
	"context"
	"time"

	"leadledger_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
}

// LeadLister returns filtered, ordered rows for the catalog.
type LeadLister interface {
	List(ctx context.Context, filter domain.ListFilter, order domain.Order) ([]domain.Lead, error)
}

// LeadWriter provides write operations for intake and moderation.
type LeadWriter interface {
	Create(ctx context.Context, lead domain.Lead) (domain.Lead, error)
	Approve(ctx context.Context, id uuid.UUID, anchor time.Time, dayOffset int, postNow bool) (domain.Lead, error)
	Decline(ctx context.Context, id uuid.UUID, reason string) (domain.Lead, error)
	UpdateScore(ctx context.Context, id uuid.UUID, score int, version string, scoredAt time.Time) (domain.Lead, error)
}

// PostingSweeper moves due pending leads to posted.
type PostingSweeper interface {
	PostDue(ctx context.Context, now time.Time, limit int) ([]domain.Lead, error)
	PostIfDue(ctx context.Context, id uuid.UUID, now time.Time) (domain.Lead, bool, error)
}

// MarkStore manages per-account saved/not-interested flags.
type MarkStore interface {
	SetMark(ctx context.Context, accountID, leadID uuid.UUID, mark domain.Mark) error
	ClearMark(ctx context.Context, accountID, leadID uuid.UUID, mark domain.Mark) error
	ListMarked(ctx context.Context, accountID uuid.UUID, mark domain.Mark) ([]domain.Lead, error)
}

// Rescorer lists leads for a bulk rescore.
type Rescorer interface {
	ListStaleScores(ctx context.Context, currentVersion string, limit int) ([]domain.Lead, error)
}
