// Package unlock defines the permanent grants that reveal a lead's contact
// details to one account, and the storage contract the unlock flow needs.
package unlock

import (
	"context"
	"errors"
	"time"

	"leadledger_backend/internal/leads/domain"
	"leadledger_backend/internal/wallet"

	"github.com/google/uuid"
)

var (
	ErrLeadNotAvailable = errors.New("lead not available")
	ErrGrantNotFound    = errors.New("unlock grant not found")
	ErrGrantExists      = errors.New("unlock grant already exists")
)

// Grant records that an account paid to reveal one lead. Snapshot is the
// detail as it was at unlock time and is what replays return.
type Grant struct {
	ID           uuid.UUID         `json:"id"`
	AccountID    uuid.UUID         `json:"accountId"`
	LeadID       uuid.UUID         `json:"leadId"`
	CreditsSpent int               `json:"creditsSpent"`
	UnlockedAt   time.Time         `json:"unlockedAt"`
	Notes        *string           `json:"notes,omitempty"`
	Snapshot     domain.LeadDetail `json:"lead"`
}

// Result is returned by every unlock call. Replayed is true when an existing
// grant was returned without a debit; SpendableAfter is only set on a debit.
type Result struct {
	Grant          Grant `json:"grant"`
	Replayed       bool  `json:"replayed"`
	SpendableAfter *int  `json:"spendableAfter,omitempty"`
}

// Tx extends the wallet transaction with grant statements so the debit and
// the grant commit together.
type Tx interface {
	wallet.Tx
	GetGrant(ctx context.Context, accountID, leadID uuid.UUID) (Grant, error)
	InsertGrant(ctx context.Context, g Grant) error
}

type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	GetGrant(ctx context.Context, accountID, leadID uuid.UUID) (Grant, error)
	ListGrants(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]Grant, int, error)
	UpdateNotes(ctx context.Context, accountID, leadID uuid.UUID, notes *string) (Grant, error)
	UnlockedLeadIDs(ctx context.Context, accountID uuid.UUID, leadIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}

// GrantCache holds grants for fast replays. Misses and cache errors fall
// through to the Store.
type GrantCache interface {
	Get(ctx context.Context, accountID, leadID uuid.UUID) (Grant, bool, error)
	Put(ctx context.Context, g Grant) error
}

// NopCache never hits.
type NopCache struct{}

func (NopCache) Get(context.Context, uuid.UUID, uuid.UUID) (Grant, bool, error) {
	return Grant{}, false, nil
}

func (NopCache) Put(context.Context, Grant) error { return nil }
