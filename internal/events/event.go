// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"leadledger_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

var (
	NewBaseEvent   = events.NewBaseEvent
	NewBaseEventAt = events.NewBaseEventAt
)

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadIngested is published when a lead enters review, either from an
// upstream feed or a contractor upload.
type LeadIngested struct {
	BaseEvent
	LeadID         uuid.UUID  `json:"leadId"`
	SourceKind     string     `json:"sourceKind"`
	UploadedBy     *uuid.UUID `json:"uploadedBy,omitempty"`
	RelevanceScore int        `json:"relevanceScore"`
}

func (e LeadIngested) EventName() string { return "leads.lead.ingested" }

// LeadApproved is published when a reviewer approves a pending lead.
type LeadApproved struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	DueAt     string    `json:"dueAt"`
	DayOffset int       `json:"dayOffset"`
}

func (e LeadApproved) EventName() string { return "leads.lead.approved" }

// LeadPosted is published when a lead becomes visible in the catalog.
type LeadPosted struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	RelevanceScore int       `json:"relevanceScore"`
}

func (e LeadPosted) EventName() string { return "leads.lead.posted" }

// LeadDeclined is published when a reviewer rejects a lead.
type LeadDeclined struct {
	BaseEvent
	LeadID     uuid.UUID  `json:"leadId"`
	UploadedBy *uuid.UUID `json:"uploadedBy,omitempty"`
	Reason     string     `json:"reason"`
}

func (e LeadDeclined) EventName() string { return "leads.lead.declined" }

// =============================================================================
// Wallet Domain Events
// =============================================================================

// LeadUnlocked is published after a grant commits. Replays do not publish.
type LeadUnlocked struct {
	BaseEvent
	AccountID    uuid.UUID `json:"accountId"`
	LeadID       uuid.UUID `json:"leadId"`
	CreditsSpent int       `json:"creditsSpent"`
}

func (e LeadUnlocked) EventName() string { return "unlock.lead.unlocked" }

// AddOnRedeemed is published when an add-on bucket moves into the balance.
type AddOnRedeemed struct {
	BaseEvent
	AccountID    uuid.UUID `json:"accountId"`
	Kind         string    `json:"kind"`
	CreditsAdded int       `json:"creditsAdded"`
	SeatsAdded   int       `json:"seatsAdded"`
}

func (e AddOnRedeemed) EventName() string { return "wallet.addon.redeemed" }

// TrialExpired is published when unspent trial credits are removed.
type TrialExpired struct {
	BaseEvent
	AccountID      uuid.UUID `json:"accountId"`
	CreditsRemoved int       `json:"creditsRemoved"`
}

func (e TrialExpired) EventName() string { return "wallet.trial.expired" }

// WalletFrozen is published when a cancellation parks the balance.
type WalletFrozen struct {
	BaseEvent
	AccountID uuid.UUID `json:"accountId"`
	Frozen    int       `json:"frozen"`
}

func (e WalletFrozen) EventName() string { return "wallet.frozen" }
