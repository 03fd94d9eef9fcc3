// Package billing applies subscription and purchase events from the billing
// system to wallets. Events arrive as JSON on a RabbitMQ queue.
package billing

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event types published by billing.
const (
	TypeSubscriptionActivated = "subscription.activated"
	TypeSubscriptionRenewed   = "subscription.renewed"
	TypeSubscriptionCanceled  = "subscription.canceled"
	TypeTrialStarted          = "trial.started"
	TypeCreditsPurchased      = "credits.purchased"
	TypeAddOnEarned           = "addon.earned"
)

// ErrPermanent marks events that can never succeed; they are dead-lettered
// instead of requeued.
var ErrPermanent = errors.New("permanent billing event failure")

// Event is the billing envelope. Fields beyond ID, Type and AccountID are
// read only by the types that need them.
type Event struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	AccountID  uuid.UUID  `json:"accountId"`
	OccurredAt time.Time  `json:"occurredAt"`
	PlanSlug   string     `json:"planSlug,omitempty"`
	Amount     int        `json:"amount,omitempty"`
	Allotment  *int       `json:"allotment,omitempty"`
	AddOnKind  string     `json:"addonKind,omitempty"`
	Credits    *int       `json:"credits,omitempty"`
	Seats      *int       `json:"seats,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

// Reference is the ledger idempotency key for the event.
func (e Event) Reference() string {
	return "billing:" + e.ID
}

func (e Event) validate() error {
	if e.ID == "" {
		return errors.New("event id is required")
	}
	if e.Type == "" {
		return errors.New("event type is required")
	}
	if e.AccountID == uuid.Nil {
		return errors.New("account id is required")
	}
	return nil
}
