// Package wallet holds the per-account credit buckets and the rules for
// moving credits between them. Every mutation returns the ledger entry that
// records it; persistence and locking live in the service and repository.
package wallet

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive       Status = "active"
	StatusTrial        Status = "trial"
	StatusTrialExpired Status = "trial_expired"
	StatusCanceled     Status = "canceled"
)

// Bucket names a deposit target.
type Bucket string

const (
	BucketSpendable Bucket = "spendable"
	BucketFrozen    Bucket = "frozen"
	BucketTrial     Bucket = "trial"
)

type AddOnKind string

const (
	AddOnStayActive AddOnKind = "stay_active"
	AddOnBonus      AddOnKind = "bonus"
	AddOnBoostPack  AddOnKind = "boost_pack"
)

// AddOnKinds lists every add-on in display order.
var AddOnKinds = []AddOnKind{AddOnStayActive, AddOnBonus, AddOnBoostPack}

func (k AddOnKind) Valid() bool {
	switch k {
	case AddOnStayActive, AddOnBonus, AddOnBoostPack:
		return true
	}
	return false
}

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrNothingToRedeem     = errors.New("nothing to redeem")
	ErrConcurrencyConflict = errors.New("concurrent wallet update")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrUnknownAddOn        = errors.New("unknown add-on kind")
	ErrUnknownBucket       = errors.New("unknown bucket")
	ErrReferenceApplied    = errors.New("reference already applied")
)

// InsufficientCreditsError reports the cost and the balance that could not cover it.
type InsufficientCreditsError struct {
	Required  int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d", e.Required, e.Available)
}

// Wallet is one billing account's credit state.
type Wallet struct {
	AccountID      uuid.UUID
	PlanSlug       *string
	Status         Status
	Spendable      int
	Trial          int
	TrialExpiresAt *time.Time
	Frozen         int
	FrozenAt       *time.Time
	TotalSpent     int64

	StayActiveEarned     int
	BonusEarned          int
	BoostPackEarned      int
	BoostPackSeatsEarned int
	BonusSeats           int

	LastStayActiveRedeemedAt *time.Time
	LastBonusRedeemedAt      *time.Time
	LastBoostPackRedeemedAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewWallet returns an empty active wallet.
func NewWallet(accountID uuid.UUID, planSlug *string, now time.Time) Wallet {
	return Wallet{
		AccountID: accountID,
		PlanSlug:  planSlug,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

type EntryType string

const (
	EntryDebit       EntryType = "debit"
	EntryDeposit     EntryType = "deposit"
	EntryRenewal     EntryType = "renewal"
	EntryFreeze      EntryType = "freeze"
	EntryUnfreeze    EntryType = "unfreeze"
	EntryTrialStart  EntryType = "trial_start"
	EntryTrialExpire EntryType = "trial_expire"
	EntryAddOnEarn   EntryType = "addon_earn"
	EntryAddOnRedeem EntryType = "addon_redeem"
	EntryAdjustment  EntryType = "adjustment"
)

// Entry is one append-only ledger row.
type Entry struct {
	ID             int64     `json:"id"`
	AccountID      uuid.UUID `json:"accountId"`
	Type           EntryType `json:"type"`
	Bucket         string    `json:"bucket"`
	Delta          int       `json:"delta"`
	SpendableAfter int       `json:"spendableAfter"`
	Reference      *string   `json:"reference,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (w *Wallet) entry(t EntryType, bucket string, delta int, now time.Time) Entry {
	w.UpdatedAt = now
	return Entry{
		AccountID:      w.AccountID,
		Type:           t,
		Bucket:         bucket,
		Delta:          delta,
		SpendableAfter: w.Spendable,
		CreatedAt:      now,
	}
}

// Debit spends amount from Spendable. Trial credits are consumed first so
// Trial never exceeds Spendable.
func (w *Wallet) Debit(amount int, now time.Time) (Entry, error) {
	if amount <= 0 {
		return Entry{}, ErrInvalidAmount
	}
	if w.Spendable < amount {
		return Entry{}, &InsufficientCreditsError{Required: amount, Available: w.Spendable}
	}
	w.Spendable -= amount
	w.TotalSpent += int64(amount)
	w.Trial = max(0, w.Trial-amount)
	return w.entry(EntryDebit, string(BucketSpendable), -amount, now), nil
}

// Deposit adds to Spendable, or for BucketFrozen parks the whole spendable
// balance plus amount in Frozen.
func (w *Wallet) Deposit(amount int, bucket Bucket, now time.Time) (Entry, error) {
	switch bucket {
	case BucketSpendable:
		if amount <= 0 {
			return Entry{}, ErrInvalidAmount
		}
		w.Spendable += amount
		return w.entry(EntryDeposit, string(BucketSpendable), amount, now), nil
	case BucketFrozen:
		if amount < 0 {
			return Entry{}, ErrInvalidAmount
		}
		moved := w.Spendable + amount
		w.Frozen += moved
		w.Spendable = 0
		w.Trial = 0
		w.FrozenAt = &now
		w.Status = StatusCanceled
		return w.entry(EntryFreeze, string(BucketFrozen), moved, now), nil
	default:
		return Entry{}, ErrUnknownBucket
	}
}

// ReleaseFrozen moves all frozen credits back into Spendable.
func (w *Wallet) ReleaseFrozen(now time.Time) (Entry, error) {
	if w.Frozen == 0 {
		return Entry{}, ErrNothingToRedeem
	}
	moved := w.Frozen
	w.Spendable += moved
	w.Frozen = 0
	w.FrozenAt = nil
	return w.entry(EntryUnfreeze, string(BucketFrozen), moved, now), nil
}

// Renew resets Spendable to the plan allotment. Frozen credits stay parked.
func (w *Wallet) Renew(planSlug string, allotment int, now time.Time) (Entry, error) {
	if allotment < 0 {
		return Entry{}, ErrInvalidAmount
	}
	delta := allotment - w.Spendable
	w.Spendable = allotment
	w.Trial = 0
	w.TrialExpiresAt = nil
	w.Status = StatusActive
	w.PlanSlug = &planSlug
	return w.entry(EntryRenewal, string(BucketSpendable), delta, now), nil
}

// StartTrial grants trial credits that count as spendable until expiresAt.
func (w *Wallet) StartTrial(credits int, expiresAt, now time.Time) (Entry, error) {
	if credits <= 0 {
		return Entry{}, ErrInvalidAmount
	}
	w.Spendable += credits
	w.Trial += credits
	w.TrialExpiresAt = &expiresAt
	w.Status = StatusTrial
	return w.entry(EntryTrialStart, string(BucketTrial), credits, now), nil
}

// TrialExpired reports whether the trial window has closed.
func (w *Wallet) TrialExpired(now time.Time) bool {
	return w.Status == StatusTrial && w.TrialExpiresAt != nil && !now.Before(*w.TrialExpiresAt)
}

// ExpireTrial removes unspent trial credits once the window has closed.
// ok is false when the wallet is not an expired trial.
func (w *Wallet) ExpireTrial(now time.Time) (Entry, bool) {
	if !w.TrialExpired(now) {
		return Entry{}, false
	}
	removed := min(w.Trial, w.Spendable)
	w.Spendable -= removed
	w.Trial = 0
	w.Status = StatusTrialExpired
	return w.entry(EntryTrialExpire, string(BucketTrial), -removed, now), true
}

// EarnAddOn credits an add-on bucket. Seats only apply to boost packs.
func (w *Wallet) EarnAddOn(kind AddOnKind, credits, seats int, now time.Time) (Entry, error) {
	if credits < 0 || seats < 0 || (credits == 0 && seats == 0) {
		return Entry{}, ErrInvalidAmount
	}
	switch kind {
	case AddOnStayActive:
		if seats > 0 {
			return Entry{}, ErrInvalidAmount
		}
		w.StayActiveEarned += credits
	case AddOnBonus:
		if seats > 0 {
			return Entry{}, ErrInvalidAmount
		}
		w.BonusEarned += credits
	case AddOnBoostPack:
		w.BoostPackEarned += credits
		w.BoostPackSeatsEarned += seats
	default:
		return Entry{}, ErrUnknownAddOn
	}
	return w.entry(EntryAddOnEarn, string(kind), credits, now), nil
}

// Redemption is the outcome of moving one add-on bucket into the balance.
type Redemption struct {
	Kind         AddOnKind `json:"kind"`
	CreditsAdded int       `json:"creditsAdded"`
	SeatsAdded   int       `json:"seatsAdded"`
	RedeemedAt   time.Time `json:"redeemedAt"`
}

// RedeemCheck vets a locked wallet before a redemption is applied.
type RedeemCheck func(w Wallet) error

// RedeemAddOn moves the whole bucket into Spendable (and boost pack seats into
// BonusSeats), zeroes it and stamps the redemption time.
func (w *Wallet) RedeemAddOn(kind AddOnKind, now time.Time) (Redemption, Entry, error) {
	r := Redemption{Kind: kind, RedeemedAt: now}
	switch kind {
	case AddOnStayActive:
		if w.StayActiveEarned == 0 {
			return Redemption{}, Entry{}, ErrNothingToRedeem
		}
		r.CreditsAdded = w.StayActiveEarned
		w.StayActiveEarned = 0
		w.LastStayActiveRedeemedAt = &now
	case AddOnBonus:
		if w.BonusEarned == 0 {
			return Redemption{}, Entry{}, ErrNothingToRedeem
		}
		r.CreditsAdded = w.BonusEarned
		w.BonusEarned = 0
		w.LastBonusRedeemedAt = &now
	case AddOnBoostPack:
		if w.BoostPackEarned == 0 && w.BoostPackSeatsEarned == 0 {
			return Redemption{}, Entry{}, ErrNothingToRedeem
		}
		r.CreditsAdded = w.BoostPackEarned
		r.SeatsAdded = w.BoostPackSeatsEarned
		w.BoostPackEarned = 0
		w.BoostPackSeatsEarned = 0
		w.BonusSeats += r.SeatsAdded
		w.LastBoostPackRedeemedAt = &now
	default:
		return Redemption{}, Entry{}, ErrUnknownAddOn
	}
	w.Spendable += r.CreditsAdded
	return r, w.entry(EntryAddOnRedeem, string(kind), r.CreditsAdded, now), nil
}

// Adjust applies a signed admin correction to Spendable without going negative.
func (w *Wallet) Adjust(delta int, now time.Time) (Entry, error) {
	if delta == 0 {
		return Entry{}, ErrInvalidAmount
	}
	if w.Spendable+delta < 0 {
		return Entry{}, &InsufficientCreditsError{Required: -delta, Available: w.Spendable}
	}
	w.Spendable += delta
	if w.Trial > w.Spendable {
		w.Trial = w.Spendable
	}
	return w.entry(EntryAdjustment, string(BucketSpendable), delta, now), nil
}

// Earned returns the unredeemed credits and seats for kind.
func (w Wallet) Earned(kind AddOnKind) (credits, seats int) {
	switch kind {
	case AddOnStayActive:
		return w.StayActiveEarned, 0
	case AddOnBonus:
		return w.BonusEarned, 0
	case AddOnBoostPack:
		return w.BoostPackEarned, w.BoostPackSeatsEarned
	}
	return 0, 0
}

// LastRedeemedAt returns when kind was last redeemed.
func (w Wallet) LastRedeemedAt(kind AddOnKind) *time.Time {
	switch kind {
	case AddOnStayActive:
		return w.LastStayActiveRedeemedAt
	case AddOnBonus:
		return w.LastBonusRedeemedAt
	case AddOnBoostPack:
		return w.LastBoostPackRedeemedAt
	}
	return nil
}
