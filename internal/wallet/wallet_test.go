package wallet

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestWallet(spendable int) Wallet {
	w := NewWallet(uuid.New(), nil, t0)
	w.Spendable = spendable
	return w
}

func TestDebitInsufficient(t *testing.T) {
	w := newTestWallet(14)
	_, err := w.Debit(15, t0)
	var insufficient *InsufficientCreditsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientCreditsError, got %v", err)
	}
	if insufficient.Required != 15 || insufficient.Available != 14 {
		t.Fatalf("unexpected error payload: %+v", insufficient)
	}
	if w.Spendable != 14 || w.TotalSpent != 0 {
		t.Fatalf("failed debit must not change the wallet: %+v", w)
	}
}

func TestDebitExactBalance(t *testing.T) {
	w := newTestWallet(15)
	e, err := w.Debit(15, t0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Spendable != 0 || w.TotalSpent != 15 {
		t.Fatalf("unexpected wallet after debit: %+v", w)
	}
	if e.Delta != -15 || e.SpendableAfter != 0 || e.Type != EntryDebit {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestDebitRejectsNonPositive(t *testing.T) {
	w := newTestWallet(10)
	if _, err := w.Debit(0, t0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestTrialCreditsConsumedFirst(t *testing.T) {
	w := newTestWallet(10)
	if _, err := w.StartTrial(25, t0.Add(14*24*time.Hour), t0); err != nil {
		t.Fatal(err)
	}
	if w.Spendable != 35 || w.Trial != 25 || w.Status != StatusTrial {
		t.Fatalf("unexpected trial wallet: %+v", w)
	}
	if _, err := w.Debit(20, t0); err != nil {
		t.Fatal(err)
	}
	if w.Trial != 5 || w.Spendable != 15 {
		t.Fatalf("expected trial consumed first, got trial=%d spendable=%d", w.Trial, w.Spendable)
	}
}

func TestExpireTrialRemovesOnlyTrialCredits(t *testing.T) {
	w := newTestWallet(10)
	expires := t0.Add(time.Hour)
	if _, err := w.StartTrial(25, expires, t0); err != nil {
		t.Fatal(err)
	}
	if _, ok := w.ExpireTrial(t0); ok {
		t.Fatal("trial must not expire before its deadline")
	}
	e, ok := w.ExpireTrial(expires)
	if !ok {
		t.Fatal("expected trial to expire")
	}
	if w.Spendable != 10 || w.Trial != 0 || w.Status != StatusTrialExpired {
		t.Fatalf("unexpected wallet after expiry: %+v", w)
	}
	if e.Delta != -25 {
		t.Fatalf("expected -25 delta, got %d", e.Delta)
	}
	if _, ok := w.ExpireTrial(expires.Add(time.Hour)); ok {
		t.Fatal("expiry must be applied once")
	}
}

func TestFrozenDepositParksBalance(t *testing.T) {
	w := newTestWallet(40)
	e, err := w.Deposit(5, BucketFrozen, t0)
	if err != nil {
		t.Fatal(err)
	}
	if w.Spendable != 0 || w.Frozen != 45 || w.Status != StatusCanceled || w.FrozenAt == nil {
		t.Fatalf("unexpected frozen wallet: %+v", w)
	}
	if e.Delta != 45 || e.Type != EntryFreeze {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if _, err := w.Debit(1, t0); err == nil {
		t.Fatal("frozen credits must not be spendable")
	}
}

func TestRenewKeepsFrozen(t *testing.T) {
	w := newTestWallet(7)
	w.Frozen = 30
	e, err := w.Renew("professional", 100, t0)
	if err != nil {
		t.Fatal(err)
	}
	if w.Spendable != 100 || w.Frozen != 30 || w.Status != StatusActive {
		t.Fatalf("unexpected renewed wallet: %+v", w)
	}
	if e.Delta != 93 {
		t.Fatalf("expected delta 93, got %d", e.Delta)
	}
	if w.PlanSlug == nil || *w.PlanSlug != "professional" {
		t.Fatalf("expected plan slug to be set")
	}
}

func TestReleaseFrozen(t *testing.T) {
	w := newTestWallet(3)
	w.Frozen = 12
	if _, err := w.ReleaseFrozen(t0); err != nil {
		t.Fatal(err)
	}
	if w.Spendable != 15 || w.Frozen != 0 {
		t.Fatalf("unexpected wallet: %+v", w)
	}
	if _, err := w.ReleaseFrozen(t0); !errors.Is(err, ErrNothingToRedeem) {
		t.Fatalf("expected ErrNothingToRedeem, got %v", err)
	}
}

func TestRedeemAddOnMovesWholeBucket(t *testing.T) {
	w := newTestWallet(5)
	if _, err := w.EarnAddOn(AddOnBonus, 30, 0, t0); err != nil {
		t.Fatal(err)
	}
	if _, err := w.EarnAddOn(AddOnBonus, 20, 0, t0); err != nil {
		t.Fatal(err)
	}
	r, e, err := w.RedeemAddOn(AddOnBonus, t0)
	if err != nil {
		t.Fatal(err)
	}
	if r.CreditsAdded != 50 || w.Spendable != 55 || w.BonusEarned != 0 {
		t.Fatalf("unexpected redemption %+v wallet %+v", r, w)
	}
	if w.LastBonusRedeemedAt == nil || !w.LastBonusRedeemedAt.Equal(t0) {
		t.Fatal("expected redemption timestamp")
	}
	if e.SpendableAfter != 55 {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if _, _, err := w.RedeemAddOn(AddOnBonus, t0); !errors.Is(err, ErrNothingToRedeem) {
		t.Fatalf("expected ErrNothingToRedeem on empty bucket, got %v", err)
	}
}

func TestRedeemBoostPackSeatsOnly(t *testing.T) {
	w := newTestWallet(0)
	if _, err := w.EarnAddOn(AddOnBoostPack, 0, 2, t0); err != nil {
		t.Fatal(err)
	}
	r, _, err := w.RedeemAddOn(AddOnBoostPack, t0)
	if err != nil {
		t.Fatal(err)
	}
	if r.SeatsAdded != 2 || r.CreditsAdded != 0 || w.BonusSeats != 2 || w.BoostPackSeatsEarned != 0 {
		t.Fatalf("unexpected redemption %+v wallet %+v", r, w)
	}
}

func TestEarnAddOnRejectsSeatsOutsideBoostPack(t *testing.T) {
	w := newTestWallet(0)
	if _, err := w.EarnAddOn(AddOnStayActive, 10, 1, t0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := w.EarnAddOn(AddOnKind("mystery"), 10, 0, t0); !errors.Is(err, ErrUnknownAddOn) {
		t.Fatalf("expected ErrUnknownAddOn, got %v", err)
	}
}

func TestAdjustNeverGoesNegative(t *testing.T) {
	w := newTestWallet(10)
	w.Trial = 10
	if _, err := w.Adjust(-11, t0); err == nil {
		t.Fatal("expected adjustment below zero to fail")
	}
	if _, err := w.Adjust(-4, t0); err != nil {
		t.Fatal(err)
	}
	if w.Spendable != 6 || w.Trial != 6 {
		t.Fatalf("unexpected wallet: %+v", w)
	}
}
