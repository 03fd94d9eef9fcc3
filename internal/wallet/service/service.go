// Package service applies wallet mutations inside locked transactions and
// appends a ledger entry for each one.
package service

import (
	"context"
	"errors"
	"time"

	"leadledger_backend/internal/events"
	"leadledger_backend/internal/wallet"
	"leadledger_backend/platform/apperr"
	"leadledger_backend/platform/logger"
	"leadledger_backend/platform/metrics"

	"github.com/google/uuid"
)

const (
	defaultLedgerLimit = 50
	maxLedgerLimit     = 200
	trialSweepBatch    = 200
)

type Service struct {
	store    wallet.Store
	eventBus events.Bus
	log      *logger.Logger
	now      func() time.Time
}

func New(store wallet.Store, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, eventBus: eventBus, log: log, now: time.Now}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// mutation changes a locked wallet and returns the ledger entry describing it.
type mutation func(w *wallet.Wallet, now time.Time) (wallet.Entry, error)

// Open creates an empty wallet for the account if none exists and returns it.
func (s *Service) Open(ctx context.Context, accountID uuid.UUID, planSlug *string) (wallet.Wallet, error) {
	var opened wallet.Wallet
	err := s.store.InTx(ctx, func(tx wallet.Tx) error {
		if err := tx.InsertWallet(ctx, wallet.NewWallet(accountID, planSlug, s.now())); err != nil {
			return err
		}
		w, err := tx.LockWallet(ctx, accountID)
		opened = w
		return err
	})
	if err != nil {
		return wallet.Wallet{}, MapError(err)
	}
	return opened, nil
}

func (s *Service) Get(ctx context.Context, accountID uuid.UUID) (wallet.Wallet, error) {
	w, err := s.store.GetWallet(ctx, accountID)
	if err != nil {
		return wallet.Wallet{}, MapError(err)
	}
	return w, nil
}

// Debit spends amount in its own transaction.
func (s *Service) Debit(ctx context.Context, accountID uuid.UUID, amount int, reference string) (wallet.Wallet, error) {
	w, entry, err := s.run(ctx, "debit", accountID, reference, func(w *wallet.Wallet, now time.Time) (wallet.Entry, error) {
		return w.Debit(amount, now)
	})
	if err == nil {
		metrics.RecordCreditsSpent(-entry.Delta)
	}
	return w, err
}

// DebitIn spends amount inside a transaction owned by the caller. Errors are
// returned unmapped so the caller can decide on retries and rollback. A
// reference that was already applied fails with wallet.ErrReferenceApplied.
func (s *Service) DebitIn(ctx context.Context, tx wallet.Tx, accountID uuid.UUID, amount int, reference string) (wallet.Wallet, wallet.Entry, error) {
	w, entry, applied, err := s.apply(ctx, tx, accountID, reference, func(w *wallet.Wallet, now time.Time) (wallet.Entry, error) {
		return w.Debit(amount, now)
	})
	if err != nil {
		return wallet.Wallet{}, wallet.Entry{}, err
	}
	if !applied {
		return wallet.Wallet{}, wallet.Entry{}, wallet.ErrReferenceApplied
	}
	return w, entry, nil
}

// Deposit credits the spendable bucket, or parks the balance when bucket is frozen.
func (s *Service) Deposit(ctx context.Context, accountID uuid.UUID, amount int, bucket wallet.Bucket, reference string) (wallet.Wallet, error) {
	w, entry, err := s.run(ctx, "deposit_"+string(bucket), accountID, reference, func(w *wallet.Wallet, now time.Time) (wallet.Entry, error) {
		return w.Deposit(amount, bucket, now)
	})
	if err == nil && entry.Type == wallet.EntryFreeze {
		s.publish(ctx, events.WalletFrozen{BaseEvent: events.NewBaseEventAt(s.now()), AccountID: accountID, Frozen: w.Frozen})
	}
	return w, err
}

// Renew resets the spendable balance to the plan allotment.
func (s *Service) Renew(ctx context.Context, accountID uuid.UUID, planSlug string, allotment int, reference string) (wallet.Wallet, error) {
	w, _, err := s.run(ctx, "renew", accountID, reference, func(w *wallet.Wallet, now time.Time) (wallet.Entry, error) {
		return w.Renew(planSlug, allotment, now)
	})
	return w, err
}

// StartTrial grants credits that expire at expiresAt.
func (s *Service) StartTrial(ctx context.Context, accountID uuid.UUID, credits int, expiresAt time.Time, reference string) (wallet.Wallet, error) {
	w, _, err := s.run(ctx, "trial_start", accountID, reference, func(w *wallet.Wallet, now time.Time) (wallet.Entry, error) {
		return w.StartTrial(credits, expiresAt, now)
	})
	return w, err
}

// ReleaseFrozen returns parked credits to the spendable balance.
func (s *Service) ReleaseFrozen(ctx context.Context, accountID uuid.UUID, reference string) (wallet.Wallet, error) {
	w, _, err := s.run(ctx, "unfreeze", accountID, reference, func(w *wallet.Wallet, now time.Time) (wallet.Entry, error) {
		return w.ReleaseFrozen(now)
	})
	return w, err
}

// Adjust applies a signed correction.
func (s *Service) Adjust(ctx context.Context, accountID uuid.UUID, delta int, reference string) (wallet.Wallet, error) {
	w, _, err := s.run(ctx, "adjust", accountID, reference, func(w *wallet.Wallet, now time.Time) (wallet.Entry, error) {
		return w.Adjust(delta, now)
	})
	return w, err
}

// EarnAddOn adds unredeemed credits (and boost pack seats) to an add-on bucket.
func (s *Service) EarnAddOn(ctx context.Context, accountID uuid.UUID, kind wallet.AddOnKind, credits, seats int, reference string) (wallet.Wallet, error) {
	w, _, err := s.run(ctx, "addon_earn_"+string(kind), accountID, reference, func(w *wallet.Wallet, now time.Time) (wallet.Entry, error) {
		return w.EarnAddOn(kind, credits, seats, now)
	})
	return w, err
}

// RedeemAddOn moves one add-on bucket into the balance.
func (s *Service) RedeemAddOn(ctx context.Context, accountID uuid.UUID, kind wallet.AddOnKind, checks ...wallet.RedeemCheck) (wallet.Redemption, wallet.Wallet, error) {
	var redemption wallet.Redemption
	w, _, err := s.run(ctx, "addon_redeem_"+string(kind), accountID, "", func(w *wallet.Wallet, now time.Time) (wallet.Entry, error) {
		for _, check := range checks {
			if err := check(*w); err != nil {
				return wallet.Entry{}, err
			}
		}
		r, entry, err := w.RedeemAddOn(kind, now)
		redemption = r
		return entry, err
	})
	if err != nil {
		return wallet.Redemption{}, wallet.Wallet{}, err
	}

	metrics.RecordAddOnRedemption(string(kind))
	s.publish(ctx, events.AddOnRedeemed{
		BaseEvent:    events.NewBaseEventAt(s.now()),
		AccountID:    accountID,
		Kind:         string(kind),
		CreditsAdded: redemption.CreditsAdded,
		SeatsAdded:   redemption.SeatsAdded,
	})
	return redemption, w, nil
}

// ExpireTrials removes unspent trial credits from every wallet whose trial
// window closed at or before now. It returns how many wallets changed.
func (s *Service) ExpireTrials(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.store.ListTrialsDue(ctx, now, trialSweepBatch)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		var entry wallet.Entry
		changed := false
		err := s.store.InTx(ctx, func(tx wallet.Tx) error {
			w, err := tx.LockWallet(ctx, id)
			if err != nil {
				return err
			}
			e, ok := w.ExpireTrial(now)
			if !ok {
				return nil
			}
			if err := tx.SaveWallet(ctx, w); err != nil {
				return err
			}
			entry, changed = e, true
			return tx.AppendEntry(ctx, e)
		})
		if err != nil {
			s.log.Warn("trial expiry failed", "account_id", id.String(), "error", err)
			continue
		}
		if !changed {
			continue
		}
		expired++
		s.log.CreditEvent(ctx, "trial_expire", id, entry.Delta, entry.SpendableAfter)
		s.publish(ctx, events.TrialExpired{BaseEvent: events.NewBaseEventAt(now), AccountID: id, CreditsRemoved: -entry.Delta})
	}

	metrics.RecordTrialsExpired(expired)
	return expired, nil
}

// Ledger returns the newest entries first.
func (s *Service) Ledger(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]wallet.Entry, int, error) {
	if limit <= 0 {
		limit = defaultLedgerLimit
	}
	if limit > maxLedgerLimit {
		limit = maxLedgerLimit
	}
	if offset < 0 {
		offset = 0
	}
	items, total, err := s.store.ListEntries(ctx, accountID, limit, offset)
	if err != nil {
		return nil, 0, MapError(err)
	}
	return items, total, nil
}

// run applies fn in a fresh transaction, retrying once on a concurrency conflict.
func (s *Service) run(ctx context.Context, op string, accountID uuid.UUID, reference string, fn mutation) (wallet.Wallet, wallet.Entry, error) {
	var (
		result  wallet.Wallet
		entry   wallet.Entry
		applied bool
	)
	attempt := func() error {
		return s.store.InTx(ctx, func(tx wallet.Tx) error {
			w, e, ok, err := s.apply(ctx, tx, accountID, reference, fn)
			result, entry, applied = w, e, ok
			return err
		})
	}

	err := attempt()
	if errors.Is(err, wallet.ErrConcurrencyConflict) {
		err = attempt()
	}
	if err != nil {
		return wallet.Wallet{}, wallet.Entry{}, MapError(err)
	}
	if applied {
		s.log.CreditEvent(ctx, op, accountID, entry.Delta, entry.SpendableAfter)
	}
	return result, entry, nil
}

// apply locks the wallet, skips already-applied references, mutates, saves
// and appends the entry. ok is false when the reference was already applied.
func (s *Service) apply(ctx context.Context, tx wallet.Tx, accountID uuid.UUID, reference string, fn mutation) (wallet.Wallet, wallet.Entry, bool, error) {
	w, err := tx.LockWallet(ctx, accountID)
	if err != nil {
		return wallet.Wallet{}, wallet.Entry{}, false, err
	}

	if reference != "" {
		seen, err := tx.HasReference(ctx, accountID, reference)
		if err != nil {
			return wallet.Wallet{}, wallet.Entry{}, false, err
		}
		if seen {
			return w, wallet.Entry{}, false, nil
		}
	}

	entry, err := fn(&w, s.now())
	if err != nil {
		return wallet.Wallet{}, wallet.Entry{}, false, err
	}
	if reference != "" {
		ref := reference
		entry.Reference = &ref
	}

	if err := tx.SaveWallet(ctx, w); err != nil {
		return wallet.Wallet{}, wallet.Entry{}, false, err
	}
	if err := tx.AppendEntry(ctx, entry); err != nil {
		return wallet.Wallet{}, wallet.Entry{}, false, err
	}
	return w, entry, true, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.eventBus != nil {
		s.eventBus.Publish(ctx, event)
	}
}

// MapError converts wallet errors into application errors. Errors that are
// already *apperr.Error pass through.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}

	var insufficient *wallet.InsufficientCreditsError
	switch {
	case errors.As(err, &insufficient):
		return apperr.Wrap(apperr.KindPaymentRequired, "insufficient credits", err).WithDetails(map[string]int{
			"required":  insufficient.Required,
			"available": insufficient.Available,
		})
	case errors.Is(err, wallet.ErrWalletNotFound):
		return apperr.Wrap(apperr.KindNotFound, "wallet not found", err)
	case errors.Is(err, wallet.ErrNothingToRedeem):
		return apperr.Wrap(apperr.KindBadRequest, "nothing to redeem", err)
	case errors.Is(err, wallet.ErrConcurrencyConflict):
		return apperr.Wrap(apperr.KindUnavailable, "wallet is busy, retry the request", err)
	case errors.Is(err, wallet.ErrReferenceApplied):
		return apperr.Wrap(apperr.KindConflict, "reference already applied", err)
	case errors.Is(err, wallet.ErrInvalidAmount), errors.Is(err, wallet.ErrUnknownAddOn), errors.Is(err, wallet.ErrUnknownBucket):
		return apperr.Wrap(apperr.KindValidation, err.Error(), err)
	default:
		return apperr.Wrap(apperr.KindInternal, "wallet operation failed", err)
	}
}
