package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadledger_backend/internal/plans"
	"leadledger_backend/internal/wallet"
	"leadledger_backend/platform/apperr"
	"leadledger_backend/platform/logger"
	"leadledger_backend/platform/metrics"

	"github.com/google/uuid"
)

// WalletService is the wallet surface billing drives.
type WalletService interface {
	Open(ctx context.Context, accountID uuid.UUID, planSlug *string) (wallet.Wallet, error)
	Deposit(ctx context.Context, accountID uuid.UUID, amount int, bucket wallet.Bucket, reference string) (wallet.Wallet, error)
	Renew(ctx context.Context, accountID uuid.UUID, planSlug string, allotment int, reference string) (wallet.Wallet, error)
	StartTrial(ctx context.Context, accountID uuid.UUID, credits int, expiresAt time.Time, reference string) (wallet.Wallet, error)
}

// AddOnEarner credits add-on buckets.
type AddOnEarner interface {
	Earn(ctx context.Context, accountID uuid.UUID, kind wallet.AddOnKind, credits, seats *int, reference string) (wallet.Wallet, error)
}

type Dispatcher struct {
	wallets WalletService
	addons  AddOnEarner
	catalog *plans.Catalog
	log     *logger.Logger
	now     func() time.Time
}

func NewDispatcher(wallets WalletService, addons AddOnEarner, catalog *plans.Catalog, log *logger.Logger) *Dispatcher {
	return &Dispatcher{wallets: wallets, addons: addons, catalog: catalog, log: log, now: time.Now}
}

// WithClock replaces the time source.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Dispatch applies one event. Every wallet write carries the event reference,
// so redelivered events are no-ops. Errors wrapping ErrPermanent must not be retried.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) error {
	err := d.dispatch(ctx, e)
	result := "ok"
	if err != nil {
		err = classify(err)
		result = "retry"
		if isPermanent(err) {
			result = "dead_letter"
		}
	}
	metrics.RecordBillingEvent(e.Type, result)
	return err
}

func (d *Dispatcher) dispatch(ctx context.Context, e Event) error {
	if err := e.validate(); err != nil {
		return permanent(err)
	}

	switch e.Type {
	case TypeSubscriptionActivated, TypeSubscriptionRenewed:
		plan, err := d.plan(e.PlanSlug)
		if err != nil {
			return err
		}
		if _, err := d.wallets.Open(ctx, e.AccountID, &plan.Slug); err != nil {
			return err
		}
		allotment := plan.MonthlyCredits
		if e.Allotment != nil {
			allotment = *e.Allotment
		}
		_, err = d.wallets.Renew(ctx, e.AccountID, plan.Slug, allotment, e.Reference())
		return err

	case TypeSubscriptionCanceled:
		_, err := d.wallets.Deposit(ctx, e.AccountID, e.Amount, wallet.BucketFrozen, e.Reference())
		return err

	case TypeTrialStarted:
		plan, err := d.plan(e.PlanSlug)
		if err != nil {
			return err
		}
		credits := plan.TrialCredits
		if e.Credits != nil {
			credits = *e.Credits
		}
		start := e.OccurredAt
		if start.IsZero() {
			start = d.now()
		}
		expiresAt := plan.TrialEnd(start.UTC())
		if e.ExpiresAt != nil {
			expiresAt = e.ExpiresAt.UTC()
		}
		if credits <= 0 || !expiresAt.After(start) {
			return permanent(fmt.Errorf("plan %q has no trial terms", plan.Slug))
		}
		if _, err := d.wallets.Open(ctx, e.AccountID, &plan.Slug); err != nil {
			return err
		}
		_, err = d.wallets.StartTrial(ctx, e.AccountID, credits, expiresAt, e.Reference())
		return err

	case TypeCreditsPurchased:
		if _, err := d.wallets.Open(ctx, e.AccountID, nil); err != nil {
			return err
		}
		_, err := d.wallets.Deposit(ctx, e.AccountID, e.Amount, wallet.BucketSpendable, e.Reference())
		return err

	case TypeAddOnEarned:
		if _, err := d.wallets.Open(ctx, e.AccountID, nil); err != nil {
			return err
		}
		_, err := d.addons.Earn(ctx, e.AccountID, wallet.AddOnKind(e.AddOnKind), e.Credits, e.Seats, e.Reference())
		return err
	}

	return permanent(fmt.Errorf("unknown event type %q", e.Type))
}

func (d *Dispatcher) plan(slug string) (plans.Plan, error) {
	p, ok := d.catalog.Plan(slug)
	if !ok {
		return plans.Plan{}, permanent(fmt.Errorf("unknown plan %q", slug))
	}
	return p, nil
}

func permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

func isPermanent(err error) bool {
	return err != nil && errors.Is(err, ErrPermanent)
}

// classify marks caller errors as permanent; storage and conflict errors stay retryable.
func classify(err error) error {
	if isPermanent(err) {
		return err
	}
	switch apperr.GetKind(err) {
	case apperr.KindValidation, apperr.KindBadRequest, apperr.KindNotFound,
		apperr.KindForbidden, apperr.KindPaymentRequired:
		return permanent(err)
	}
	return err
}
