// Package addons gates add-on earning and redemption on the account's plan tier.
package addons

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadledger_backend/internal/plans"
	"leadledger_backend/internal/wallet"
	"leadledger_backend/platform/apperr"

	"github.com/google/uuid"
)

// TierIneligibleError is returned when the plan does not include the add-on.
type TierIneligibleError struct {
	Kind     wallet.AddOnKind
	PlanSlug string
}

func (e *TierIneligibleError) Error() string {
	if e.PlanSlug == "" {
		return fmt.Sprintf("%s requires an active plan", e.Kind)
	}
	return fmt.Sprintf("%s is not included in plan %s", e.Kind, e.PlanSlug)
}

// WalletService is the subset of the wallet service add-ons need.
type WalletService interface {
	Get(ctx context.Context, accountID uuid.UUID) (wallet.Wallet, error)
	EarnAddOn(ctx context.Context, accountID uuid.UUID, kind wallet.AddOnKind, credits, seats int, reference string) (wallet.Wallet, error)
	RedeemAddOn(ctx context.Context, accountID uuid.UUID, kind wallet.AddOnKind, checks ...wallet.RedeemCheck) (wallet.Redemption, wallet.Wallet, error)
}

type Service struct {
	wallets WalletService
	catalog *plans.Catalog
}

func New(wallets WalletService, catalog *plans.Catalog) *Service {
	return &Service{wallets: wallets, catalog: catalog}
}

type KindOverview struct {
	Kind           wallet.AddOnKind `json:"kind"`
	Available      bool             `json:"available"`
	CreditsEarned  int              `json:"creditsEarned"`
	SeatsEarned    int              `json:"seatsEarned"`
	CreditValue    int              `json:"creditValue"`
	SeatValue      int              `json:"seatValue"`
	LastRedeemedAt *time.Time       `json:"lastRedeemedAt,omitempty"`
}

type Overview struct {
	PlanSlug   *string        `json:"planSlug,omitempty"`
	PlanName   string         `json:"planName,omitempty"`
	TierLevel  int            `json:"tierLevel"`
	BonusSeats int            `json:"bonusSeats"`
	AddOns     []KindOverview `json:"addOns"`
}

// Overview lists every add-on with tier availability and unredeemed amounts.
func (s *Service) Overview(ctx context.Context, accountID uuid.UUID) (Overview, error) {
	w, err := s.wallets.Get(ctx, accountID)
	if err != nil {
		return Overview{}, err
	}

	plan, hasPlan := s.planFor(w)
	out := Overview{PlanSlug: w.PlanSlug, BonusSeats: w.BonusSeats, AddOns: make([]KindOverview, 0, len(wallet.AddOnKinds))}
	if hasPlan {
		out.PlanName = plan.Name
		out.TierLevel = plan.TierLevel
	}

	for _, kind := range wallet.AddOnKinds {
		credits, seats := w.Earned(kind)
		grant := s.catalog.GrantFor(kind)
		out.AddOns = append(out.AddOns, KindOverview{
			Kind:           kind,
			Available:      hasPlan && plan.Allows(kind),
			CreditsEarned:  credits,
			SeatsEarned:    seats,
			CreditValue:    grant.Credits,
			SeatValue:      grant.Seats,
			LastRedeemedAt: w.LastRedeemedAt(kind),
		})
	}
	return out, nil
}

// Earn credits an add-on bucket. Nil amounts use the catalog grant size.
// Earning is not tier-gated; only redemption is.
func (s *Service) Earn(ctx context.Context, accountID uuid.UUID, kind wallet.AddOnKind, credits, seats *int, reference string) (wallet.Wallet, error) {
	if !kind.Valid() {
		return wallet.Wallet{}, apperr.Wrap(apperr.KindValidation, "unknown add-on kind", wallet.ErrUnknownAddOn)
	}
	grant := s.catalog.GrantFor(kind)
	c, n := grant.Credits, grant.Seats
	if credits != nil {
		c = *credits
	}
	if seats != nil {
		n = *seats
	}
	return s.wallets.EarnAddOn(ctx, accountID, kind, c, n, reference)
}

// Redeem moves an add-on bucket into the balance when the plan allows it.
// The tier is checked against the locked wallet.
func (s *Service) Redeem(ctx context.Context, accountID uuid.UUID, kind wallet.AddOnKind) (wallet.Redemption, wallet.Wallet, error) {
	if !kind.Valid() {
		return wallet.Redemption{}, wallet.Wallet{}, apperr.Wrap(apperr.KindValidation, "unknown add-on kind", wallet.ErrUnknownAddOn)
	}
	return s.wallets.RedeemAddOn(ctx, accountID, kind, func(w wallet.Wallet) error {
		return s.checkTier(w, kind)
	})
}

func (s *Service) checkTier(w wallet.Wallet, kind wallet.AddOnKind) error {
	plan, ok := s.planFor(w)
	if ok && plan.Allows(kind) {
		return nil
	}
	tierErr := &TierIneligibleError{Kind: kind}
	if w.PlanSlug != nil {
		tierErr.PlanSlug = *w.PlanSlug
	}
	return apperr.Wrap(apperr.KindForbidden, tierErr.Error(), tierErr)
}

func (s *Service) planFor(w wallet.Wallet) (plans.Plan, bool) {
	if w.PlanSlug == nil {
		return plans.Plan{}, false
	}
	return s.catalog.Plan(*w.PlanSlug)
}

// IsTierIneligible reports whether err carries a TierIneligibleError.
func IsTierIneligible(err error) bool {
	var tierErr *TierIneligibleError
	return errors.As(err, &tierErr)
}
